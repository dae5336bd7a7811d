package main

import (
	"github.com/grovestate/promised/pkg/hashtable"
	"github.com/grovestate/promised/pkg/policy"
	"github.com/grovestate/promised/pkg/rval"
	"github.com/grovestate/promised/pkg/scope"
)

// demoBundle returns a small, fixed policy bundle used by the "run"
// subcommand when no external parser is available to produce one: a
// commands promise iterated over a short host list, plus a reports
// promise announcing completion.
func demoBundle() policy.Bundle {
	return policy.Bundle{
		Name:      "main",
		Namespace: "default",
		Promises: []policy.Promise{
			{
				Bundle:   "main",
				TypeName: "commands",
				Promiser: "echo",
				Constraints: []policy.Constraint{
					{Lval: "args", Rval: rval.Scalar("@(targets)")},
				},
			},
			{
				Bundle:   "main",
				TypeName: "reports",
				Promiser: "demonstration bundle converged",
			},
		},
	}
}

// seedDemoScope populates the variables demoBundle's promises
// reference, the way a parsed policy file's "vars" promises would.
func seedDemoScope(scopes *scope.Store) error {
	return scopes.PutList("main", "targets",
		rval.List(rval.Scalar("alpha"), rval.Scalar("beta"), rval.Scalar("gamma")),
		hashtable.DataStringList,
	)
}
