package expand

import (
	"regexp"
	"strings"

	"github.com/grovestate/promised/pkg/hashtable"
	"github.com/grovestate/promised/pkg/scope"
)

// referenceToken matches a single $(name), ${name} or @(name) reference.
// Names may contain '.', ':', '*', '#', '[' and ']' since qualified
// names and the IterationEngine's mangled iterable names use them.
var referenceToken = regexp.MustCompile(`\$\(([^()]*)\)|\$\{([^{}]*)\}|@\(([^()]*)\)`)

// IsExpandable reports whether s contains any $(...), ${...} or @(...)
// reference token.
func IsExpandable(s string) bool {
	return referenceToken.MatchString(s)
}

// tokenName extracts the captured name from whichever alternative of
// referenceToken matched, and reports whether the token was the naked-
// list @(...) form.
func tokenName(match []string) (name string, naked bool) {
	switch {
	case match[1] != "":
		return match[1], false
	case match[2] != "":
		return match[2], false
	default:
		return match[3], true
	}
}

// ExpandScalar substitutes every $(name)/${name} reference in in whose
// referent currently holds a scalar value, resolving names against
// currentScope via store. A reference to a list-typed or undefined
// variable is left verbatim and causes fullyResolved to come back
// false; a naked @(name) token is always left verbatim, since splicing
// a list into a scalar position has no defined meaning here.
func ExpandScalar(store *scope.Store, currentScope, in string) (out string, fullyResolved bool) {
	fullyResolved = true

	out = referenceToken.ReplaceAllStringFunc(in, func(tok string) string {
		match := referenceToken.FindStringSubmatch(tok)
		name, naked := tokenName(match)
		if naked {
			return tok
		}

		v, dt, found := store.GetVariable(currentScope, name)
		if !found || dt.IsList() || dt == hashtable.DataNone {
			fullyResolved = false
			return tok
		}

		return v.Scalar
	})

	return out, fullyResolved
}

// ScalarReferences returns the name inside every $(name)/${name} token
// in s, in order of appearance and without deduplication. Naked @(name)
// tokens are not included; those are recognised by NakedListName and
// only legal as a full Rval slot.
func ScalarReferences(s string) []string {
	var names []string
	for _, match := range referenceToken.FindAllStringSubmatch(s, -1) {
		name, naked := tokenName(match)
		if naked {
			continue
		}
		names = append(names, name)
	}
	return names
}

// SplitQualifiedName splits a variable reference of the form
// "scope.lval" or "scope:lval" into its scope qualifier and bare lval.
// ok is false for an unqualified name.
func SplitQualifiedName(name string) (scopeName, lval string, ok bool) {
	if idx := strings.IndexAny(name, ".:"); idx > 0 {
		return name[:idx], name[idx+1:], true
	}
	return "", name, false
}

// NakedListName reports whether s is exactly a standalone "@(name)"
// reference and, if so, returns name.
func NakedListName(s string) (name string, ok bool) {
	m := referenceToken.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return "", false
	}
	if _, naked := tokenName(m); !naked {
		return "", false
	}
	return m[3], true
}
