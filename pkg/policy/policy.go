package policy

import "github.com/grovestate/promised/pkg/rval"

// Constraint is one attribute binding inside a promise's body, e.g.
// `ifelapsed => "60"` or `comment => "restart the service"`.
type Constraint struct {
	Lval string
	Rval rval.Rval
}

// Promise is one promiser/promisee pair plus the constraints that
// parameterise how it converges. TypeName selects which registered
// Actuator (see pkg/dispatch) evaluates it; Background marks a promise
// the engine may hand to a worker instead of evaluating inline.
type Promise struct {
	Bundle    string
	Namespace string
	TypeName  string
	Promiser  string
	Promisee  rval.Rval

	Constraints []Constraint
	Background  bool
}

// Attr returns the Rval bound to lval among p's constraints, if any.
func (p Promise) Attr(lval string) (rval.Rval, bool) {
	for _, c := range p.Constraints {
		if c.Lval == lval {
			return c.Rval, true
		}
	}
	return rval.Rval{}, false
}

// AttrString is like Attr but unwraps a scalar-valued constraint
// directly to its string, returning ok=false for a missing or
// non-scalar constraint.
func (p Promise) AttrString(lval string) (string, bool) {
	v, ok := p.Attr(lval)
	if !ok || v.Kind != rval.KindScalar {
		return "", false
	}
	return v.Scalar, true
}

// ListVars returns the names of every constraint whose right-hand side
// is a bare "@(name)" reference -- the set of list variables the
// iteration engine must build wheels for before this promise can be
// evaluated.
func (p Promise) ListVars(nakedListName func(string) (string, bool)) []string {
	var names []string
	for _, c := range p.Constraints {
		if c.Rval.Kind != rval.KindScalar {
			continue
		}
		if name, ok := nakedListName(c.Rval.Scalar); ok {
			names = append(names, name)
		}
	}
	return names
}

// Body is a named, reusable set of constraints referenced by a
// promise's constraint list in place of inline attributes, the way
// policy source attaches `copy_from => remote_cp(...)` to a body
// template rather than restating every field at each call site.
type Body struct {
	Name     string
	TypeName string

	Constraints []Constraint
}

// Bundle is an ordered collection of promises sharing one variable
// scope.
type Bundle struct {
	Name      string
	Namespace string
	Promises  []Promise
}

// TransactionAttributes is the resolved view of a promise's
// ifelapsed/expireafter locking constraints, the minimal per-promise
// attributes the LockManager needs from an otherwise promise-type-
// specific constraint list.
type TransactionAttributes struct {
	IfElapsedSeconds   int
	ExpireAfterSeconds int
}

// DefaultTransactionAttributes returns the built-in defaults: a promise
// with neither ifelapsed nor expireafter set locks for one minute and
// treats a completion as fresh for one minute.
func DefaultTransactionAttributes() TransactionAttributes {
	return TransactionAttributes{IfElapsedSeconds: 60, ExpireAfterSeconds: 60}
}
