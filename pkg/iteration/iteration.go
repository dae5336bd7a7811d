package iteration

import (
	"fmt"

	"github.com/grovestate/promised/pkg/metrics"
	"github.com/grovestate/promised/pkg/rval"
	"github.com/grovestate/promised/pkg/scope"
)

// Wheel holds one list variable's sentinel-padded values and the
// cursor into them for the current combination.
type Wheel struct {
	Name   string
	Values []rval.Rval // [None, item0, item1, ..., itemN-1, None]
	Cursor int
}

func newWheel(name string, items []rval.Rval) *Wheel {
	values := make([]rval.Rval, 0, len(items)+2)
	values = append(values, rval.None())
	values = append(values, items...)
	values = append(values, rval.None())

	cursor := 1
	if len(items) == 0 {
		cursor = len(values) - 1 // immediately at the trailing sentinel: zero iterations
	}

	return &Wheel{Name: name, Values: values, Cursor: cursor}
}

// current returns the value at the wheel's cursor.
func (w *Wheel) current() rval.Rval {
	return w.Values[w.Cursor]
}

// exhausted reports whether the cursor has reached the trailing
// sentinel.
func (w *Wheel) exhausted() bool {
	return w.Cursor == len(w.Values)-1
}

// atLastRealElement reports whether advancing once more would reach
// the trailing sentinel.
func (w *Wheel) atLastRealElement() bool {
	return w.Cursor == len(w.Values)-2
}

func (w *Wheel) reset() {
	if len(w.Values) > 2 {
		w.Cursor = 1
	}
}

// Context is one promise's in-flight iteration state: the set of
// wheels built from its referenced list variables, and the store whose
// "this" scope is being driven through each combination.
type Context struct {
	store         *scope.Store
	definingScope string
	wheels        []*Wheel

	// visited tracks whether a wheel-less promise has had its single
	// combination consumed. A promise that references no list variables
	// still dispatches exactly once.
	visited bool
}

// Begin populates a fresh "this" scope as a copy of definingScope and
// builds one wheel per name in listVars, in the order given -- the
// last name becomes the fastest-changing wheel. A list variable that
// is missing, not list-typed, still an unexpanded function call, or a
// list with an unexpanded function call among its elements makes the
// whole promise non-iterable and Begin returns an error so
// the caller can abort just that promise rather than the whole bundle.
func Begin(store *scope.Store, definingScope string, listVars []string) (*Context, error) {
	store.CopyScope("this", definingScope)

	wheels := make([]*Wheel, 0, len(listVars))
	for _, name := range listVars {
		v, dt, found := store.GetVariable(definingScope, name)
		if !found {
			metrics.IterationPromisesSkippedTotal.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("iteration: variable %q not found in scope %q", name, definingScope)
		}
		if v.Kind == rval.KindFnCall {
			metrics.IterationPromisesSkippedTotal.WithLabelValues("unexpanded_function_call").Inc()
			return nil, fmt.Errorf("iteration: variable %q is an unexpanded function call, not iterable", name)
		}
		if !dt.IsList() {
			metrics.IterationPromisesSkippedTotal.WithLabelValues("not_list_typed").Inc()
			return nil, fmt.Errorf("iteration: variable %q is not list-typed", name)
		}
		for _, item := range v.List {
			if item.Kind == rval.KindFnCall {
				metrics.IterationPromisesSkippedTotal.WithLabelValues("unexpanded_function_call").Inc()
				return nil, fmt.Errorf("iteration: variable %q contains an unexpanded function call, not iterable", name)
			}
		}

		clone := rval.Clone(v, nil)
		wheels = append(wheels, newWheel(name, clone.List))
	}

	return &Context{store: store, definingScope: definingScope, wheels: wheels}, nil
}

// EndOfIteration reports whether any wheel has reached its trailing
// sentinel -- true immediately after Begin if any wheel was built from
// an empty list, since the sentinel padding gives that wheel zero real
// positions to visit, and true after the final Step, which leaves
// every wheel on its sentinel.
func (ctx *Context) EndOfIteration() bool {
	if len(ctx.wheels) == 0 {
		return ctx.visited
	}
	for _, w := range ctx.wheels {
		if w.exhausted() {
			return true
		}
	}
	return false
}

// Step advances the odometer to the next combination, rightmost-first:
// the last wheel increments, and only when it wraps does the wheel to
// its left increment and this one reset. Step returns false once the
// leftmost (first) wheel has wrapped past its end, meaning every
// combination has been visited.
func (ctx *Context) Step() bool {
	if len(ctx.wheels) == 0 {
		ctx.visited = true
		return false
	}
	return stepWheel(ctx.wheels, len(ctx.wheels)-1)
}

func stepWheel(wheels []*Wheel, idx int) bool {
	if idx < 0 {
		return false
	}

	w := wheels[idx]
	if !w.atLastRealElement() {
		w.Cursor++
		return true
	}

	if idx == 0 {
		w.Cursor++ // move onto the trailing sentinel; EndOfIteration now observes this
		return false
	}

	if stepWheel(wheels, idx-1) {
		w.reset()
		return true
	}

	w.Cursor++
	return false
}

// Substitute overwrites, in the "this" scope, each wheel's variable
// with the scalar currently at its cursor and demotes its datatype
// from the *_LIST form to the scalar equivalent, so an actuator sees a
// promise whose list references have all become concrete scalars.
func (ctx *Context) Substitute() error {
	if len(ctx.wheels) == 0 {
		return nil
	}

	names := make([]string, len(ctx.wheels))
	values := make([]rval.Rval, len(ctx.wheels))
	for i, w := range ctx.wheels {
		names[i] = w.Name
		values[i] = w.current()
	}

	metrics.IterationSubstitutionsTotal.Inc()
	return ctx.store.DereferenceListVariables("this", names, values)
}

// End deletes the "this" scope and drops the wheels. The values each
// wheel holds were deep-cloned at Begin rather than borrowed from the
// defining scope's hashtable, so there is nothing else to release --
// Go's collector reclaims them once Context itself is unreferenced.
func (ctx *Context) End() {
	ctx.store.DeleteScope("this")
	ctx.wheels = nil
}
