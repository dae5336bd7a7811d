package engine

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/grovestate/promised/pkg/dispatch"
	"github.com/grovestate/promised/pkg/expand"
	"github.com/grovestate/promised/pkg/hashtable"
	"github.com/grovestate/promised/pkg/iteration"
	"github.com/grovestate/promised/pkg/lock"
	"github.com/grovestate/promised/pkg/log"
	"github.com/grovestate/promised/pkg/metrics"
	"github.com/grovestate/promised/pkg/policy"
	"github.com/grovestate/promised/pkg/rval"
	"github.com/grovestate/promised/pkg/scope"
)

// Outcome is one promise's result for one iteration combination. A
// promise with no list-valued constraints yields exactly one Outcome;
// an iterating promise yields one per combination of its source lists.
type Outcome struct {
	Bundle   string
	TypeName string
	Promiser string
	Result   dispatch.PromiseResult
}

// Runner ties the scope store, lock manager, and actuator dispatcher
// together to evaluate whole bundles.
type Runner struct {
	Scopes     *scope.Store
	Locks      *lock.Manager
	Dispatcher *dispatch.Dispatcher

	// Workers bounds how many background promises may be evaluated
	// concurrently. Zero means a default of 4.
	Workers int

	host string
}

// NewRunner returns a Runner over the given components. locks may be
// nil, in which case every promise is dispatched unconditionally
// without taking a transaction lock -- useful for tests and for the
// "reports"/"commands" demonstration actuators, which are idempotent.
func NewRunner(scopes *scope.Store, locks *lock.Manager, dispatcher *dispatch.Dispatcher, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &Runner{Scopes: scopes, Locks: locks, Dispatcher: dispatcher, Workers: workers, host: host}
}

// RunBundle evaluates every promise in bundle, in declaration order for
// foreground promises; background promises are dispatched to a bounded
// worker pool and awaited before RunBundle returns, so the result slice
// is always complete. The returned order interleaves foreground
// promises (in declaration order) with background promises (in
// completion order) -- callers that need bundle order should filter by
// TypeName/Promiser rather than relying on slice position for
// background work.
func (r *Runner) RunBundle(bundle policy.Bundle) []Outcome {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.BundleRunDuration)

	var mu sync.Mutex
	var outcomes []Outcome

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.Workers)

	record := func(newOutcomes []Outcome) {
		mu.Lock()
		outcomes = append(outcomes, newOutcomes...)
		mu.Unlock()
	}

	for _, p := range bundle.Promises {
		p := p
		if p.Background {
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				record(r.evaluatePromise(bundle, p))
			}()
			continue
		}
		record(r.evaluatePromise(bundle, p))
	}

	wg.Wait()
	return outcomes
}

// evaluatePromise drives one promise through every combination of its
// iterated list variables, acquiring and yielding a transaction lock
// around each combination's dispatch.
func (r *Runner) evaluatePromise(bundle policy.Bundle, p policy.Promise) []Outcome {
	logger := log.WithBundle(bundle.Name)

	listVars := r.listVarsFor(bundle, p)

	ctx, err := iteration.Begin(r.Scopes, bundle.Name, listVars)
	if err != nil {
		logger.Error().Err(err).Str("promiser", p.Promiser).Msg("promise is not iterable, skipping")
		return []Outcome{{Bundle: bundle.Name, TypeName: p.TypeName, Promiser: p.Promiser, Result: dispatch.Skipped}}
	}
	defer ctx.End()

	var results []Outcome
	attrs := resolveAttrs(p)

	for !ctx.EndOfIteration() {
		if err := ctx.Substitute(); err != nil {
			logger.Error().Err(err).Str("promiser", p.Promiser).Msg("failed to substitute iteration values")
			results = append(results, Outcome{Bundle: bundle.Name, TypeName: p.TypeName, Promiser: p.Promiser, Result: dispatch.Fail})
			ctx.Step()
			continue
		}

		expanded := r.expandPromise(bundle, p)
		result := r.dispatchOne(bundle, expanded, attrs)
		results = append(results, Outcome{Bundle: bundle.Name, TypeName: p.TypeName, Promiser: expanded.Promiser, Result: result})

		ctx.Step()
	}

	return results
}

// dispatchOne acquires a transaction lock (if a lock manager is
// configured), dispatches the promise, and yields the lock.
func (r *Runner) dispatchOne(bundle policy.Bundle, p policy.Promise, attrs policy.TransactionAttributes) dispatch.PromiseResult {
	if r.Locks == nil {
		return r.Dispatcher.Dispatch(p, r.Scopes)
	}

	now := time.Now()
	handle, err := r.Locks.Acquire(
		p.TypeName, p.Promiser, r.host, bundle.Name, now,
		time.Duration(attrs.IfElapsedSeconds)*time.Second,
		time.Duration(attrs.ExpireAfterSeconds)*time.Second,
	)
	if err != nil {
		log.WithComponent("engine").Error().Err(err).Str("promiser", p.Promiser).Msg("lock acquire failed")
		return dispatch.Fail
	}
	if handle == nil {
		return dispatch.Skipped
	}

	result := r.Dispatcher.Dispatch(p, r.Scopes)

	if err := r.Locks.Yield(handle, time.Now()); err != nil {
		log.WithComponent("engine").Error().Err(err).Str("promiser", p.Promiser).Msg("lock yield failed")
	}

	return result
}

// listVarsFor collects the list variables promise p iterates over:
// every constraint whose rvalue slot is a naked "@(x)" reference, plus
// every "$(x)" reference in the promiser, promisee, or a scalar
// constraint whose referent is list-typed in the bundle's scope -- a
// scalar reference to a list implicitly iterates the promise over it.
// Naked references are returned whether or not they resolve, so a
// promise naming a missing list still fails Begin's lookup and is
// skipped rather than silently evaluated once.
func (r *Runner) listVarsFor(bundle policy.Bundle, p policy.Promise) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, name := range p.ListVars(expand.NakedListName) {
		add(name)
	}

	candidates := expand.ScalarReferences(p.Promiser)
	if p.Promisee.Kind == rval.KindScalar {
		candidates = append(candidates, expand.ScalarReferences(p.Promisee.Scalar)...)
	}
	for _, c := range p.Constraints {
		if c.Rval.Kind == rval.KindScalar {
			candidates = append(candidates, expand.ScalarReferences(c.Rval.Scalar)...)
		}
	}
	for _, name := range candidates {
		if _, dt, found := r.Scopes.GetVariable(bundle.Name, name); found && dt.IsList() {
			add(name)
		}
	}

	return names
}

// expandPromise returns a copy of p whose promiser, promisee, and
// scalar constraints have had their $(...)/${...} references
// substituted against the "this" scope, which at this point holds the
// bundle's variables plus the current iteration combination's scalars.
// It also binds this.promiser/this.bundle/this.namespace so actuators
// (and any remaining references in the promise body) can see them.
func (r *Runner) expandPromise(bundle policy.Bundle, p policy.Promise) policy.Promise {
	expanded := p
	expanded.Promiser, _ = expand.ExpandScalar(r.Scopes, "this", p.Promiser)

	if p.Promisee.Kind == rval.KindScalar {
		out, _ := expand.ExpandScalar(r.Scopes, "this", p.Promisee.Scalar)
		expanded.Promisee = rval.Scalar(out)
	}

	if len(p.Constraints) > 0 {
		expanded.Constraints = make([]policy.Constraint, len(p.Constraints))
		copy(expanded.Constraints, p.Constraints)
		for i, c := range expanded.Constraints {
			if c.Rval.Kind != rval.KindScalar {
				continue
			}
			// a naked list slot whose wheel has already substituted a
			// scalar into "this" collapses to that scalar, so the
			// actuator never sees the @(x) token
			if name, ok := expand.NakedListName(c.Rval.Scalar); ok {
				if v, dt, found := r.Scopes.GetVariable("this", name); found && !dt.IsList() && v.Kind == rval.KindScalar {
					expanded.Constraints[i].Rval = rval.Scalar(v.Scalar)
				}
				continue
			}
			out, _ := expand.ExpandScalar(r.Scopes, "this", c.Rval.Scalar)
			expanded.Constraints[i].Rval = rval.Scalar(out)
		}
	}

	ns := bundle.Namespace
	if ns == "" {
		ns = "default"
	}
	r.bindThis("promiser", expanded.Promiser)
	r.bindThis("bundle", bundle.Name)
	r.bindThis("namespace", ns)
	if expanded.Promisee.Kind == rval.KindScalar && expanded.Promisee.Scalar != "" {
		r.bindThis("promisee", expanded.Promisee.Scalar)
	}

	return expanded
}

// bindThis overwrites one reserved variable in the "this" scope. The
// variable changes on every iteration combination, so it is deleted
// first rather than routed through PutScalar's redefinition warning.
func (r *Runner) bindThis(name, value string) {
	r.Scopes.DeleteVariable("this", name)
	if err := r.Scopes.PutScalar("this", name, rval.Scalar(value), hashtable.DataString); err != nil {
		log.WithComponent("engine").Error().Err(err).Str("lval", name).Msg("failed to bind reserved this variable")
	}
}

// resolveAttrs extracts ifelapsed/expireafter from p's constraints,
// falling back to the engine's defaults for any that are absent or
// unparseable.
func resolveAttrs(p policy.Promise) policy.TransactionAttributes {
	attrs := policy.DefaultTransactionAttributes()

	if raw, ok := p.AttrString("ifelapsed"); ok {
		if seconds, err := strconv.Atoi(raw); err == nil {
			attrs.IfElapsedSeconds = seconds
		}
	}
	if raw, ok := p.AttrString("expireafter"); ok {
		if seconds, err := strconv.Atoi(raw); err == nil {
			attrs.ExpireAfterSeconds = seconds
		}
	}

	return attrs
}
