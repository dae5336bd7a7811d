package dispatch

import (
	"fmt"
	"sync"

	"github.com/grovestate/promised/pkg/log"
	"github.com/grovestate/promised/pkg/metrics"
	"github.com/grovestate/promised/pkg/policy"
	"github.com/grovestate/promised/pkg/scope"
)

// PromiseResult is the outcome of evaluating one expanded promise.
type PromiseResult int

const (
	// Kept means the promise's state was already as promised; no
	// change was made.
	Kept PromiseResult = iota
	// NoOp means the actuator deliberately made no change, distinct
	// from Kept in that the state was not verified to already match.
	NoOp
	// Repaired means the actuator made a change to satisfy the
	// promise.
	Repaired
	// Warn means convergence was not attempted but the situation was
	// logged for an operator's attention.
	Warn
	// Fail means an attempt to converge the promise failed.
	Fail
	// Denied means the promise was not attempted due to an access
	// control or policy restriction.
	Denied
	// Timeout means the actuator did not complete within its allotted
	// time.
	Timeout
	// Interrupted means evaluation was cancelled mid-flight, e.g. by
	// context cancellation.
	Interrupted
	// Skipped means the promise was not evaluated at all, e.g.
	// because its iteration context was not iterable or its lock could
	// not be acquired.
	Skipped
)

func (r PromiseResult) String() string {
	switch r {
	case Kept:
		return "kept"
	case NoOp:
		return "noop"
	case Repaired:
		return "repaired"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	case Denied:
		return "denied"
	case Timeout:
		return "timeout"
	case Interrupted:
		return "interrupted"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Actuator converges one promise type. Implementations must not retain
// store or p beyond the call: the engine reuses and mutates the "this"
// scope across iterations of the same promise.
type Actuator interface {
	Dispatch(p policy.Promise, store *scope.Store) PromiseResult
}

// ActuatorFunc adapts a plain function to the Actuator interface.
type ActuatorFunc func(p policy.Promise, store *scope.Store) PromiseResult

// Dispatch calls f.
func (f ActuatorFunc) Dispatch(p policy.Promise, store *scope.Store) PromiseResult {
	return f(p, store)
}

// Dispatcher routes an expanded promise to the Actuator registered for
// its TypeName.
type Dispatcher struct {
	mu        sync.RWMutex
	actuators map[string]Actuator
}

// NewDispatcher returns a Dispatcher with no actuators registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{actuators: make(map[string]Actuator)}
}

// Register binds promiseType to a. A later Register for the same
// promiseType replaces the previous binding.
func (d *Dispatcher) Register(promiseType string, a Actuator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actuators[promiseType] = a
}

// Dispatch looks up the actuator for p.TypeName and invokes it,
// recording the outcome and duration. A promise type with no
// registered actuator resolves to Denied without calling anything.
func (d *Dispatcher) Dispatch(p policy.Promise, store *scope.Store) PromiseResult {
	d.mu.RLock()
	a, ok := d.actuators[p.TypeName]
	d.mu.RUnlock()

	if !ok {
		log.WithComponent("dispatch").Warn().
			Str("type", p.TypeName).
			Str("promiser", p.Promiser).
			Msg("no actuator registered for promise type")
		metrics.PromiseResultsTotal.WithLabelValues(p.TypeName, Denied.String()).Inc()
		return Denied
	}

	timer := metrics.NewTimer()
	result := a.Dispatch(p, store)
	timer.ObserveDurationVec(metrics.PromiseEvaluationDuration, p.TypeName)

	metrics.PromiseResultsTotal.WithLabelValues(p.TypeName, result.String()).Inc()
	return result
}

// Registered reports whether an actuator is bound to promiseType, for
// callers (e.g. pkg/engine) that want to pre-validate a bundle before
// running it.
func (d *Dispatcher) Registered(promiseType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.actuators[promiseType]
	return ok
}

// ErrNoPromisee is returned by reference actuators that require a
// promisee and were not given one.
var ErrNoPromisee = fmt.Errorf("dispatch: promise has no promisee")
