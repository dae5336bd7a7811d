// Package dispatch implements the ActuatorDispatcher: the narrow
// interface boundary between a fully expanded, lock-acquired Promise
// and whatever code actually converges it. The parser's concrete
// file/package/user/service actuators are out of scope; this package
// ships only the dispatch contract, the PromiseResult vocabulary, and
// two minimal reference actuators ("commands" and "reports") that
// exist purely to exercise the interface and give pkg/engine's tests
// something real to converge.
//
// The "commands" actuator runs exec.CommandContext the way this
// codebase's exec-based health checker does, with the same
// timeout-via-context pattern. The "reports" actuator writes a line
// through pkg/report's broker rather than touching the filesystem or
// network at all.
package dispatch
