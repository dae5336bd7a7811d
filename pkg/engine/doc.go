// Package engine implements the Runner: the top-level driver that
// walks a policy.Bundle's promises in declaration order, wiring
// pkg/expand, pkg/iteration, pkg/lock and pkg/dispatch together exactly
// as the component design's control-flow paragraph describes --
// iterate, substitute, acquire, dispatch, yield -- per promise, per
// iteration combination.
//
// Background promises are handed to a bounded worker pool instead of
// being evaluated inline, the same "log error but continue" per-item
// tolerance this codebase's reconciliation loop uses for independent
// units of work, so one promise's failure never aborts the bundle.
package engine
