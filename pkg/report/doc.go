// Package report implements the PromiseResultBroker: a non-blocking
// pub/sub fan-out of promise-evaluation outcomes, adapted from this
// codebase's in-memory event broker (the same buffered-channel,
// subscriber-map, broadcast-loop shape) with EventType replaced by the
// promise evaluation's own result vocabulary.
//
// A "reports" actuator (see pkg/dispatch) publishes one Event per
// converged promise; any number of subscribers -- a console writer, a
// future HTML/JSON report emitter, an audit trail -- can Subscribe
// independently without slowing down evaluation, since Publish never
// blocks on a full subscriber buffer.
package report
