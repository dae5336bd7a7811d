// Package metrics exposes Prometheus instrumentation for the policy
// engine, following the same package-level var-block-plus-init
// registration shape used throughout this codebase's ambient
// infrastructure.
//
// Metric names are prefixed promised_ and grouped by the component
// they describe:
//
//   - promised_scopes_total, promised_hashtable_scopes,
//     promised_this_stack_depth -- pkg/scope's live variable scopes and
//     their hashtable representation.
//   - promised_iteration_substitutions_total,
//     promised_iteration_promises_skipped_total -- pkg/iteration's
//     Cartesian expansion of slist-valued attributes.
//   - promised_locks_held_total, promised_lock_acquire_total,
//     promised_lock_acquire_duration_seconds -- pkg/lock's bbolt-backed
//     promise locks.
//   - promised_pool_connections, promised_handshakes_total -- pkg/pool's
//     cached copy-protocol connections.
//   - promised_copy_bytes_transferred_total,
//     promised_copy_files_transferred_total,
//     promised_copy_checksum_mismatch_total, promised_statcache_total,
//     promised_hardlinks_preserved_total -- pkg/copyproto, pkg/statcache,
//     and pkg/hardlink.
//   - promised_promise_results_total,
//     promised_promise_evaluation_duration_seconds,
//     promised_bundle_run_duration_seconds -- pkg/dispatch and
//     pkg/engine's bundle-walking loop.
//
// pkg/collector polls the components that do not already update their
// gauges inline (scope store occupancy, held-lock count) on a 15
// second ticker and publishes them here; it lives in its own package
// to avoid an import cycle, since pkg/lock and pkg/pool both import
// this package to instrument their own calls.
//
// Handler returns the standard promhttp handler for wiring into an
// agent's /metrics endpoint. Timer is a small stopwatch helper used
// throughout the engine to record histogram observations without
// repeating time.Since bookkeeping at every call site.
package metrics
