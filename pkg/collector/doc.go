// Package collector polls the engine's long-lived components (the
// scope store, the lock manager, the connection pool) on a ticker and
// publishes their state through pkg/metrics, mirroring this codebase's
// own ticker/stopCh background-poller shape.
//
// It is a separate package from pkg/metrics itself because pkg/lock
// and pkg/pool both import pkg/metrics to instrument their own calls
// inline; a poller that needs to read those components back would
// otherwise create an import cycle.
package collector
