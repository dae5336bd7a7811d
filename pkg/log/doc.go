/*
Package log provides structured logging for the promise-evaluation agent
using zerolog.

The package wraps zerolog to give every component -- the scope store, the
iteration engine, the lock manager, the connection pool, the copy-protocol
client -- a consistently shaped logger: JSON or console output, a single
global level, and child loggers tagged with the scope, bundle, or promiser
a log line concerns.

# Usage

Initializing the logger once at agent start:

	import "github.com/grovestate/promised/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component loggers, one per package (the convention every package in this
module follows):

	scopeLog := log.WithComponent("scope")
	scopeLog.Warn().Str("scope", "this").Str("lval", "x").
		Msg("duplicate selection of value for variable")

Promise-evaluation context loggers:

	log.WithBundle("common").Info().Msg("evaluating bundle")
	log.WithScope("this").Debug().Msg("expanding promise rvalues")
	log.WithPromiser("/etc/hosts").Error().Err(err).Msg("copy failed")

# Log Levels

Debug is for per-promise expansion tracing (expensive, development only).
Info covers bundle/promise lifecycle (bundle started, lock acquired, file
converged). Warn covers recoverable policy issues: redefinition, a
trust-on-first-use key cache, a skipped non-iterable promise. Error covers
failed promises: stat failure, checksum mismatch, authentication failure.
Fatal is reserved for programming-invariant violations (hash table full,
corrupt lock record), which abort the process.

# Design Notes

A single package-level zerolog.Logger is initialized once via Init and
never passed explicitly; WithComponent/WithScope/WithBundle/WithPromiser
return child loggers carrying one extra field rather than a whole new
instance, so the cost of a component logger is one string field, not a
fresh zerolog pipeline.

Never log a promise's expanded rvalues at Info level if they may contain
secrets (body parameters passed by reference to copy or exec promises) --
use Debug, which operators are expected to disable in production.
*/
package log
