// Package policy defines the in-memory promise/bundle representation
// the engine walks. The grammar that would produce these values from
// policy source text is out of scope (see the project's non-goals);
// callers build a Bundle directly, the way this repo's tests and its
// "run" demonstration subcommand do.
package policy
