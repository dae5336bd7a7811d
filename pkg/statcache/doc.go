// Package statcache implements the per-promise stat cache: a memo of
// remote stat results keyed by (server, path), scoped to the lifetime
// of one promise evaluation rather than any longer-lived object.
//
// Lookup is linear -- a promise touches at most a few dozen remote
// paths, so a map would save nothing worth the extra bookkeeping. A
// negative hit (a path that previously failed to stat) short-circuits
// without a network round-trip, and a cached "link" stat's cf_lmode
// overrides cf_mode when requesting the link's own stat rather than
// its target's.
package statcache
