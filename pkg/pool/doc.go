// Package pool implements the connection pool: a keyed cache of
// authenticated copy-protocol connections shared by every
// policy-evaluation worker in the process.
//
// Each server address maps to at most one entry, which is either an
// authenticated, idle connection; a busy connection currently leased to
// a worker; or an offline sentinel recording that the last connection
// attempt failed, so subsequent promises referencing that server skip
// the dial entirely for the rest of the run.
//
// A single mutex guards the entry map, and a second, dedicated mutex
// serialises DNS resolution, since not every platform's resolver is
// safe for concurrent lookups.
package pool
