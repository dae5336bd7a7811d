/*
Package hashtable implements the adaptive associative array used by every
scope in the policy-evaluation engine to map a variable name (lval) to its
Rval and DataType.

Two physical representations are used, invisible to callers:

  - Tiny: a flat slice, capacity 14, linear search. Most promise-local
    scopes never hold more than a handful of variables, and scopes are
    created and destroyed once per promise evaluation, so the common
    case is optimized for cheap construction and teardown rather than
    lookup complexity.
  - Huge: open-addressed with linear probing at a fixed, build-constant
    capacity (a power of two). Three bucket states: empty, occupied,
    tombstone. The transition from Tiny to Huge happens on the 15th
    insert and is one-way; the table never shrinks back to Tiny.

The hash function is a byte-at-a-time additive/shift/xor avalanche
(Jenkins' one-at-a-time) over the lower-cased key, masked to the table
size. Folding the hash input to lower case — while the stored key stays
case-preserving — keeps behavior compatible with existing policies that
rely on case-insensitive lookup collisions.

CopyFrom re-inserts every live entry of a source table into the
destination by calling Insert, which already enforces key-uniqueness (no
overwrite); because Iterator only ever yields live entries, a tombstone
in the source can never shadow a later live value during a copy.
*/
package hashtable
