/*
Package lock implements the persistent lock manager that keeps two
policy-evaluation agents (or two overlapping runs of the same one) from
acting on the same promise concurrently, and that remembers when a
promise last completed so a too-frequent run can be skipped outright.

The backing store is a go.etcd.io/bbolt database with two buckets:
"locks" holds one entry per currently-held lock keyed by lock_id,
"completions" holds one entry per promise keyed by the same string
recording when it last finished. The two buckets give the held-lock and
last-completion namespaces an explicit on-disk split rather than one
encoded into a key prefix.

Each record is serialised into a fixed 24-byte layout -- a 4-byte pid,
4 bytes of zeroed padding, an 8-byte Unix-second timestamp, and 8 more
zeroed padding bytes -- written field-by-field into a buffer that is
reset to all zero before every field is placed, so that no stale byte
from a previous record can leak through a partial overwrite. The layout
is a frozen external format shared with existing lock databases, not an
internal implementation detail, which is why it is not an encoding/gob
or encoding/json blob.

Acquire's expired-lock reclamation kills the stale pid with an
INT -> TERM -> KILL escalation, waiting one second after INT, five
seconds after TERM, and one second after KILL -- an unusually long
pause for a supposedly fast library call, but changing it would mean a
different recovery window than operators have tuned their policies
around.
*/
package lock
