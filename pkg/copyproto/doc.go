/*
Package copyproto is the verb layer of the remote file-copy protocol:
the RSA challenge-response handshake that authenticates a fresh
connection and derives a session key, and the STAT/OPENDIR/GET/MD5
verbs that run over it once established.

Every message is a length-prefixed frame: a 4-byte big-endian payload
length, a 1-byte control marker (More or Done), then the payload
itself. Frame is deliberately ignorant of what transport carries it --
callers hand it any io.ReadWriter, whether that's a net.Conn from
pkg/pool or an in-memory pipe in tests.

The handshake is asymmetric and deliberately bug-compatible with a
long-deployed wire format rather than modernized: the session key is
always used with a fixed, zero initialization vector (see the IV
constant's doc comment), and the challenge digest is computed with
MD5 unless FIPS mode is configured, even though SHA-256 is available
and preferred -- a connection's two ends must agree on the digest
algorithm before either one has exchanged any configuration, so this
package matches whatever the peer already expects rather than
upgrading unilaterally. Trust-on-first-use caching of a server's public
key by IP is explicit and logged, never silent.
*/
package copyproto
