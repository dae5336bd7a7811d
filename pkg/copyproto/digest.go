package copyproto

import (
	"crypto/md5"
	"crypto/sha256"
)

// ChallengeDigest computes the expected response to a handshake nonce.
// SHA-256 is used when fipsMode is set; otherwise MD5 is used,
// retained only for interoperability with peers that predate FIPS
// support and gated off whenever the agent is configured for FIPS
// compliance.
func ChallengeDigest(nonce []byte, fipsMode bool) []byte {
	if fipsMode {
		sum := sha256.Sum256(nonce)
		return sum[:]
	}
	sum := md5.Sum(nonce)
	return sum[:]
}

// VerifyChallengeDigest reports whether got matches the digest of
// nonce under either supported algorithm, the way the handshake's
// server-reply verification step tries both before declaring a
// mismatch fatal.
func VerifyChallengeDigest(nonce, got []byte) bool {
	sha := ChallengeDigest(nonce, true)
	md5sum := ChallengeDigest(nonce, false)
	return constantTimeEqual(got, sha) || constantTimeEqual(got, md5sum)
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
