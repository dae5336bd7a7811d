package lock

import (
	"fmt"
	"regexp"
)

// Constants for mixing a lock key's disambiguating suffix. They are
// part of the on-disk key format shared with existing lock databases
// and must not change; they are unrelated to pkg/hashtable's own hash,
// which covers scope variable names rather than lock key components.
const (
	macroAlphabet  = 31
	lockHashModulo = 1024
)

var nonCanonical = regexp.MustCompile(`[^A-Za-z0-9_]`)

// canonify replaces every character outside [A-Za-z0-9_] with '_'
// before a name is folded into a lock key.
func canonify(s string) string {
	return nonCanonical.ReplaceAllString(s, "_")
}

// digest computes a polynomial rolling hash over operator+operand to
// disambiguate two promises whose canonicalized operator/operand
// happen to collide.
func digest(operator, operand string) uint32 {
	var sum uint32
	for i := 0; i < len(operator); i++ {
		sum = (macroAlphabet*sum + uint32(operator[i])) % lockHashModulo
	}
	for i := 0; i < len(operand); i++ {
		sum = (macroAlphabet*sum + uint32(operand[i])) % lockHashModulo
	}
	return sum
}

// lockKey builds the shared key used in both the "locks" and
// "completions" buckets for one promise invocation:
// "<host>.<bundle>.<operator>.<operand>_<hash>", canonicalized. The two
// buckets give the lock_id/last_id split a separate on-disk namespace,
// so the same string serves as both.
func lockKey(host, bundle, operator, operand string) string {
	return fmt.Sprintf("%s.%s.%s.%s_%d",
		canonify(host), canonify(bundle), canonify(operator), canonify(operand),
		digest(operator, operand))
}
