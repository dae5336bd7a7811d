/*
Package rval implements the tagged right-hand-side value model that backs
every variable binding in the policy-evaluation engine: scalars, ordered
lists, unevaluated function calls, opaque containers, and the absence of a
promisee.

A Rval is deep-copied on every insert into a scope and on every iteration-
wheel dereference: each association owns a private copy of its value, so
no mutation through one scope can be observed through another. Go's
garbage collector makes manual destruction unnecessary, but Destroy is
kept as an explicit no-op so call sites written against an explicit-free
ownership model still have somewhere to put the call.

Equality is structural but three-valued: Equal returns Inconclusive rather
than a boolean whenever either side still contains an unexpanded variable
reference or an unevaluated function call, since such values cannot be
compared without first running them through the expander.
*/
package rval
