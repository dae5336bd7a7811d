/*
Package expand implements scalar variable substitution: replacing
$(name) and ${name} references inside a string with the current scalar
value of name, looked up through a scope.Store.

A reference whose referent is list-typed, or whose referent does not
exist at all, is left verbatim in the output and makes the whole
expansion incomplete -- expand_scalar signals this with a fully_resolved
bool rather than an error, because leaving a reference unexpanded is
expected behaviour mid-convergence (the variable may become available
on a later pass) rather than a failure.

@(name) naked-list references are recognised but never substituted by
this package: splicing a list into a scalar position is undefined, and
a standalone @(name) Rval is handled by rval.Clone against a
rval.Resolver instead (see pkg/scope.Scope.ResolveList). expand only
needs to recognise the @(name) form well enough to leave it untouched
when it appears nested inside a larger scalar.

Qualified names split on "." (scope separator) and ":" (namespace
separator); the IterationEngine mangles namespaced iterable names with
literal "*" and "#" characters that must round-trip through expansion
unchanged, so the reference scanner treats those two characters as
ordinary name constituents.
*/
package expand
