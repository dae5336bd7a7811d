/*
Package scope implements the process-wide registry of named variable
scopes that back promise and bundle evaluation: a scope is a name (such
as "edit_line" or "this") bound to one hashtable.Table of lval ->
Association, and the registry itself is a single structure guarded by
one mutex: scope creation, deletion, and copy all contend for the same
lock, with no finer-grained locking attempted.

"this" is special: it is the scope of the promise currently being
evaluated, and entering a nested bundle call pushes the current "this"
onto a stack and renames it to "this_<depth>" so the bundle body can
establish its own "this" without destroying the caller's, popped back
on return. This stack-frame discipline is why Store exposes PushThis
and PopThis as dedicated operations rather than letting callers rename
scopes themselves.

Redefining an existing variable with a different value is allowed but
logged at warn level rather than rejected outright — a policy bundle
called with different arguments on each iteration is expected to
redefine its locals every pass. A scalar or list whose right-hand side
refers to its own left-hand name is rejected instead, since that
assignment can never converge.
*/
package scope
