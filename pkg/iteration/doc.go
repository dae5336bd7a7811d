/*
Package iteration implements the odometer that drives a promise with
list-valued attributes through every combination of its list elements,
one wheel per referenced list variable.

Each wheel's source values are sentinel-padded -- a leading and a
trailing rval.None() bookend the real elements -- so that a wheel
starts pointing at its first real element and "wrapping" is simply
advancing the cursor onto the trailing sentinel. This makes a
single-element list yield exactly one substitution and an empty list
yield zero, with no special-casing at the call site.

The increment order is rightmost-first: the last wheel in the slice is
the fastest-changing (like the ones digit of an odometer), and wrapping
it carries into the wheel to its left recursively; iteration ends when
the first wheel wraps. Each wheel's position is an
explicit cursor index rather than a pointer into the source list, so a
wheel's state can be inspected and reset without touching the values it
ranges over.
*/
package iteration
