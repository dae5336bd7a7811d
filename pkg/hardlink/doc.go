// Package hardlink implements the hard-link cache: a (device, inode) ->
// first-destination-path table populated during one recursive copy
// descent, used to re-create the source's hard-link topology at the
// destination instead of materialising N independent copies of an
// N-linked source file.
//
// The cache is scoped to a single recursive copy the same way
// statcache.Cache is scoped to a single promise: hard-link preservation
// does not persist across runs -- a destination file relinked in a
// previous run is not remembered by a fresh Cache in the next.
package hardlink
