package hashtable

import (
	"strings"

	"github.com/grovestate/promised/pkg/rval"
)

// tinyLimit is the number of entries a Tiny table holds before the 15th
// insert promotes it to Huge.
const tinyLimit = 14

// hugeCapacity is the fixed, build-constant bucket count for a Huge
// table. It must be a power of two so the hash can be masked instead of
// reduced with a modulo, and the table deliberately does not support
// dynamic resize: callers that treat "full" as a fatal condition
// continue to do so.
const hugeCapacity = 1024

// Association binds a variable name to its current value and declared
// type. lval is unique within one Table.
type Association struct {
	Lval     string
	Rval     rval.Rval
	Datatype DataType
}

type bucketState uint8

const (
	bucketEmpty bucketState = iota
	bucketOccupied
	bucketTombstone
)

type bucket struct {
	state bucketState
	assoc *Association
}

// Table is the adaptive small-array/open-addressed map from variable
// name to Association. The zero value is not usable; construct with New.
//
// A Table is not internally synchronized — the scope store holds a
// single process-wide mutex around all mutating scope operations, and
// Table relies on that external discipline. Iteration is documented as
// safe only against concurrent reads for the same reason.
type Table struct {
	huge    bool
	tiny    []*Association
	buckets []bucket
	size    int
}

// New returns an empty Tiny table.
func New() *Table {
	return &Table{tiny: make([]*Association, 0, tinyLimit)}
}

func lowerHashKey(lval string) string {
	return strings.ToLower(lval)
}

// oatHash is Jenkins' one-at-a-time hash, an additive shift/xor
// avalanche applied to the lower-cased key and masked to the table's
// bucket count.
func oatHash(key string, mod int) int {
	var h uint32
	for i := 0; i < len(key); i++ {
		h += uint32(key[i])
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return int(h) & (mod - 1)
}

// Insert adds lval -> (v, dt), cloning v in. It returns false without
// modifying the table if lval is already present, or if the table is
// Huge and full. Tiny insertion order is preserved; a Huge table's
// iteration order follows bucket order, not insertion order.
func (t *Table) Insert(lval string, v rval.Rval, dt DataType) bool {
	if _, ok := t.Lookup(lval); ok {
		return false
	}

	assoc := &Association{Lval: lval, Rval: rval.Clone(v, nil), Datatype: dt}

	if !t.huge {
		if len(t.tiny) < tinyLimit {
			t.tiny = append(t.tiny, assoc)
			t.size++
			return true
		}
		t.promoteToHuge()
	}

	return t.insertHuge(assoc)
}

func (t *Table) promoteToHuge() {
	old := t.tiny
	t.tiny = nil
	t.huge = true
	t.buckets = make([]bucket, hugeCapacity)
	t.size = 0
	for _, a := range old {
		t.insertHuge(a)
	}
}

func (t *Table) insertHuge(assoc *Association) bool {
	key := lowerHashKey(assoc.Lval)
	start := oatHash(key, len(t.buckets))
	firstTombstone := -1

	for i := 0; i < len(t.buckets); i++ {
		idx := (start + i) % len(t.buckets)
		b := t.buckets[idx]

		switch b.state {
		case bucketEmpty:
			target := idx
			if firstTombstone != -1 {
				target = firstTombstone
			}
			t.buckets[target] = bucket{state: bucketOccupied, assoc: assoc}
			t.size++
			return true
		case bucketTombstone:
			if firstTombstone == -1 {
				firstTombstone = idx
			}
		case bucketOccupied:
			// key uniqueness already checked by caller via Lookup
		}
	}

	if firstTombstone != -1 {
		t.buckets[firstTombstone] = bucket{state: bucketOccupied, assoc: assoc}
		t.size++
		return true
	}

	// Table reports full rather than resizing; callers treat this as a
	// programming-invariant violation.
	return false
}

// Lookup performs a case-sensitive exact match on lval.
func (t *Table) Lookup(lval string) (*Association, bool) {
	if !t.huge {
		for _, a := range t.tiny {
			if a.Lval == lval {
				return a, true
			}
		}
		return nil, false
	}

	key := lowerHashKey(lval)
	start := oatHash(key, len(t.buckets))
	for i := 0; i < len(t.buckets); i++ {
		idx := (start + i) % len(t.buckets)
		b := t.buckets[idx]
		switch b.state {
		case bucketEmpty:
			return nil, false
		case bucketOccupied:
			if b.assoc.Lval == lval {
				return b.assoc, true
			}
		case bucketTombstone:
			// skip, lookups do not stop at a tombstone
		}
	}
	return nil, false
}

// Delete removes lval if present, returning whether it was found. In a
// Tiny table the tail is shifted down to close the gap; in a Huge table
// the slot becomes a tombstone that later lookups skip and later
// inserts may reuse.
func (t *Table) Delete(lval string) bool {
	if !t.huge {
		for i, a := range t.tiny {
			if a.Lval == lval {
				t.tiny = append(t.tiny[:i], t.tiny[i+1:]...)
				t.size--
				return true
			}
		}
		return false
	}

	key := lowerHashKey(lval)
	start := oatHash(key, len(t.buckets))
	for i := 0; i < len(t.buckets); i++ {
		idx := (start + i) % len(t.buckets)
		b := t.buckets[idx]
		switch b.state {
		case bucketEmpty:
			return false
		case bucketOccupied:
			if b.assoc.Lval == lval {
				t.buckets[idx] = bucket{state: bucketTombstone}
				t.size--
				return true
			}
		}
	}
	return false
}

// Clear destroys all entries and resets the table to empty. The table
// remains in whatever representation (Tiny/Huge) it was in; promotion
// is one-way even across a Clear, an established Huge table is never
// demoted.
func (t *Table) Clear() {
	if t.huge {
		for i := range t.buckets {
			t.buckets[i] = bucket{}
		}
	} else {
		t.tiny = t.tiny[:0]
	}
	t.size = 0
}

// Size returns the number of live entries.
func (t *Table) Size() int { return t.size }

// IsHuge reports whether the table has been promoted to the
// open-addressed representation.
func (t *Table) IsHuge() bool { return t.huge }

// CopyFrom re-inserts every live entry of other into t via Insert, so
// key-uniqueness is respected (an lval already present in t is left
// untouched, matching Insert's no-overwrite contract).
func (t *Table) CopyFrom(other *Table) {
	it := other.Iterator()
	for {
		a, ok := it.Next()
		if !ok {
			return
		}
		t.Insert(a.Lval, a.Rval, a.Datatype)
	}
}

// Iterator yields each live Association exactly once. It is safe against
// concurrent reads of the same table only.
type Iterator struct {
	t   *Table
	idx int
}

// Iterator returns a fresh iterator over t's current live entries.
func (t *Table) Iterator() *Iterator {
	return &Iterator{t: t}
}

// Next returns the next live Association, or ok=false when exhausted.
func (it *Iterator) Next() (*Association, bool) {
	if !it.t.huge {
		if it.idx >= len(it.t.tiny) {
			return nil, false
		}
		a := it.t.tiny[it.idx]
		it.idx++
		return a, true
	}

	for it.idx < len(it.t.buckets) {
		b := it.t.buckets[it.idx]
		it.idx++
		if b.state == bucketOccupied {
			return b.assoc, true
		}
	}
	return nil, false
}
