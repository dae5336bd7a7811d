package hashtable

import (
	"fmt"
	"testing"

	"github.com/grovestate/promised/pkg/rval"
	"github.com/stretchr/testify/assert"
)

func TestInsertLookupRoundTrip(t *testing.T) {
	tbl := New()
	ok := tbl.Insert("foo", rval.Scalar("bar"), DataString)
	assert.True(t, ok)

	got, found := tbl.Lookup("foo")
	assert.True(t, found)
	assert.Equal(t, "bar", got.Rval.Scalar)
	assert.Equal(t, DataString, got.Datatype)
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	tbl := New()
	assert.True(t, tbl.Insert("foo", rval.Scalar("1"), DataString))
	assert.False(t, tbl.Insert("foo", rval.Scalar("2"), DataString))

	got, _ := tbl.Lookup("foo")
	assert.Equal(t, "1", got.Rval.Scalar, "duplicate insert must not overwrite")
}

func TestTinyToHugeTransitionPreservesAllEntries(t *testing.T) {
	tbl := New()
	for i := 0; i < 14; i++ {
		key := fmt.Sprintf("var%02d", i)
		assert.True(t, tbl.Insert(key, rval.Scalar(key), DataString))
	}
	assert.False(t, tbl.IsHuge(), "table must still be Tiny after 14 inserts")

	assert.True(t, tbl.Insert("var14", rval.Scalar("var14"), DataString))
	assert.True(t, tbl.IsHuge(), "15th insert must promote to Huge")

	for i := 0; i < 15; i++ {
		key := fmt.Sprintf("var%02d", i)
		got, found := tbl.Lookup(key)
		assert.Truef(t, found, "key %s must survive the Tiny->Huge promotion", key)
		assert.Equal(t, key, got.Rval.Scalar)
	}
	assert.Equal(t, 15, tbl.Size())
}

func TestTinyToHugeTransitionOrderIndependent(t *testing.T) {
	keys := []string{
		"zulu", "mike", "alpha", "delta", "echo", "foxtrot", "golf",
		"hotel", "india", "juliet", "kilo", "lima", "november", "oscar", "papa",
	}
	assert.Len(t, keys, 15)

	tbl := New()
	for _, k := range keys {
		assert.True(t, tbl.Insert(k, rval.Scalar(k), DataString))
	}
	assert.True(t, tbl.IsHuge())

	for _, k := range keys {
		_, found := tbl.Lookup(k)
		assert.Truef(t, found, "key %s missing after promotion", k)
	}
}

func TestDeleteThenInsertDifferentKeyReusesTombstone(t *testing.T) {
	tbl := New()
	for i := 0; i < 15; i++ {
		key := fmt.Sprintf("k%02d", i)
		tbl.Insert(key, rval.Scalar(key), DataString)
	}
	assert.True(t, tbl.IsHuge())
	sizeBefore := tbl.Size()

	assert.True(t, tbl.Delete("k05"))
	_, found := tbl.Lookup("k05")
	assert.False(t, found)

	assert.True(t, tbl.Insert("k99", rval.Scalar("new"), DataString))
	got, found := tbl.Lookup("k99")
	assert.True(t, found)
	assert.Equal(t, "new", got.Rval.Scalar)

	assert.Equal(t, sizeBefore, tbl.Size(), "delete then insert must not change net size")

	for i := 0; i < 15; i++ {
		if i == 5 {
			continue
		}
		key := fmt.Sprintf("k%02d", i)
		_, found := tbl.Lookup(key)
		assert.Truef(t, found, "key %s must still be reachable", key)
	}
}

func TestDeleteOnTinyShiftsTail(t *testing.T) {
	tbl := New()
	tbl.Insert("a", rval.Scalar("1"), DataString)
	tbl.Insert("b", rval.Scalar("2"), DataString)
	tbl.Insert("c", rval.Scalar("3"), DataString)

	assert.True(t, tbl.Delete("b"))
	assert.Equal(t, 2, tbl.Size())

	_, found := tbl.Lookup("b")
	assert.False(t, found)
	gotA, _ := tbl.Lookup("a")
	gotC, _ := tbl.Lookup("c")
	assert.Equal(t, "1", gotA.Rval.Scalar)
	assert.Equal(t, "3", gotC.Rval.Scalar)
}

func TestDeleteMissingKeyReturnsFalse(t *testing.T) {
	tbl := New()
	assert.False(t, tbl.Delete("missing"))
}

func TestClearResetsSizeButKeepsRepresentation(t *testing.T) {
	tbl := New()
	for i := 0; i < 15; i++ {
		key := fmt.Sprintf("k%02d", i)
		tbl.Insert(key, rval.Scalar(key), DataString)
	}
	assert.True(t, tbl.IsHuge())

	tbl.Clear()
	assert.Equal(t, 0, tbl.Size())
	assert.True(t, tbl.IsHuge(), "Clear must not demote a Huge table back to Tiny")

	assert.True(t, tbl.Insert("fresh", rval.Scalar("v"), DataString))
	got, found := tbl.Lookup("fresh")
	assert.True(t, found)
	assert.Equal(t, "v", got.Rval.Scalar)
}

func TestCopyFromSkipsExistingKeysAndTombstones(t *testing.T) {
	src := New()
	src.Insert("a", rval.Scalar("src-a"), DataString)
	src.Insert("b", rval.Scalar("src-b"), DataString)
	src.Insert("doomed", rval.Scalar("gone"), DataString)
	src.Delete("doomed")

	dst := New()
	dst.Insert("a", rval.Scalar("dst-a"), DataString)

	dst.CopyFrom(src)

	gotA, _ := dst.Lookup("a")
	assert.Equal(t, "dst-a", gotA.Rval.Scalar, "CopyFrom must not overwrite an existing destination key")

	gotB, found := dst.Lookup("b")
	assert.True(t, found)
	assert.Equal(t, "src-b", gotB.Rval.Scalar)

	_, found = dst.Lookup("doomed")
	assert.False(t, found, "a tombstoned key in the source must not resurrect in the destination")
}

func TestIteratorYieldsEveryLiveEntryExactlyOnce(t *testing.T) {
	tbl := New()
	want := map[string]bool{}
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("iter%02d", i)
		tbl.Insert(key, rval.Scalar(key), DataString)
		want[key] = true
	}
	tbl.Delete("iter05")
	delete(want, "iter05")

	seen := map[string]bool{}
	it := tbl.Iterator()
	for {
		a, ok := it.Next()
		if !ok {
			break
		}
		assert.Falsef(t, seen[a.Lval], "key %s yielded twice", a.Lval)
		seen[a.Lval] = true
	}
	assert.Equal(t, want, seen)
}

func TestLookupIsCaseSensitiveDespiteLowerCasedHashing(t *testing.T) {
	tbl := New()
	tbl.Insert("MixedCase", rval.Scalar("v"), DataString)

	_, found := tbl.Lookup("mixedcase")
	assert.False(t, found, "lookup must be case-sensitive on the stored key")

	got, found := tbl.Lookup("MixedCase")
	assert.True(t, found)
	assert.Equal(t, "v", got.Rval.Scalar)
}
