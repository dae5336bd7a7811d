package rval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneIndependence(t *testing.T) {
	src := List(Scalar("a"), Scalar("b"))
	clone := Clone(src, nil)

	clone.List[0] = Scalar("mutated")

	assert.Equal(t, "a", src.List[0].Scalar, "mutating the clone must not affect the source")
	assert.Equal(t, "mutated", clone.List[0].Scalar)
}

type fakeResolver map[string][]Rval

func (f fakeResolver) ResolveList(name string) ([]Rval, bool) {
	v, ok := f[name]
	return v, ok
}

func TestCloneAutoDereferencesNakedList(t *testing.T) {
	resolver := fakeResolver{
		"inner": []Rval{Scalar("x"), Scalar("y")},
	}
	src := List(Scalar("a"), Scalar("@(inner)"), Scalar("b"))

	got := Clone(src, resolver)

	want := []Rval{Scalar("a"), Scalar("x"), Scalar("y"), Scalar("b")}
	assert.Equal(t, want, got.List)
}

func TestCloneLeavesUnresolvableNakedListLiteral(t *testing.T) {
	src := List(Scalar("@(undefined)"))
	got := Clone(src, fakeResolver{})
	assert.Equal(t, []Rval{Scalar("@(undefined)")}, got.List)
}

func TestEqualInconclusiveOnUnexpandedReference(t *testing.T) {
	a := Scalar("$(host)")
	b := Scalar("$(host)")
	assert.Equal(t, Inconclusive, Equal(a, b))
}

func TestEqualScalars(t *testing.T) {
	assert.Equal(t, True, Equal(Scalar("x"), Scalar("x")))
	assert.Equal(t, False, Equal(Scalar("x"), Scalar("y")))
}

func TestEqualListsInconclusiveIsSticky(t *testing.T) {
	a := List(Scalar("a"), Scalar("$(x)"))
	b := List(Scalar("a"), Scalar("$(x)"))
	assert.Equal(t, Inconclusive, Equal(a, b))

	c := List(Scalar("a"), Scalar("different"))
	assert.Equal(t, Inconclusive, Equal(a, c), "an expandable scalar on either side keeps the comparison inconclusive")

	d := List(Scalar("a"), Scalar("plain"))
	e := List(Scalar("a"), Scalar("different"))
	assert.Equal(t, False, Equal(d, e))
}

func TestEqualFnCallIsInconclusiveUnlessSamePointer(t *testing.T) {
	call := Func("now")
	assert.Equal(t, True, Equal(call, call))

	other := Func("now")
	assert.Equal(t, Inconclusive, Equal(call, other))
}

func TestContainsSelfReference(t *testing.T) {
	v := Scalar("a $(x) b")
	assert.True(t, ContainsSelfReference(v, "x"))
	assert.False(t, ContainsSelfReference(v, "y"))

	listed := List(Scalar("fine"), Scalar("@(x)"))
	assert.True(t, ContainsSelfReference(listed, "x"))
}

func TestRlistSplitAndLength(t *testing.T) {
	s := Scalar("a,b,,c")
	split := SplitOnChar(s, ",")
	assert.Equal(t, 4, Length(split))

	re, err := SplitOnRegex(s, ",+", 0, false)
	assert.NoError(t, err)
	assert.Equal(t, 3, Length(re))
}

func TestRlistAppendPrepend(t *testing.T) {
	l := List(Scalar("b"))
	appended := Append(l, Scalar("c"))
	prepended := Prepend(appended, Scalar("a"))

	assert.Equal(t, 1, Length(l), "original list must be untouched")
	assert.Equal(t, []Rval{Scalar("a"), Scalar("b"), Scalar("c")}, prepended.List)
}

func TestPrintAndParseShownRoundTrip(t *testing.T) {
	l := List(Scalar("a"), Scalar("b, with comma"))
	printed := Print(l)
	assert.Equal(t, `{ 'a', 'b, with comma' }`, printed)

	parsed := ParseShown(printed)
	assert.Equal(t, l.List, parsed.List)
}
