package expand

import (
	"testing"

	"github.com/grovestate/promised/pkg/hashtable"
	"github.com/grovestate/promised/pkg/rval"
	"github.com/grovestate/promised/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandScalarSubstitutesResolvedReference(t *testing.T) {
	s := scope.NewStore()
	require.NoError(t, s.PutScalar("edit_line", "host", rval.Scalar("web01"), hashtable.DataString))

	out, resolved := ExpandScalar(s, "edit_line", "connecting to $(host) now")
	assert.True(t, resolved)
	assert.Equal(t, "connecting to web01 now", out)
}

func TestExpandScalarBraceForm(t *testing.T) {
	s := scope.NewStore()
	require.NoError(t, s.PutScalar("edit_line", "host", rval.Scalar("web01"), hashtable.DataString))

	out, resolved := ExpandScalar(s, "edit_line", "${host}")
	assert.True(t, resolved)
	assert.Equal(t, "web01", out)
}

func TestExpandScalarLeavesUndefinedReferenceVerbatim(t *testing.T) {
	s := scope.NewStore()
	out, resolved := ExpandScalar(s, "edit_line", "value is $(missing)")
	assert.False(t, resolved)
	assert.Equal(t, "value is $(missing)", out)
}

func TestExpandScalarLeavesListReferenceVerbatim(t *testing.T) {
	s := scope.NewStore()
	require.NoError(t, s.PutList("edit_line", "items", rval.List(rval.Scalar("a"), rval.Scalar("b")), hashtable.DataStringList))

	out, resolved := ExpandScalar(s, "edit_line", "value is $(items)")
	assert.False(t, resolved)
	assert.Equal(t, "value is $(items)", out)
}

func TestExpandScalarLeavesNakedListTokenUntouched(t *testing.T) {
	s := scope.NewStore()
	require.NoError(t, s.PutList("edit_line", "items", rval.List(rval.Scalar("a")), hashtable.DataStringList))

	out, resolved := ExpandScalar(s, "edit_line", "@(items)")
	assert.True(t, resolved, "a naked-list token alone is left untouched and does not count against resolution")
	assert.Equal(t, "@(items)", out)
}

func TestExpandScalarQualifiedReference(t *testing.T) {
	s := scope.NewStore()
	require.NoError(t, s.PutScalar("other", "port", rval.Scalar("8080"), hashtable.DataString))

	out, resolved := ExpandScalar(s, "edit_line", "$(other.port)")
	assert.True(t, resolved)
	assert.Equal(t, "8080", out)
}

func TestIsExpandable(t *testing.T) {
	assert.True(t, IsExpandable("$(x)"))
	assert.True(t, IsExpandable("${x}"))
	assert.True(t, IsExpandable("@(x)"))
	assert.False(t, IsExpandable("plain string"))
}

func TestSplitQualifiedName(t *testing.T) {
	scopeName, lval, ok := SplitQualifiedName("mybundle.myvar")
	assert.True(t, ok)
	assert.Equal(t, "mybundle", scopeName)
	assert.Equal(t, "myvar", lval)

	_, _, ok = SplitQualifiedName("myvar")
	assert.False(t, ok)
}

func TestNakedListName(t *testing.T) {
	name, ok := NakedListName("@(items)")
	assert.True(t, ok)
	assert.Equal(t, "items", name)

	_, ok = NakedListName("prefix @(items)")
	assert.False(t, ok)

	_, ok = NakedListName("$(items)")
	assert.False(t, ok)
}

func TestMangledIterableNameRoundTrips(t *testing.T) {
	s := scope.NewStore()
	require.NoError(t, s.PutScalar("edit_line", "ns*bundle#k_0", rval.Scalar("val"), hashtable.DataString))

	out, resolved := ExpandScalar(s, "edit_line", "$(ns*bundle#k_0)")
	assert.True(t, resolved)
	assert.Equal(t, "val", out)
}
