package hardlink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleLinkSourceNeverTracked(t *testing.T) {
	c := New()
	linked, err := c.Preserve(1, 7, 42, "/dest/a")
	require.NoError(t, err)
	assert.False(t, linked)
	assert.Equal(t, 0, c.Len())
}

func TestFirstOccurrenceRecordsWithoutLinking(t *testing.T) {
	c := New()
	linked, err := c.Preserve(2, 7, 42, "/dest/a")
	require.NoError(t, err)
	assert.False(t, linked)
	assert.Equal(t, 1, c.Len())
}

func TestSecondOccurrenceHardLinksToFirst(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a")
	second := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(first, []byte("payload"), 0o600))

	c := New()

	linked, err := c.Preserve(2, 7, 42, first)
	require.NoError(t, err)
	assert.False(t, linked)

	linked, err = c.Preserve(2, 7, 42, second)
	require.NoError(t, err)
	assert.True(t, linked)

	info1, err := os.Stat(first)
	require.NoError(t, err)
	info2, err := os.Stat(second)
	require.NoError(t, err)
	assert.True(t, os.SameFile(info1, info2), "destination must share an inode with the first copy")
}

func TestSecondOccurrenceReplacesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a")
	second := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(first, []byte("payload"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("stale"), 0o600))

	c := New()
	_, err := c.Preserve(2, 7, 42, first)
	require.NoError(t, err)

	linked, err := c.Preserve(2, 7, 42, second)
	require.NoError(t, err)
	assert.True(t, linked)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDifferentInodesTrackedIndependently(t *testing.T) {
	c := New()
	_, err := c.Preserve(2, 7, 42, "/dest/a")
	require.NoError(t, err)
	_, err = c.Preserve(2, 7, 43, "/dest/b")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}
