package statcache

import (
	"testing"

	"github.com/grovestate/promised/pkg/copyproto"
	"github.com/stretchr/testify/assert"
)

func TestLookupMissThenHit(t *testing.T) {
	c := New()

	_, found, _ := c.Lookup("srv1", "/etc/hosts")
	assert.False(t, found)

	c.Put("srv1", "/etc/hosts", copyproto.FileStat{Size: 42})

	stat, found, failed := c.Lookup("srv1", "/etc/hosts")
	assert.True(t, found)
	assert.False(t, failed)
	assert.Equal(t, int64(42), stat.Size)
}

func TestNegativeHitAvoidsReuse(t *testing.T) {
	c := New()
	c.PutFailed("srv1", "/root/.secret")

	_, found, failed := c.Lookup("srv1", "/root/.secret")
	assert.True(t, found)
	assert.True(t, failed)
	assert.Equal(t, 1, c.Len(), "a negative hit must not transmit a fresh probe or grow the cache")
}

func TestDistinctPathsAreIndependent(t *testing.T) {
	c := New()
	c.Put("srv1", "/a", copyproto.FileStat{Size: 1})
	c.Put("srv1", "/b", copyproto.FileStat{Size: 2})

	a, _, _ := c.Lookup("srv1", "/a")
	b, _, _ := c.Lookup("srv1", "/b")
	assert.Equal(t, int64(1), a.Size)
	assert.Equal(t, int64(2), b.Size)
}

func TestSameServerDifferentPathIsNotConfused(t *testing.T) {
	c := New()
	c.Put("srv1", "/etc/hosts", copyproto.FileStat{Size: 1})
	c.Put("srv2", "/etc/hosts", copyproto.FileStat{Size: 2})

	a, _, _ := c.Lookup("srv1", "/etc/hosts")
	b, _, _ := c.Lookup("srv2", "/etc/hosts")
	assert.Equal(t, int64(1), a.Size)
	assert.Equal(t, int64(2), b.Size)
}

func TestEffectiveModePrefersLinkModeWhenRequestingLink(t *testing.T) {
	st := copyproto.FileStat{Mode: 0100644, LinkMode: 0120777}
	assert.Equal(t, uint32(0120777), st.EffectiveMode(true))
	assert.Equal(t, uint32(0100644), st.EffectiveMode(false))
}

func TestEffectiveModeFallsBackWhenLinkModeUnset(t *testing.T) {
	st := copyproto.FileStat{Mode: 0100644}
	assert.Equal(t, uint32(0100644), st.EffectiveMode(true))
}
