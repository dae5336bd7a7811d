package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestAcquireYieldRoundTrip(t *testing.T) {
	m := openTestManager(t)
	now := time.Unix(1_700_000_000, 0)

	h, err := m.Acquire("edit_line", "/etc/motd", "web01", "mybundle", now, time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, h)

	rec, found, err := m.readLock(h.Key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotZero(t, rec.Pid)

	require.NoError(t, m.Yield(h, now.Add(time.Second)))

	_, found, err = m.readLock(h.Key)
	require.NoError(t, err)
	assert.False(t, found, "yield must remove the lock entry")

	_, found, err = m.readCompletion(h.Key)
	require.NoError(t, err)
	assert.True(t, found, "yield must write a completion entry")
}

func TestAcquireSkipsWhenIfElapsedNotReached(t *testing.T) {
	m := openTestManager(t)
	now := time.Unix(1_700_000_000, 0)

	h, err := m.Acquire("edit_line", "/etc/motd", "web01", "mybundle", now, time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.NoError(t, m.Yield(h, now))

	h2, err := m.Acquire("edit_line", "/etc/motd", "web01", "mybundle", now.Add(30*time.Second), time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, h2, "a re-acquire before ifElapsed has passed must be skipped")
}

func TestAcquireReturnsNilWhenLockAlreadyHeldAndNotExpired(t *testing.T) {
	m := openTestManager(t)
	now := time.Unix(1_700_000_000, 0)

	h, err := m.Acquire("edit_line", "/etc/motd", "web01", "mybundle", now, time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, h)

	h2, err := m.Acquire("edit_line", "/etc/motd", "web01", "mybundle", now.Add(time.Minute), time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, h2, "a concurrently held, unexpired lock must block a second acquire")
}

func TestAcquireReclaimsExpiredLockFromDeadPid(t *testing.T) {
	m := openTestManager(t)
	now := time.Unix(1_700_000_000, 0)

	key := lockKey("web01", "mybundle", "edit_line", "/etc/motd")
	require.NoError(t, m.writeLock(key, LockRecord{Pid: 999999, AcquiredAt: now.Unix()}))

	h, err := m.Acquire("edit_line", "/etc/motd", "web01", "mybundle", now.Add(2*time.Hour), time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, h, "an expired lock held by a nonexistent pid must be reclaimed")

	rec, found, err := m.readLock(h.Key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEqual(t, uint32(999999), rec.Pid, "the reclaimed record must carry this process's own pid")
}

func TestPurgeExpiredRemovesOnlyExpiredLocks(t *testing.T) {
	m := openTestManager(t)
	now := time.Unix(1_700_000_000, 0)

	freshKey := "fresh-key"
	staleKey := "stale-key"
	require.NoError(t, m.writeLock(freshKey, LockRecord{Pid: 1, AcquiredAt: now.Unix()}))
	require.NoError(t, m.writeLock(staleKey, LockRecord{Pid: 2, AcquiredAt: now.Add(-2 * time.Hour).Unix()}))

	n, err := m.PurgeExpired(now, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, found, _ := m.readLock(staleKey)
	assert.False(t, found)
	_, found, _ = m.readLock(freshKey)
	assert.True(t, found)
}

func TestLockKeyIsCanonicalizedAndDeterministic(t *testing.T) {
	a := lockKey("web 01!", "my bundle", "edit_line", "/etc/motd")
	b := lockKey("web 01!", "my bundle", "edit_line", "/etc/motd")
	assert.Equal(t, a, b)
	assert.NotContains(t, a, " ")
	assert.NotContains(t, a, "!")
}

func TestYieldOnNilHandleIsNoOp(t *testing.T) {
	m := openTestManager(t)
	assert.NoError(t, m.Yield(nil, time.Now()))
}
