package pool

import (
	"testing"

	"github.com/grovestate/promised/pkg/copyproto"
	"github.com/stretchr/testify/assert"
)

func TestGetIdleReturnsFalseWhenBusy(t *testing.T) {
	p := New(Config{})
	conn := &copyproto.AgentConnection{RemoteIP: "10.0.0.1"}
	p.entries["10.0.0.1"] = &entry{conn: conn, busy: true}

	_, ok := p.GetIdle("10.0.0.1")
	assert.False(t, ok)
}

func TestGetIdleReturnsConnectionAndMarksBusy(t *testing.T) {
	p := New(Config{})
	conn := &copyproto.AgentConnection{RemoteIP: "10.0.0.1"}
	p.entries["10.0.0.1"] = &entry{conn: conn}

	got, ok := p.GetIdle("10.0.0.1")
	assert.True(t, ok)
	assert.Same(t, conn, got)

	_, ok = p.GetIdle("10.0.0.1")
	assert.False(t, ok, "a busy entry must not be handed out twice")
}

func TestMarkBusyFreeReturnsConnectionToIdle(t *testing.T) {
	p := New(Config{})
	conn := &copyproto.AgentConnection{RemoteIP: "10.0.0.1"}
	p.entries["10.0.0.1"] = &entry{conn: conn, busy: true}

	p.MarkBusyFree(conn)

	_, ok := p.GetIdle("10.0.0.1")
	assert.True(t, ok)
}

func TestMarkOfflinePropagates(t *testing.T) {
	p := New(Config{})
	p.MarkOffline("10.0.0.5")

	_, ok := p.GetIdle("10.0.0.5")
	assert.False(t, ok)

	idle, busy, offline := p.Snapshot()
	assert.Equal(t, 0, idle)
	assert.Equal(t, 0, busy)
	assert.Equal(t, 1, offline)
}

func TestOpenForSkipsOfflineServerWithoutDialing(t *testing.T) {
	p := New(Config{})
	p.MarkOffline("unreachable.example")

	_, _, err := p.OpenFor([]string{"unreachable.example"}, false)
	assert.Error(t, err, "the only candidate is offline, so OpenFor must fail without a new connect attempt")
}

func TestDestroyRemovesEntry(t *testing.T) {
	p := New(Config{})
	conn := &copyproto.AgentConnection{RemoteIP: "10.0.0.1"}
	p.entries["10.0.0.1"] = &entry{conn: conn}

	p.Destroy(conn)

	_, ok := p.GetIdle("10.0.0.1")
	assert.False(t, ok)
}

func TestBackgroundCapBlocksExcessSlots(t *testing.T) {
	p := New(Config{BackgroundCap: 1})
	assert.True(t, p.acquireBackgroundSlot())
	assert.False(t, p.acquireBackgroundSlot())
	p.releaseBackgroundSlot()
	assert.True(t, p.acquireBackgroundSlot())
}
