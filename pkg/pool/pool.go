package pool

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/grovestate/promised/pkg/copyproto"
	"github.com/grovestate/promised/pkg/log"
	"github.com/grovestate/promised/pkg/metrics"
)

// entry is one server's cached connection state: either an
// authenticated connection (idle or leased), or an offline marker left
// behind by a failed connect attempt.
type entry struct {
	conn    *copyproto.AgentConnection
	busy    bool
	offline bool
}

// Config carries the dial/handshake parameters every connection the
// pool opens needs.
type Config struct {
	Handshake copyproto.HandshakeConfig
	KeyCache  *copyproto.ServerKeyCache

	// DialTimeout bounds the non-blocking connect phase.
	DialTimeout time.Duration

	// ForceIPv4 disables the default IPv6-preferred address
	// selection, for sites whose copy-protocol servers are not
	// reachable over IPv6.
	ForceIPv4 bool

	// LocalInterface, if set, binds the outbound socket to a named
	// local interface/address before connecting.
	LocalInterface string

	// BackgroundCap bounds how many connections may be leased to
	// "background" promises concurrently; foreground promises are
	// never subject to this cap.
	BackgroundCap int
}

// Pool is the process-wide ConnectionPool.
type Pool struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry

	resolveMu sync.Mutex

	bgMu     sync.Mutex
	bgActive int
}

// New returns an empty pool.
func New(cfg Config) *Pool {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	return &Pool{cfg: cfg, entries: make(map[string]*entry)}
}

// OpenFor walks servers in order and returns the first connection it
// can either reuse or establish. A server already marked offline is
// skipped without a connect attempt. If background is true and the
// pool is already at its background cap, every candidate is skipped
// and OpenFor returns an error -- the caller should treat this as
// "try again later", not as every server being unreachable.
func (p *Pool) OpenFor(servers []string, background bool) (*copyproto.AgentConnection, string, error) {
	if background {
		if !p.acquireBackgroundSlot() {
			return nil, "", fmt.Errorf("pool: background thread cap reached")
		}
		defer p.releaseBackgroundSlot()
	}

	var lastErr error
	for _, server := range servers {
		p.mu.Lock()
		e, exists := p.entries[server]
		if exists && e.offline {
			p.mu.Unlock()
			continue
		}
		p.mu.Unlock()

		if conn, ok := p.GetIdle(server); ok {
			return conn, server, nil
		}

		conn, err := p.connectAndAuthenticate(server)
		if err != nil {
			lastErr = err
			p.MarkOffline(server)
			continue
		}

		p.mu.Lock()
		p.entries[server] = &entry{conn: conn, busy: true}
		p.mu.Unlock()
		p.refreshGauges()
		return conn, server, nil
	}

	if lastErr != nil {
		return nil, "", fmt.Errorf("pool: no server reachable: %w", lastErr)
	}
	return nil, "", fmt.Errorf("pool: no server candidates")
}

// GetIdle returns the cached connection for server if one exists and
// is not currently busy, marking it busy in the process. Returning a
// busy connection is forbidden; ok is false in that case exactly as if
// no entry existed.
func (p *Pool) GetIdle(server string) (*copyproto.AgentConnection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[server]
	if !ok || e.offline || e.conn == nil || e.busy {
		return nil, false
	}
	e.busy = true
	return e.conn, true
}

// MarkBusyFree flips conn's busy flag off, returning it to the idle
// pool for the next OpenFor/GetIdle call against the same server.
func (p *Pool) MarkBusyFree(conn *copyproto.AgentConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.conn == conn {
			e.busy = false
			return
		}
	}
}

// MarkOffline records server as unreachable for the remainder of the
// run. An existing cache entry's connection is replaced by the
// offline sentinel; a fresh entry is inserted if none existed.
func (p *Pool) MarkOffline(server string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries[server] = &entry{offline: true}
	log.WithComponent("pool").Warn().Str("server", server).Msg("marking server offline for this run")
	p.refreshGaugesLocked()
}

// Destroy disconnects conn and removes its cache entry entirely, so a
// later OpenFor for the same server dials fresh rather than reusing
// anything.
func (p *Pool) Destroy(conn *copyproto.AgentConnection) {
	p.mu.Lock()
	var server string
	for key, e := range p.entries {
		if e.conn == conn {
			server = key
			break
		}
	}
	if server != "" {
		delete(p.entries, server)
	}
	p.mu.Unlock()

	_ = conn.Close()
	p.refreshGauges()
}

// CleanupAll disconnects and forgets every cached connection.
func (p *Pool) CleanupAll() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*entry)
	p.mu.Unlock()

	for _, e := range entries {
		if e.conn != nil {
			_ = e.conn.Close()
		}
	}
	p.refreshGauges()
}

// Snapshot reports the current count of idle, busy, and offline
// entries, for metrics collection.
func (p *Pool) Snapshot() (idle, busy, offline int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		switch {
		case e.offline:
			offline++
		case e.busy:
			busy++
		default:
			idle++
		}
	}
	return idle, busy, offline
}

func (p *Pool) refreshGauges() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshGaugesLocked()
}

func (p *Pool) refreshGaugesLocked() {
	var idle, busy, offline float64
	for _, e := range p.entries {
		switch {
		case e.offline:
			offline++
		case e.busy:
			busy++
		default:
			idle++
		}
	}
	metrics.ConnectionPoolConnections.WithLabelValues("idle").Set(idle)
	metrics.ConnectionPoolConnections.WithLabelValues("busy").Set(busy)
	metrics.ConnectionPoolConnections.WithLabelValues("offline").Set(offline)
}

func (p *Pool) acquireBackgroundSlot() bool {
	p.bgMu.Lock()
	defer p.bgMu.Unlock()
	if p.cfg.BackgroundCap > 0 && p.bgActive >= p.cfg.BackgroundCap {
		return false
	}
	p.bgActive++
	return true
}

func (p *Pool) releaseBackgroundSlot() {
	p.bgMu.Lock()
	defer p.bgMu.Unlock()
	p.bgActive--
}

// connectAndAuthenticate resolves server, dials it (preferring an
// IPv6 address unless cfg.ForceIPv4), and runs the authentication
// handshake. DNS resolution is serialised behind resolveMu since
// net.DefaultResolver is not guaranteed concurrency-safe on every
// platform this agent targets.
func (p *Pool) connectAndAuthenticate(server string) (*copyproto.AgentConnection, error) {
	addr, err := p.resolve(server)
	if err != nil {
		return nil, fmt.Errorf("pool: resolve %s: %w", server, err)
	}

	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	if p.cfg.LocalInterface != "" {
		localAddr, err := net.ResolveTCPAddr("tcp", p.cfg.LocalInterface+":0")
		if err == nil {
			dialer.LocalAddr = localAddr
		}
	}

	conn, err := copyproto.DialWithDialer(&dialer, net.JoinHostPort(addr, "5308"), p.cfg.Handshake, p.cfg.KeyCache)
	if err != nil {
		metrics.ConnectionHandshakesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.ConnectionHandshakesTotal.WithLabelValues("ok").Inc()
	return conn, nil
}

// resolve looks up server's addresses and returns the address this
// pool prefers: the first IPv6 address unless ForceIPv4 is set or
// none exists, otherwise the first IPv4 address.
func (p *Pool) resolve(server string) (string, error) {
	if ip := net.ParseIP(server); ip != nil {
		return server, nil
	}

	p.resolveMu.Lock()
	defer p.resolveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, server)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", server)
	}

	preferred := func(ip net.IP) bool {
		isV6 := ip.To4() == nil
		if p.cfg.ForceIPv4 {
			return !isV6
		}
		return isV6
	}
	sort.SliceStable(addrs, func(i, j int) bool {
		return preferred(addrs[i].IP) && !preferred(addrs[j].IP)
	})

	return addrs[0].IP.String(), nil
}
