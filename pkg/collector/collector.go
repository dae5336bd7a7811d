package collector

import (
	"time"

	"github.com/grovestate/promised/pkg/lock"
	"github.com/grovestate/promised/pkg/metrics"
	"github.com/grovestate/promised/pkg/pool"
	"github.com/grovestate/promised/pkg/scope"
)

// Collector polls the scope store, lock manager, and connection pool
// and publishes their state as gauges, for the metrics none of those
// packages can cheaply update on every inline call.
type Collector struct {
	scopes *scope.Store
	locks  *lock.Manager
	pool   *pool.Pool

	stopCh chan struct{}
}

// New builds a collector over the given scope store, lock manager, and
// connection pool. Any of the three may be nil, in which case that
// component's metrics are simply not collected -- useful for a
// copy-only or lock-only process that never starts the others.
func New(scopes *scope.Store, locks *lock.Manager, p *pool.Pool) *Collector {
	return &Collector{
		scopes: scopes,
		locks:  locks,
		pool:   p,
		stopCh: make(chan struct{}),
	}
}

// Start begins periodic collection in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectScopeMetrics()
	c.collectLockMetrics()
	c.collectPoolMetrics()
}

func (c *Collector) collectScopeMetrics() {
	if c.scopes == nil {
		return
	}

	total, huge, tiny := c.scopes.Snapshot()
	metrics.ScopesTotal.Set(float64(total))
	metrics.HashTableRepresentation.WithLabelValues("tiny").Set(float64(tiny))
	metrics.HashTableRepresentation.WithLabelValues("huge").Set(float64(huge))
	metrics.StackFrameDepth.Set(float64(c.scopes.StackDepth()))
}

func (c *Collector) collectLockMetrics() {
	if c.locks == nil {
		return
	}

	held, err := c.locks.CountHeld()
	if err != nil {
		return
	}
	metrics.LocksHeldTotal.Set(float64(held))
}

func (c *Collector) collectPoolMetrics() {
	if c.pool == nil {
		return
	}

	// The pool already updates ConnectionPoolConnections inline on
	// every mutating call; polling here catches any drift and keeps
	// the gauge correct even if the process was started with
	// connections pre-populated by a caller bypassing the pool API.
	idle, busy, offline := c.pool.Snapshot()
	metrics.ConnectionPoolConnections.WithLabelValues("idle").Set(float64(idle))
	metrics.ConnectionPoolConnections.WithLabelValues("busy").Set(float64(busy))
	metrics.ConnectionPoolConnections.WithLabelValues("offline").Set(float64(offline))
}
