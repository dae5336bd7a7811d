package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scope store metrics

	ScopesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promised_scopes_total",
			Help: "Total number of live variable scopes",
		},
	)

	HashTableRepresentation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "promised_hashtable_scopes",
			Help: "Number of scopes whose hashtable is in the tiny or huge representation",
		},
		[]string{"representation"},
	)

	StackFrameDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promised_this_stack_depth",
			Help: "Current depth of the pushed \"this\" scope stack",
		},
	)

	// Iteration engine metrics

	IterationSubstitutionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promised_iteration_substitutions_total",
			Help: "Total number of concrete promise substitutions produced by the iteration engine",
		},
	)

	IterationPromisesSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promised_iteration_promises_skipped_total",
			Help: "Total number of promises the iteration engine could not expand, by reason",
		},
		[]string{"reason"},
	)

	// Lock manager metrics

	LocksHeldTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promised_locks_held_total",
			Help: "Current number of held transaction locks",
		},
	)

	LockAcquireTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promised_lock_acquire_total",
			Help: "Total number of lock acquire attempts, by outcome",
		},
		[]string{"outcome"}, // acquired, skipped_if_elapsed, skipped_held, reclaimed
	)

	LockAcquireDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promised_lock_acquire_duration_seconds",
			Help:    "Time taken evaluating one lock acquire call",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Connection pool metrics

	ConnectionPoolConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "promised_pool_connections",
			Help: "Number of cached connections by state",
		},
		[]string{"state"}, // idle, busy, offline
	)

	ConnectionHandshakesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promised_handshakes_total",
			Help: "Total number of copy-protocol authentication handshakes attempted, by outcome",
		},
		[]string{"outcome"}, // ok, failed
	)

	// Copy protocol metrics

	CopyBytesTransferredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promised_copy_bytes_transferred_total",
			Help: "Total number of bytes received via the GET verb",
		},
	)

	CopyFilesTransferredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promised_copy_files_transferred_total",
			Help: "Total number of files successfully copied",
		},
	)

	CopyChecksumMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promised_copy_checksum_mismatch_total",
			Help: "Total number of transfers rejected by post-transfer verification",
		},
	)

	StatCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promised_statcache_total",
			Help: "Total number of stat cache lookups, by outcome",
		},
		[]string{"outcome"}, // hit, miss, negative_hit
	)

	HardLinksPreservedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promised_hardlinks_preserved_total",
			Help: "Total number of destination paths hard-linked to a previously copied inode",
		},
	)

	// Dispatcher / promise result metrics

	PromiseResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promised_promise_results_total",
			Help: "Total number of promises evaluated, by result",
		},
		[]string{"promise_type", "result"},
	)

	PromiseEvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promised_promise_evaluation_duration_seconds",
			Help:    "Time taken to dispatch and converge one expanded promise",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"promise_type"},
	)

	BundleRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promised_bundle_run_duration_seconds",
			Help:    "Time taken to evaluate every promise in one bundle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ScopesTotal)
	prometheus.MustRegister(HashTableRepresentation)
	prometheus.MustRegister(StackFrameDepth)
	prometheus.MustRegister(IterationSubstitutionsTotal)
	prometheus.MustRegister(IterationPromisesSkippedTotal)
	prometheus.MustRegister(LocksHeldTotal)
	prometheus.MustRegister(LockAcquireTotal)
	prometheus.MustRegister(LockAcquireDuration)
	prometheus.MustRegister(ConnectionPoolConnections)
	prometheus.MustRegister(ConnectionHandshakesTotal)
	prometheus.MustRegister(CopyBytesTransferredTotal)
	prometheus.MustRegister(CopyFilesTransferredTotal)
	prometheus.MustRegister(CopyChecksumMismatchTotal)
	prometheus.MustRegister(StatCacheHitsTotal)
	prometheus.MustRegister(HardLinksPreservedTotal)
	prometheus.MustRegister(PromiseResultsTotal)
	prometheus.MustRegister(PromiseEvaluationDuration)
	prometheus.MustRegister(BundleRunDuration)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
