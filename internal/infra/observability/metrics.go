package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	transactions    *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	drains          prometheus.Counter
	syncEntries     *prometheus.CounterVec
	backfilledIDs   prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salon_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_external_errors_total",
				Help: "Total errors from storage backends.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_transactions_total",
				Help: "Sales received, by outcome.",
			},
			[]string{"outcome"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_notifications_total",
				Help: "Completed-sale notifications, by result.",
			},
			[]string{"result"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "salon_sync_queue_depth",
				Help: "Sales waiting in the offline queue.",
			},
		),
		drains: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "salon_sync_drains_total",
				Help: "Offline queue drains started.",
			},
		),
		syncEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_sync_entries_total",
				Help: "Offline entries replayed, by result.",
			},
			[]string{"result"},
		),
		backfilledIDs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "salon_backfilled_ids_total",
				Help: "Rows that received a generated ID.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrTransaction counts a sale by outcome: persisted, queued or rejected.
func (m *Metrics) IncrTransaction(outcome string) {
	m.transactions.WithLabelValues(outcome).Inc()
}

// IncrNotification counts a notification by result.
func (m *Metrics) IncrNotification(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

// SetQueueDepth publishes the number of pending offline entries.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// IncrDrain counts a drain run.
func (m *Metrics) IncrDrain() {
	m.drains.Inc()
}

// AddSyncEntries counts replayed entries by result: synced or failed.
func (m *Metrics) AddSyncEntries(result string, n int) {
	m.syncEntries.WithLabelValues(result).Add(float64(n))
}

// AddBackfilledIDs counts generated IDs written back to storage.
func (m *Metrics) AddBackfilledIDs(n int) {
	m.backfilledIDs.Add(float64(n))
}

// SyncSnapshot returns the cumulative drain counters for the sync status
// endpoint.
func (m *Metrics) SyncSnapshot() (drains, synced, failed int64) {
	drains = int64(metricValue(m.drains))
	synced = int64(metricValue(m.syncEntries.WithLabelValues("synced")))
	failed = int64(metricValue(m.syncEntries.WithLabelValues("failed")))
	return drains, synced, failed
}

// TransactionCount returns the cumulative count of sales with outcome.
func (m *Metrics) TransactionCount(outcome string) int64 {
	return int64(metricValue(m.transactions.WithLabelValues(outcome)))
}

// metricValue extracts the current value of a counter or gauge.
func metricValue(c prometheus.Metric) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
