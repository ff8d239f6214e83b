package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the finance core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	recomputesTotal   *prometheus.CounterVec
	duplicateWarnings *prometheus.CounterVec
	transfersTotal    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// LedgerSnapshot is a point-in-time view of ledger health counters, served
// by the ops endpoint.
type LedgerSnapshot struct {
	Recomputes        float64 `json:"recomputes"`
	DuplicateWarnings float64 `json:"duplicate_warnings"`
	TransfersOK       float64 `json:"transfers_ok"`
	TransfersFailed   float64 `json:"transfers_failed"`
	ExternalErrors    float64 `json:"external_errors"`
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
				Name:    "finance_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_external_errors_total",
				Help: "Total errors from the data provider and other collaborators.",
			},
			[]string{"service"},
		),
		recomputesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_balance_recomputes_total",
				Help: "Total authoritative balance recomputations.",
			},
			[]string{"trigger"},
		),
		duplicateWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_duplicate_warnings_total",
				Help: "Total probable-duplicate transaction warnings.",
			},
			[]string{"collection"},
		),
		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_transfers_total",
				Help: "Total transfer attempts by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
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

// IncrRecompute increments the balance recompute counter. The trigger label
// names the correction path that forced the recompute (update, cancel,
// remove, manual).
func (m *Metrics) IncrRecompute(trigger string) {
	m.recomputesTotal.WithLabelValues(trigger).Inc()
}

// IncrDuplicateWarning increments the duplicate-transaction warning counter.
func (m *Metrics) IncrDuplicateWarning(collection string) {
	m.duplicateWarnings.WithLabelValues(collection).Inc()
}

// IncrTransfer increments the transfer counter with an outcome label.
func (m *Metrics) IncrTransfer(outcome string) {
	m.transfersTotal.WithLabelValues(outcome).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// LedgerSnapshot gathers current counter values for the GET /v1/ops/ledger
// endpoint. Prometheus counters expose cumulative values.
func (m *Metrics) LedgerSnapshot() *LedgerSnapshot {
	recomputes := getCounterValue(m.recomputesTotal, "update") +
		getCounterValue(m.recomputesTotal, "cancel") +
		getCounterValue(m.recomputesTotal, "remove") +
		getCounterValue(m.recomputesTotal, "manual")

	return &LedgerSnapshot{
		Recomputes:        recomputes,
		DuplicateWarnings: getCounterValue(m.duplicateWarnings, "transactions"),
		TransfersOK:       getCounterValue(m.transfersTotal, "ok"),
		TransfersFailed:   getCounterValue(m.transfersTotal, "failed"),
		ExternalErrors:    getCounterValue(m.externalErrors, "provider"),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
