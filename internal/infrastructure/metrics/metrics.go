package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Sync metrics
	SyncCredentials  *prometheus.CounterVec
	SyncTransactions *prometheus.CounterVec
	SyncDuration     prometheus.Histogram

	// Categorization metrics
	CategorizationBatches   *prometheus.CounterVec
	CategorizedTransactions prometheus.Counter

	// Round-up metrics
	RoundUpDistributed prometheus.Counter
	RoundUpRuns        prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SyncCredentials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spareledger_sync_credentials_total",
				Help: "Credential sync attempts by outcome",
			},
			[]string{"status"},
		),
		SyncTransactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spareledger_sync_transactions_total",
				Help: "Provider transactions processed by result",
			},
			[]string{"result"},
		),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spareledger_sync_duration_seconds",
			Help:    "Duration of a single credential sync",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		CategorizationBatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spareledger_categorization_batches_total",
				Help: "Categorization batches by outcome",
			},
			[]string{"status"},
		),
		CategorizedTransactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "spareledger_categorized_transactions_total",
			Help: "Transactions labelled by the categorization gateway",
		}),

		RoundUpDistributed: factory.NewCounter(prometheus.CounterOpts{
			Name: "spareledger_roundup_distributed_total",
			Help: "Total amount credited to goals from round-ups",
		}),
		RoundUpRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "spareledger_roundup_runs_total",
			Help: "Round-up distributions that credited at least one goal",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spareledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spareledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spareledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spareledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}

// RecordSync implements usecase.MetricsRecorder.
func (m *Metrics) RecordSync(status string, duration time.Duration) {
	m.SyncCredentials.WithLabelValues(status).Inc()
	m.SyncDuration.Observe(duration.Seconds())
}

// RecordSyncedTransactions implements usecase.MetricsRecorder.
func (m *Metrics) RecordSyncedTransactions(result string, count int) {
	if count <= 0 {
		return
	}
	m.SyncTransactions.WithLabelValues(result).Add(float64(count))
}

// RecordCategorizationBatch implements usecase.MetricsRecorder.
func (m *Metrics) RecordCategorizationBatch(status string, processed int) {
	m.CategorizationBatches.WithLabelValues(status).Inc()
	if processed > 0 {
		m.CategorizedTransactions.Add(float64(processed))
	}
}

// RecordRoundUp implements usecase.MetricsRecorder.
func (m *Metrics) RecordRoundUp(distributed decimal.Decimal) {
	if !distributed.IsPositive() {
		return
	}
	m.RoundUpRuns.Inc()
	m.RoundUpDistributed.Add(distributed.InexactFloat64())
}
