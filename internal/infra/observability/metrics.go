package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	transactionsTotal *prometheus.CounterVec
	balanceDeltas     *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
}

// LedgerSnapshot is the JSON projection served by GET /v1/metrics/ledger.
type LedgerSnapshot struct {
	DebitsCommitted  int64   `json:"debits_committed"`
	CreditsCommitted int64   `json:"credits_committed"`
	Reversals        int64   `json:"reversals"`
	Rejected         int64   `json:"rejected"`
	ErrorRate        float64 `json:"error_rate"`
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
				Name:    "ledger_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_total",
				Help: "Ledger operations by type and outcome.",
			},
			[]string{"type", "status"},
		),
		balanceDeltas: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_balance_delta_minor_units_total",
				Help: "Sum of absolute balance deltas applied, by direction.",
			},
			[]string{"direction"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_store_errors_total",
				Help: "Total errors from the persistence layer.",
			},
			[]string{"op"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrTransaction increments the ledger operation counter.
func (m *Metrics) IncrTransaction(txType, status string) {
	m.transactionsTotal.WithLabelValues(txType, status).Inc()
}

// RecordBalanceDelta records an applied balance delta. Direction is derived
// from the sign; the magnitude accumulates per direction.
func (m *Metrics) RecordBalanceDelta(delta int64) {
	if delta < 0 {
		m.balanceDeltas.WithLabelValues("debit").Add(float64(-delta))
		return
	}
	m.balanceDeltas.WithLabelValues("credit").Add(float64(delta))
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// GetLedgerSnapshot returns a snapshot of ledger metrics suitable for the
// GET /v1/metrics/ledger endpoint.
func (m *Metrics) GetLedgerSnapshot() *LedgerSnapshot {
	// Prometheus counters expose cumulative values.
	debits := getCounterValue(m.transactionsTotal, "DB", "committed")
	credits := getCounterValue(m.transactionsTotal, "CD", "committed")
	reversals := getCounterValue(m.transactionsTotal, "DB", "reversed") +
		getCounterValue(m.transactionsTotal, "CD", "reversed")
	rejected := getCounterValue(m.transactionsTotal, "DB", "rejected") +
		getCounterValue(m.transactionsTotal, "CD", "rejected")

	total := debits + credits + rejected
	errorRate := float64(0)
	if total > 0 {
		errorRate = rejected / total
	}

	return &LedgerSnapshot{
		DebitsCommitted:  int64(debits),
		CreditsCommitted: int64(credits),
		Reversals:        int64(reversals),
		Rejected:         int64(rejected),
		ErrorRate:        errorRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for
// the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
