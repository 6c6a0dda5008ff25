package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for oracle calls, record writes and table builds.
// All methods are safe on a nil receiver.
type Metrics struct {
	// Oracle calls by provider and outcome (ok, error, cached)
	OracleCalls *prometheus.CounterVec

	// Oracle round-trip latency by provider
	OracleLatency *prometheus.HistogramVec

	// Rules the oracle actually answered per validated word
	RulesAnswered prometheus.Histogram

	// Records written by origin (validate, api)
	RecordsSaved *prometheus.CounterVec

	// Records skipped as corrupt during the last matrix build
	RecordsSkipped prometheus.Gauge

	// Rows in the most recently built matrix
	MatrixRows prometheus.Gauge
}

// New creates a Metrics instance registered on reg.
// A nil reg uses the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		OracleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wordrules_oracle_calls_total",
			Help: "Oracle calls by provider and outcome",
		}, []string{"provider", "outcome"}),

		OracleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wordrules_oracle_duration_seconds",
			Help:    "Duration of oracle calls by provider",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"provider"}),

		RulesAnswered: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordrules_rules_answered",
			Help:    "Rules answered by the oracle per validated word",
			Buckets: []float64{0, 25, 50, 75, 100, 125, 140, 149, 150},
		}),

		RecordsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wordrules_records_saved_total",
			Help: "Word records written by origin",
		}, []string{"origin"}),

		RecordsSkipped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wordrules_matrix_records_skipped",
			Help: "Corrupt records excluded from the last matrix build",
		}),

		MatrixRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wordrules_matrix_rows",
			Help: "Rows in the last built word x rule matrix",
		}),
	}
}

// ObserveOracle records one oracle call
func (m *Metrics) ObserveOracle(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.OracleCalls.WithLabelValues(provider, outcome).Inc()
	if outcome != "cached" {
		m.OracleLatency.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// ObserveAnswered records how many rules a reply covered
func (m *Metrics) ObserveAnswered(n int) {
	if m != nil {
		m.RulesAnswered.Observe(float64(n))
	}
}

// IncrementSaved counts a record write
func (m *Metrics) IncrementSaved(origin string) {
	if m != nil {
		m.RecordsSaved.WithLabelValues(origin).Inc()
	}
}

// SetMatrix records the shape of the last build
func (m *Metrics) SetMatrix(rows, skipped int) {
	if m == nil {
		return
	}
	m.MatrixRows.Set(float64(rows))
	m.RecordsSkipped.Set(float64(skipped))
}
