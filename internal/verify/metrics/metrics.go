package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification service. All methods
// are nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	// Confirmation outcomes by result code
	ConfirmOutcome *prometheus.CounterVec

	// Assertions minted
	AssertionsIssued prometheus.Counter

	// Sessions removed by the retention sweeper
	SessionsSwept prometheus.Counter

	// Sweep run latency
	SweepLatency prometheus.Histogram
}

// New creates a Metrics instance with all verification metrics registered
// on the default registry.
func New() *Metrics {
	return &Metrics{
		ConfirmOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vpass_confirm_outcomes_total",
			Help: "Total confirmation attempts by outcome",
		}, []string{"outcome"}), // outcome: "completed", "otp_mismatch", "expired", ...

		AssertionsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vpass_assertions_issued_total",
			Help: "Total signed assertions minted for completed sessions",
		}),

		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vpass_sessions_swept_total",
			Help: "Total sessions deleted by the retention sweeper",
		}),

		SweepLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vpass_sweep_duration_seconds",
			Help:    "Duration of retention sweep runs",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// IncConfirmOutcome records one confirmation attempt outcome.
func (m *Metrics) IncConfirmOutcome(outcome string) {
	if m != nil {
		m.ConfirmOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncAssertionsIssued records a minted assertion.
func (m *Metrics) IncAssertionsIssued() {
	if m != nil {
		m.AssertionsIssued.Inc()
	}
}

// AddSessionsSwept records sessions removed by a sweep run.
func (m *Metrics) AddSessionsSwept(n int64) {
	if m != nil && n > 0 {
		m.SessionsSwept.Add(float64(n))
	}
}

// ObserveSweepLatency records the duration of a sweep run.
func (m *Metrics) ObserveSweepLatency(d time.Duration) {
	if m != nil {
		m.SweepLatency.Observe(d.Seconds())
	}
}
