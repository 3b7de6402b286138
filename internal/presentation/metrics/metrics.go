package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the presentation module.
type Metrics struct {
	PresentationsCreated prometheus.Counter
	Verifications        *prometheus.CounterVec
	VerifyDuration       prometheus.Histogram
}

// New creates a new Metrics instance with all presentation module metrics registered.
func New() *Metrics {
	return &Metrics{
		PresentationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_presentations_created_total",
			Help: "Total number of verifiable presentations created",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_presentation_verifications_total",
			Help: "Total number of presentation verifications by outcome (valid or failure reason)",
		}, []string{"outcome"}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_presentation_verify_duration_seconds",
			Help:    "Duration of presentation verification (includes per-credential checks)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// IncrementPresentationCreated records a presentation creation.
func (m *Metrics) IncrementPresentationCreated() {
	m.PresentationsCreated.Inc()
}

// IncrementVerification records a verification outcome: "valid" for passing
// checks, the failure reason otherwise.
func (m *Metrics) IncrementVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

// ObserveVerify records the duration of a verification.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}
