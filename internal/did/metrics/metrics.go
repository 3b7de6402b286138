package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the DID module.
type Metrics struct {
	DIDCreated      *prometheus.CounterVec
	KeysRotated     *prometheus.CounterVec
	ResolveDuration prometheus.Histogram
}

// New creates a new Metrics instance with all DID module metrics registered.
func New() *Metrics {
	return &Metrics{
		DIDCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_dids_created_total",
			Help: "Total number of DIDs created by method",
		}, []string{"method"}),
		KeysRotated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_did_key_rotations_total",
			Help: "Total number of DID key rotations by reason",
		}, []string{"reason"}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_did_resolve_duration_seconds",
			Help:    "Duration of ResolveDID operations (includes delegated resolvers)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// IncrementDIDCreated records a DID creation for a method.
func (m *Metrics) IncrementDIDCreated(method string) {
	m.DIDCreated.WithLabelValues(method).Inc()
}

// IncrementKeysRotated records a completed rotation with its reason.
func (m *Metrics) IncrementKeysRotated(reason string) {
	m.KeysRotated.WithLabelValues(reason).Inc()
}

// ObserveResolve records the duration of a ResolveDID operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}
