package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential module.
type Metrics struct {
	CredentialsIssued  *prometheus.CounterVec
	CredentialsRevoked prometheus.Counter
	Verifications      *prometheus.CounterVec
	VerifyDuration     prometheus.Histogram
}

// New creates a new Metrics instance with all credential module metrics registered.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_credentials_issued_total",
			Help: "Total number of credentials issued by credential type",
		}, []string{"type"}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_credential_verifications_total",
			Help: "Total number of credential verifications by outcome (valid or failure reason)",
		}, []string{"outcome"}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_credential_verify_duration_seconds",
			Help:    "Duration of credential verification (includes DID resolution)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// IncrementCredentialIssued records an issuance for a credential type.
func (m *Metrics) IncrementCredentialIssued(credentialType string) {
	m.CredentialsIssued.WithLabelValues(credentialType).Inc()
}

// IncrementCredentialRevoked records a revocation.
func (m *Metrics) IncrementCredentialRevoked() {
	m.CredentialsRevoked.Inc()
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
