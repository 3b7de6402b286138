package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the wallet module.
// Tracks wallet lifecycle counts and unlock path durations.
type Metrics struct {
	WalletCreated  prometheus.Counter
	UnlockAttempts *prometheus.CounterVec
	BackupCreated  prometheus.Counter
	BackupRestored prometheus.Counter
	UnlockDuration prometheus.Histogram
}

// New creates a new Metrics instance with all wallet module metrics registered.
func New() *Metrics {
	return &Metrics{
		WalletCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_wallets_created_total",
			Help: "Total number of wallets created",
		}),
		UnlockAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_wallet_unlock_attempts_total",
			Help: "Total wallet unlock attempts by outcome",
		}, []string{"outcome"}),
		BackupCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_wallet_backups_created_total",
			Help: "Total number of wallet backups created",
		}),
		BackupRestored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_wallet_backups_restored_total",
			Help: "Total number of wallet restores from backup",
		}),
		UnlockDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_wallet_unlock_duration_seconds",
			Help:    "Duration of UnlockWallet operations (KDF-dominated path)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementWalletCreated records a successful wallet creation.
func (m *Metrics) IncrementWalletCreated() {
	m.WalletCreated.Inc()
}

// IncrementUnlockAttempt records an unlock attempt with its outcome
// ("success" or "failure").
func (m *Metrics) IncrementUnlockAttempt(outcome string) {
	m.UnlockAttempts.WithLabelValues(outcome).Inc()
}

// IncrementBackupCreated records a successful backup export.
func (m *Metrics) IncrementBackupCreated() {
	m.BackupCreated.Inc()
}

// IncrementBackupRestored records a successful restore from backup.
func (m *Metrics) IncrementBackupRestored() {
	m.BackupRestored.Inc()
}

// ObserveUnlock records the duration of an UnlockWallet operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUnlock(start time.Time) {
	m.UnlockDuration.Observe(time.Since(start).Seconds())
}
