package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Notification outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transfer metrics
	TransfersCompleted prometheus.Counter
	TransferDuration   prometheus.Histogram
	TransferAmount     prometheus.Histogram
	TransferErrors     *prometheus.CounterVec

	// Account metrics
	AccountsCreated prometheus.Counter

	// Notification metrics
	Notifications *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg.
// A nil reg registers with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TransfersCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "memledger_transfers_completed_total",
			Help: "Total number of committed transfers",
		}),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "memledger_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		}),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "memledger_transfer_amount",
			Help:    "Transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		TransferErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memledger_transfer_errors_total",
				Help: "Total number of rejected transfers by reason",
			},
			[]string{"reason"},
		),

		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "memledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memledger_notifications_total",
				Help: "Notifications by outcome",
			},
			[]string{"outcome"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "memledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}

// TransferCompleted records a committed transfer.
func (m *Metrics) TransferCompleted(amount decimal.Decimal, duration time.Duration) {
	m.TransfersCompleted.Inc()
	m.TransferDuration.Observe(duration.Seconds())
	m.TransferAmount.Observe(amount.InexactFloat64())
}

// TransferFailed records a rejected transfer.
func (m *Metrics) TransferFailed(reason string) {
	m.TransferErrors.WithLabelValues(reason).Inc()
}

// AccountCreated records a new account.
func (m *Metrics) AccountCreated() {
	m.AccountsCreated.Inc()
}

func (m *Metrics) NotificationDelivered() {
	m.Notifications.WithLabelValues(OutcomeDelivered).Inc()
}

func (m *Metrics) NotificationFailed() {
	m.Notifications.WithLabelValues(OutcomeFailed).Inc()
}

func (m *Metrics) NotificationDropped() {
	m.Notifications.WithLabelValues(OutcomeDropped).Inc()
}

// RateLimited records a request rejected by the rate limiter.
func (m *Metrics) RateLimited() {
	m.RateLimitHits.Inc()
}
