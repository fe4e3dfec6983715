package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics captures payment flow health signals.
type Metrics struct {
	ipnReceived    *prometheus.CounterVec
	checkoutStarts *prometheus.CounterVec
	refunds        *prometheus.CounterVec
	ipnDuration    prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on the given registerer. Tests
// pass a fresh registry to avoid duplicate registration.
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	ipnReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_ipn_received_total",
		Help: "Inbound payment notifications by type and outcome.",
	}, []string{"type", "outcome"})
	checkoutStarts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_checkout_starts_total",
		Help: "Checkout redirects by outcome.",
	}, []string{"outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_refund_requests_total",
		Help: "Merchant refund requests by outcome.",
	}, []string{"outcome"})
	ipnDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "paygate_ipn_duration_seconds",
		Help:    "End-to-end IPN processing latency.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	registerer.MustRegister(ipnReceived, checkoutStarts, refunds, ipnDuration)
	return &Metrics{
		ipnReceived:    ipnReceived,
		checkoutStarts: checkoutStarts,
		refunds:        refunds,
		ipnDuration:    ipnDuration,
	}
}

func (m *Metrics) IPNReceived(ipnType string, outcome string) {
	m.ipnReceived.WithLabelValues(ipnType, outcome).Inc()
}

func (m *Metrics) CheckoutStarted(outcome string) {
	m.checkoutStarts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RefundRequested(outcome string) {
	m.refunds.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveIPNDuration(seconds float64) {
	m.ipnDuration.Observe(seconds)
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
