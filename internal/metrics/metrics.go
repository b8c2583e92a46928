package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Outcomes       *prometheus.CounterVec
	CommitSteps    *prometheus.CounterVec
	StorefrontCall *prometheus.HistogramVec
	Reconciled     *prometheus.CounterVec
}

// NewCheckoutMetrics registers the collectors with reg. A nil reg skips
// registration, which tests rely on.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	m := &CheckoutMetrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "outcomes_total",
			Help:      "Checkout confirmations by outcome.",
		}, []string{"outcome"}),
		CommitSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "commit_steps_total",
			Help:      "Order commit steps by step and state.",
		}, []string{"step", "state"}),
		StorefrontCall: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "api_call_duration_ms",
			Help:      "Storefront API call latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"operation", "status"}),
		Reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "reconciled_total",
			Help:      "Order reconciliation attempts by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Outcomes, m.CommitSteps, m.StorefrontCall, m.Reconciled)
	}
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
