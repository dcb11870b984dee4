// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the server updates.
type Metrics struct {
	RPCRequests      *prometheus.CounterVec
	RPCDuration      *prometheus.HistogramVec
	ExpensesRecorded prometheus.Counter
	JoinCodeAttempts prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// subscribers reports the current number of live subscriptions.
func New(reg prometheus.Registerer, subscribers func() int) *Metrics {
	m := &Metrics{
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripsplit_rpc_requests_total",
			Help: "RPCs handled, by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripsplit_rpc_duration_seconds",
			Help:    "RPC handling time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure"}),
		ExpensesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripsplit_expenses_recorded_total",
			Help: "Expenses committed to the store.",
		}),
		JoinCodeAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripsplit_join_code_attempts",
			Help:    "Candidates drawn before an unused join code was found.",
			Buckets: []float64{1, 2, 3, 5, 10, 20},
		}),
	}

	reg.MustRegister(m.RPCRequests, m.RPCDuration, m.ExpensesRecorded, m.JoinCodeAttempts)

	if subscribers != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tripsplit_live_subscribers",
			Help: "Open WatchGroup and WatchGroups streams.",
		}, func() float64 { return float64(subscribers()) }))
	}

	return m
}

// NewNop returns collectors that are not registered anywhere, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry(), nil)
}
