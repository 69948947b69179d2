package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_created_total",
			Help: "Sessions created",
		},
	)
	sessionsEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_evicted_total",
			Help: "Sessions evicted by the sweeper",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(sessionsCreatedTotal)
	prometheus.MustRegister(sessionsEvictedTotal)
}
