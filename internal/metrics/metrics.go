package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by route pattern.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 120},
		},
		[]string{"method", "route"},
	)

	// LoginAttemptsTotal counts gate attempts by result (accepted, rejected).
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Password gate attempts",
		},
		[]string{"result"},
	)

	// TurnsTotal counts user turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "User turns relayed to the assistant",
		},
		[]string{"outcome"},
	)

	RunPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "assistant",
			Name:      "run_polls_total",
			Help:      "Run status fetches by observed status",
		},
		[]string{"status"},
	)

	RunWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "assistant",
			Name:      "run_wait_seconds",
			Help:      "Time spent waiting for a run to reach a terminal status",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		},
	)
)
