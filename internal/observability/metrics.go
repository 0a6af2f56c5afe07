package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "searches_total", Help: "Ride searches by outcome"},
		[]string{"outcome"},
	)
	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "carpool", Name: "search_latency_seconds", Help: "Catalog search latency seconds"})
	RefineResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "carpool",
		Name:      "refine_results",
		Help:      "Number of offers left after filtering",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "bookings_total", Help: "Booking attempts by outcome"},
		[]string{"outcome"},
	)
	RidesPublished = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "rides_published_total", Help: "Rides published by drivers"})
	LoginsTotal    = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "logins_total", Help: "Login and registration attempts by outcome"},
		[]string{"kind", "outcome"},
	)
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "carpool", Name: "sessions_active", Help: "Client sessions held in memory"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
