package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tutorportal"

var (
	once sync.Once

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the school API by endpoint and status code class.",
		},
		[]string{"endpoint", "code"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of school API requests.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"endpoint"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		},
		[]string{"result"},
	)

	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Sessions logged out after the school API answered 401.",
		},
	)

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Appointment booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	homeworkStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "homework_status_derived_total",
			Help:      "Derived homework statuses served to clients.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Portal HTTP requests by route.",
		},
		[]string{"route"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			upstreamRequests,
			upstreamDuration,
			cacheLookups,
			sessionsExpired,
			bookingAttempts,
			homeworkStatuses,
			httpRequests,
		)
	})
}

func ObserveUpstream(endpoint, code string, seconds float64) {
	upstreamRequests.WithLabelValues(endpoint, code).Inc()
	upstreamDuration.WithLabelValues(endpoint).Observe(seconds)
}

func IncCache(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func IncSessionExpired() {
	sessionsExpired.Inc()
}

func IncBooking(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}

func IncHomeworkStatus(status string) {
	homeworkStatuses.WithLabelValues(status).Inc()
}

func IncHTTP(route string) {
	httpRequests.WithLabelValues(route).Inc()
}
