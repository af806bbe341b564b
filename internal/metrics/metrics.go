package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roombooking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	reservationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_attempts_total",
			Help:      "Reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	reservationCancels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_cancellations_total",
			Help:      "Reservation cancellations by outcome.",
		},
		[]string{"outcome"},
	)

	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "room_lock_wait_seconds",
			Help:      "Time spent waiting for a per-room lock.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	forwardedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_events_total",
			Help:      "Domain events forwarded to the broker by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			reservationAttempts,
			reservationCancels,
			lockWait,
			forwardedEvents,
		)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, code string, dur time.Duration) {
	httpRequests.WithLabelValues(route, code).Inc()
	httpDuration.WithLabelValues(route).Observe(dur.Seconds())
}

// IncReservation counts a reservation attempt outcome ("created", "conflict", ...).
func IncReservation(outcome string) {
	reservationAttempts.WithLabelValues(outcome).Inc()
}

// IncCancellation counts a cancellation outcome.
func IncCancellation(outcome string) {
	reservationCancels.WithLabelValues(outcome).Inc()
}

// ObserveLockWait records how long a room lock took to acquire.
func ObserveLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}

// IncForwarded counts a forwarded event by result ("ok", "retry", "dropped").
func IncForwarded(result string) {
	forwardedEvents.WithLabelValues(result).Inc()
}
