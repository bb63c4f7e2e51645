package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "bookings_created_total",
			Help:      "Bookings created.",
		},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "booking_status_changes_total",
			Help:      "Booking status changes by target status.",
		},
		[]string{"status"},
	)

	bookingErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "booking_errors_total",
			Help:      "Rejected booking operations by reason.",
		},
		[]string{"operation", "reason"},
	)

	botUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "telegram_bot_updates_total",
			Help:      "Owner bot updates by kind.",
		},
		[]string{"kind"},
	)

	botUpdateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "carrental",
			Name:      "telegram_bot_update_processing_time_seconds",
			Help:      "Time spent processing owner bot updates.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	syncQueue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "carrental",
			Name:      "sheets_sync_queue_length",
			Help:      "Pending ledger sync tasks.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, grpcRequests, bookingsCreated, bookingTransitions, bookingErrors, botUpdates, botUpdateDuration, syncQueue)
	})
}

func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncStatusChange(status string) {
	bookingTransitions.WithLabelValues(status).Inc()
}

// IncBookingError counts a failed lifecycle operation; reason is a short error class.
func IncBookingError(operation, reason string) {
	bookingErrors.WithLabelValues(operation, reason).Inc()
}

func SetSyncQueueLength(n int) {
	syncQueue.Set(float64(n))
}

// ObserveBotUpdate records one processed bot update; kind is command, callback or ignored.
func ObserveBotUpdate(kind string, seconds float64) {
	botUpdates.WithLabelValues(kind).Inc()
	botUpdateDuration.Observe(seconds)
}
