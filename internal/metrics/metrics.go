package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayd",
			Name:      "bookings_committed_total",
			Help:      "Reservations committed after payment capture.",
		},
	)

	reservationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayd",
			Name:      "reservations_rejected_total",
			Help:      "Reservation attempts rejected, by reason.",
		},
		[]string{"reason"},
	)

	paymentsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayd",
			Name:      "payments_captured_total",
			Help:      "Payment captures by outcome status.",
		},
		[]string{"status"},
	)

	reconciliationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayd",
			Name:      "reconciliation_failures_total",
			Help:      "Captured payments whose reservation commit failed.",
		},
	)

	ratingsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayd",
			Name:      "ratings_submitted_total",
			Help:      "Ratings accepted for completed stays.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCommitted,
			reservationRejected,
			paymentsCaptured,
			reconciliationFailures,
			ratingsSubmitted,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCommitted() {
	bookingsCommitted.Inc()
}

func IncReservationRejected(reason string) {
	reservationRejected.WithLabelValues(reason).Inc()
}

func IncPaymentCaptured(status string) {
	paymentsCaptured.WithLabelValues(status).Inc()
}

func IncReconciliationFailure() {
	reconciliationFailures.Inc()
}

func IncRatingSubmitted() {
	ratingsSubmitted.Inc()
}
