package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingOutcome = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "booking_transitions_total",
			Help:      "Count of booking state transitions by resulting status.",
		},
		[]string{"status"},
	)

	inventoryRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "inventory_rejections_total",
			Help:      "Count of reservations rejected for lack of capacity.",
		},
	)

	paymentResult = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "payment_results_total",
			Help:      "Count of confirm_payment outcomes.",
		},
		[]string{"result"},
	)

	reconciliationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "reconciliation_failures_total",
			Help:      "Count of charges that succeeded while the internal confirm failed.",
		},
	)

	sweptReservations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "swept_reservations_total",
			Help:      "Count of reservations expired by the sweep.",
		},
	)

	lockRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "lock_retries_total",
			Help:      "Count of transactions re-run after lock contention.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingOutcome, inventoryRejected, paymentResult,
			reconciliationFailures, sweptReservations, lockRetries)
	})
}

func IncBookingTransition(status string) {
	bookingOutcome.WithLabelValues(status).Inc()
}

func IncInventoryRejected() {
	inventoryRejected.Inc()
}

func IncPaymentResult(result string) {
	paymentResult.WithLabelValues(result).Inc()
}

func IncReconciliationFailure() {
	reconciliationFailures.Inc()
}

func AddSweptReservations(n int) {
	sweptReservations.Add(float64(n))
}

func IncLockRetry() {
	lockRetries.Inc()
}
