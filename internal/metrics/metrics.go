package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	holdsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "holds_created_total",
			Help:      "Count of slot holds created.",
		},
	)

	holdsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "holds_finished_total",
			Help:      "Count of holds finished by outcome.",
		},
		[]string{"outcome"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "reservations_created_total",
			Help:      "Count of reservations confirmed.",
		},
	)

	reservationsCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "reservations_cancelled_total",
			Help:      "Count of reservations cancelled by actor.",
		},
		[]string{"actor"},
	)

	waitlistNotified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "waitlist_notifications_total",
			Help:      "Count of waitlist entries notified about freed slots.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			holdsCreated,
			holdsFinished,
			reservationsCreated,
			reservationsCancelled,
			waitlistNotified,
		)
	})
}

func IncHoldCreated() {
	holdsCreated.Inc()
}

func IncHoldFinished(outcome string) {
	holdsFinished.WithLabelValues(outcome).Inc()
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

func IncReservationCancelled(actor string) {
	reservationsCancelled.WithLabelValues(actor).Inc()
}

func IncWaitlistNotified() {
	waitlistNotified.Inc()
}
