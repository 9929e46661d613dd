// Package metrics holds the Prometheus collectors shared by the booking and
// handler services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK        = "ok"
	ResultFailed    = "failed"
	ResultDiscarded = "discarded"
)

var (
	// Submissions counts gateway submissions by result.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxabooking",
		Name:      "submissions_total",
		Help:      "Booking submissions handled by the gateway.",
	}, []string{"result"})

	// Intake counts broker messages seen by the intake worker by result.
	Intake = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxabooking",
		Name:      "intake_total",
		Help:      "Broker messages processed by the intake worker.",
	}, []string{"result"})

	// StoredBookings tracks the size of the in-memory booking store.
	StoredBookings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "taxabooking",
		Name:      "store_bookings",
		Help:      "Bookings currently held in memory.",
	})
)
