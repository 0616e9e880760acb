// Package metrics exposes Prometheus counters for the admission path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's Prometheus collectors.
type Metrics struct {
	BookingsAccepted  prometheus.Counter
	BookingsRejected  *prometheus.CounterVec
	Cancellations     prometheus.Counter
	RefundsIssued     prometheus.Counter
	RefundFailures    prometheus.Counter
	ReferenceRedraws  prometheus.Counter
	CheckInsCompleted prometheus.Counter
}

// New registers and returns the collectors.  Rejections are labelled
// by reason (limit, combination, conflict, validation) so quota
// pressure is visible separately from slot contention.
func New() *Metrics {
	return &Metrics{
		BookingsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservation_bookings_accepted_total",
			Help: "Total bookings admitted",
		}),
		BookingsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_bookings_rejected_total",
			Help: "Total bookings rejected by reason",
		}, []string{"reason"}),
		Cancellations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservation_cancellations_total",
			Help: "Total bookings cancelled",
		}),
		RefundsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservation_refunds_issued_total",
			Help: "Total refunds accepted by the payment gateway",
		}),
		RefundFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservation_refund_failures_total",
			Help: "Total refunds deferred to out-of-band reconciliation",
		}),
		ReferenceRedraws: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservation_reference_redraws_total",
			Help: "Total reference or check-in code redraws after a collision",
		}),
		CheckInsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservation_checkins_completed_total",
			Help: "Total check-in codes consumed at the door",
		}),
	}
}
