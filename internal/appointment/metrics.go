package appointment

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

// Metrics counts booking outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	bookings      *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	bookLatency   prometheus.Histogram
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Cancelled appointments by resulting status",
		}, []string{"status"}),
		bookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "book_duration_seconds",
			Help:      "Latency of the booking critical section",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookings, m.cancellations, m.bookLatency)
	return m
}

func (m *Metrics) ObserveBooking(err error, seconds float64) {
	if m == nil {
		return
	}
	outcome := "created"
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindConflict:
			outcome = "conflict"
		case apperr.KindValidation, apperr.KindNotFound:
			outcome = "rejected"
		default:
			outcome = "error"
		}
	}
	m.bookings.WithLabelValues(outcome).Inc()
	m.bookLatency.Observe(seconds)
}

func (m *Metrics) ObserveCancellation(status Status) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(string(status)).Inc()
}
