package notification

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes notification pipeline counters. A nil *Metrics is a no-op.
type Metrics struct {
	created    *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	jobRuns    *prometheus.CounterVec
	claimed    *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "created_total",
			Help:      "Notifications created by type, channel and initial status",
		}, []string{"type", "channel", "status"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "deliveries_total",
			Help:      "Delivery attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "job_runs_total",
			Help:      "Dispatcher job runs by job and outcome",
		}, []string{"job", "outcome"}),
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "claimed_total",
			Help:      "Rows claimed by dispatcher jobs",
		}, []string{"job"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.created, m.deliveries, m.jobRuns, m.claimed)
	return m
}

func (m *Metrics) ObserveCreated(t Type, c Channel, s Status) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(string(t), string(c), string(s)).Inc()
}

func (m *Metrics) ObserveDelivery(c Channel, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.deliveries.WithLabelValues(string(c), outcome).Inc()
}

func (m *Metrics) ObserveJob(job, outcome string, claimed int) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	m.claimed.WithLabelValues(job).Add(float64(claimed))
}
