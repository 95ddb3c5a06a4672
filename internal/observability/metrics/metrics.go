package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the lead pipeline.
type PipelineMetrics struct {
	intakeTotal     *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	dispatchLatency prometheus.Histogram
	alertsTotal     *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		intakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jungle",
			Subsystem: "leads",
			Name:      "intake_total",
			Help:      "Total inbound lead webhooks",
		}, []string{"status"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jungle",
			Subsystem: "dispatch",
			Name:      "attempts_total",
			Help:      "Total AI call dispatch attempts",
		}, []string{"outcome"}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "jungle",
			Subsystem: "dispatch",
			Name:      "call_latency_seconds",
			Help:      "Latency of outbound calling-API requests",
			Buckets:   prometheus.DefBuckets,
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jungle",
			Subsystem: "notify",
			Name:      "alerts_total",
			Help:      "Total operator alerts sent, by channel and status",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.intakeTotal, m.dispatchTotal, m.dispatchLatency, m.alertsTotal)
	return m
}

// ObserveIntake records a webhook intake result (created, rejected, error).
func (m *PipelineMetrics) ObserveIntake(status string) {
	if m == nil {
		return
	}
	m.intakeTotal.WithLabelValues(status).Inc()
}

// ObserveDispatch records a dispatch outcome (dispatched, skipped, failed, config_error).
func (m *PipelineMetrics) ObserveDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(outcome).Inc()
}

// ObserveCallLatency records an outbound calling-API round trip.
func (m *PipelineMetrics) ObserveCallLatency(seconds float64) {
	if m == nil {
		return
	}
	m.dispatchLatency.Observe(seconds)
}

// ObserveAlert records an alert delivery attempt per channel.
func (m *PipelineMetrics) ObserveAlert(channel, status string) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(channel, status).Inc()
}
