package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used by the worker process.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	MailSent    prometheus.Counter
	MailFailed  prometheus.Counter
	SendLatency prometheus.Histogram
	QueueDepth  prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MailSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mail_sent_total",
			Help: "Total number of emails acknowledged by the provider.",
		}),
		MailFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mail_failed_total",
			Help: "Total number of permanently failed emails (retries exhausted or permanent error).",
		}),
		SendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mail_send_seconds",
			Help:    "End-to-end processing latency from dequeue to provider ack.",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_queue_depth",
			Help: "Current number of items in the in-process delivery queue.",
		}),
	}

	reg.MustRegister(m.MailSent, m.MailFailed, m.SendLatency, m.QueueDepth)
	return m
}

// DispatcherHooks returns the metric callback functions expected by
// worker.MetricHooks. Centralises the prometheus observation calls so the
// dispatcher stays metrics-agnostic.
func (m *Metrics) DispatcherHooks() (onSent func(time.Duration), onFailed func()) {
	onSent = func(latency time.Duration) {
		m.MailSent.Inc()
		m.SendLatency.Observe(latency.Seconds())
	}
	onFailed = func() {
		m.MailFailed.Inc()
	}
	return
}
