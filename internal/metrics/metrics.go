package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	Dispatches     *prometheus.CounterVec
	TwilioRequests *prometheus.CounterVec
	TwilioLatency  *prometheus.HistogramVec
	NoticesPushed  prometheus.Counter
	Errors         *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sms_dispatches_total",
				Help:      "Total SMS dispatch attempts by trigger and outcome.",
			}, []string{"trigger", "outcome"}),
			TwilioRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "twilio_requests_total",
				Help:      "Total Twilio API requests by response status.",
			}, []string{"status"}),
			TwilioLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "twilio_request_duration_seconds",
				Help:      "Latency distribution for Twilio API calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"status"}),
			NoticesPushed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_notices_pushed_total",
				Help:      "Total one-time admin notices queued.",
			}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.Dispatches,
			metricsInstance.TwilioRequests,
			metricsInstance.TwilioLatency,
			metricsInstance.NoticesPushed,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
