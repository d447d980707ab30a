package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "photo_grouper"

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	BatchesTotal     *prometheus.CounterVec
	AdmittedItems    prometheus.Counter
	RejectedItems    prometheus.Counter
	StageDuration    *prometheus.HistogramVec
	UpstreamDuration *prometheus.HistogramVec
	UpstreamTotal    *prometheus.CounterVec
	RepairsTotal     *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "batches_total",
			Help:      "Total number of batches processed, labeled by result.",
		}, []string{"result"}),

		AdmittedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "admitted_items_total",
			Help:      "Total number of uploaded images admitted into a batch.",
		}),

		RejectedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rejected_items_total",
			Help:      "Total number of uploaded files rejected by size or type.",
		}),

		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of model calls including retries.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120, 300},
		}, []string{"provider", "result"}),

		UpstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of model calls, labeled by provider and result.",
		}, []string{"provider", "result"}),

		RepairsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "repairs_total",
			Help:      "Corrections applied to model output, labeled by kind.",
		}, []string{"kind"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, labeled by route and status code.",
		}, []string{"route", "code"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.BatchesTotal,
			m.AdmittedItems,
			m.RejectedItems,
			m.StageDuration,
			m.UpstreamDuration,
			m.UpstreamTotal,
			m.RepairsTotal,
			m.HTTPRequests,
		)
	}
	return m
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveUpstream(provider, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamTotal.WithLabelValues(provider, result).Inc()
	m.UpstreamDuration.WithLabelValues(provider, result).Observe(d.Seconds())
}

func (m *Metrics) ObserveRepair(kind string) {
	if m == nil {
		return
	}
	m.RepairsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveBatch(result string, admitted, rejected int) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(result).Inc()
	m.AdmittedItems.Add(float64(admitted))
	m.RejectedItems.Add(float64(rejected))
}

func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusLabel(code)).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
