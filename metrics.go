package legtrace

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts span lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	SpansStarted *prometheus.CounterVec
	SpansEnded   prometheus.Counter
	RepeatedEnds prometheus.Counter
	Extractions  *prometheus.CounterVec
	SpanDuration prometheus.Histogram
}

// NewMetrics registers the span metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SpansStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legtrace_spans_started_total",
				Help: "Spans started, by root or child",
			},
			[]string{"kind"},
		),
		SpansEnded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "legtrace_spans_ended_total",
				Help: "Spans ended",
			},
		),
		RepeatedEnds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "legtrace_span_repeated_ends_total",
				Help: "End calls on spans that had already ended",
			},
		),
		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legtrace_extractions_total",
				Help: "Root span carrier resolutions, by outcome",
			},
			[]string{"outcome"},
		),
		SpanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "legtrace_span_duration_seconds",
				Help:    "Span duration in seconds",
				Buckets: []float64{.001, .01, .1, .5, 1, 5, 30, 60, 300, 1800},
			},
		),
	}
}

func (m *Metrics) started(root bool) {
	if m == nil {
		return
	}
	kind := "child"
	if root {
		kind = "root"
	}
	m.SpansStarted.WithLabelValues(kind).Inc()
}

func (m *Metrics) extracted(remote bool) {
	if m == nil {
		return
	}
	outcome := "none"
	if remote {
		outcome = "remote"
	}
	m.Extractions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ended(d time.Duration) {
	if m == nil {
		return
	}
	m.SpansEnded.Inc()
	m.SpanDuration.Observe(d.Seconds())
}

func (m *Metrics) repeatedEnd() {
	if m == nil {
		return
	}
	m.RepeatedEnds.Inc()
}
