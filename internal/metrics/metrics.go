package metrics

import (
	"fmt"
	"io"

	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the Prometheus metrics recorded for each parse. It
// implements bibtex.Observer.
type Metrics struct {
	registry *prometheus.Registry

	ParsesTotal    prometheus.Counter
	FallbacksTotal prometheus.Counter
	BytesTotal     prometheus.Counter
	EntriesTotal   prometheus.Counter
	WarningsTotal  prometheus.Counter
	Chunks         prometheus.Gauge
	Threads        prometheus.Gauge
	PhaseDuration  *prometheus.HistogramVec
	ParseDuration  prometheus.Histogram
}

// NewMetrics creates the metrics on a private registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ParsesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "parses_total",
			Help:      "Total number of completed parses",
		}),
		FallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "fallbacks_total",
			Help:      "Parses that were retried as one chunk",
		}),
		BytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "bytes_total",
			Help:      "Input bytes parsed",
		}),
		EntriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "entries_total",
			Help:      "Entries produced",
		}),
		WarningsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "warnings_total",
			Help:      "Expansion warnings produced",
		}),
		Chunks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "chunks",
			Help:      "Chunks used by the last parse",
		}),
		Threads: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "threads",
			Help:      "Workers used by the last parse",
		}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "phase_duration_seconds",
			Help:      "Histogram of parse phase durations",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to 26s
		}, []string{"phase"}),
		ParseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "duration_seconds",
			Help:      "Histogram of total parse durations",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

// ObserveParse records one parse.
func (m *Metrics) ObserveParse(s bibtex.ParseStats) {
	m.ParsesTotal.Inc()
	if s.Fallback {
		m.FallbacksTotal.Inc()
	}
	m.BytesTotal.Add(float64(s.Bytes))
	m.EntriesTotal.Add(float64(s.Entries))
	m.WarningsTotal.Add(float64(s.Warnings))
	m.Chunks.Set(float64(s.Chunks))
	m.Threads.Set(float64(s.Threads))

	m.PhaseDuration.WithLabelValues("split").Observe(s.Split.Seconds())
	m.PhaseDuration.WithLabelValues("parse").Observe(s.Parse.Seconds())
	m.PhaseDuration.WithLabelValues("expand").Observe(s.Expand.Seconds())
	m.PhaseDuration.WithLabelValues("index").Observe(s.Index.Seconds())
	m.ParseDuration.Observe(s.Total.Seconds())
}

// Registry exposes the registry, e.g. for promhttp.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteText writes every metric in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
