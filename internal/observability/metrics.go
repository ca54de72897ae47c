package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each
// instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry
	stages   *stageWindow

	HTTPRequests    *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	MemoryErrors    *prometheus.CounterVec
	LinkLookups     *prometheus.CounterVec
	StreamChunks    prometheus.Counter
	ActiveStreams   prometheus.Gauge
	CompletionDelay prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stages:   newStageWindow(256),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and kind.",
		}, []string{"provider", "kind"}),
		MemoryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_errors_total",
			Help:      "Memory store failures by operation.",
		}, []string{"op"}),
		LinkLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_lookups_total",
			Help:      "Link resolver lookups by outcome.",
		}, []string{"outcome"}),
		StreamChunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Reply deltas forwarded to streaming clients.",
		}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of streaming replies in flight.",
		}),
		CompletionDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_ms",
			Help:      "Latency of provider completion calls in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}),
	}
}

// ObserveStage records how long one pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.stages.Observe(stage, ms)
	if stage == StageCompletion {
		m.CompletionDelay.Observe(ms)
	}
}

// ObserveIndicator counts a notable pipeline event (degraded memory, link hit).
func (m *Metrics) ObserveIndicator(name string) {
	if m == nil {
		return
	}
	m.stages.ObserveIndicator(name)
}

// SnapshotStages returns latency percentiles per stage.
func (m *Metrics) SnapshotStages() StageSnapshot {
	return m.stages.Snapshot()
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
