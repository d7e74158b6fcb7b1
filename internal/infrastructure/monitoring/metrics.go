package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Render pipeline metrics
	RendersTotal    prometheus.Counter
	RenderDuration  prometheus.Histogram
	ConsoleMessages *prometheus.CounterVec
	StaleMessages   prometheus.Counter

	// Persistence metrics
	SnippetOps *prometheus.CounterVec
	SessionOps *prometheus.CounterVec

	// AI metrics
	AIRequests *prometheus.CounterVec
	AIDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector registered on a private registry,
// so repeated construction in tests does not collide.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

// NewMetricsWith registers the collector on the provided registry.
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),
		registry:  reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penlab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "penlab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		RendersTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "penlab_renders_total",
				Help: "Total number of preview render cycles",
			},
		),
		RenderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "penlab_render_duration_seconds",
				Help:    "Sandbox render cycle duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		ConsoleMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penlab_console_messages_total",
				Help: "Console messages relayed from the sandbox by level",
			},
			[]string{"level"},
		),
		StaleMessages: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "penlab_console_messages_stale_total",
				Help: "Relayed messages discarded for carrying a stale generation",
			},
		),

		SnippetOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penlab_snippet_operations_total",
				Help: "Snippet store operations by kind and outcome",
			},
			[]string{"op", "status"},
		),
		SessionOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penlab_session_operations_total",
				Help: "Session manager operations by kind and outcome",
			},
			[]string{"op", "status"},
		),

		AIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penlab_ai_requests_total",
				Help: "Requests to the generative AI backend by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		AIDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "penlab_ai_request_duration_seconds",
				Help:    "Generative AI request duration in seconds",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "penlab_ws_connections",
				Help: "Currently open WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penlab_ws_messages_total",
				Help: "WebSocket messages by type and direction",
			},
			[]string{"type", "direction"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "penlab_uptime_seconds",
			Help: "Seconds since process start",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the underlying registry for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
