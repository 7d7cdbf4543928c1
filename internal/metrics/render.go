package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render holds the Prometheus collectors of one process. Each instance owns
// a private registry so tests and comparison runs do not collide. A nil
// *Render is valid and records nothing.
type Render struct {
	registry        *prometheus.Registry
	handler         http.Handler
	blocks          *prometheus.CounterVec
	results         *prometheus.CounterVec
	pixels          *prometheus.CounterVec
	failures        *prometheus.CounterVec
	computeSeconds  *prometheus.HistogramVec
	wallSeconds     *prometheus.GaugeVec
	commToCompRatio *prometheus.GaugeVec
}

// NewRender creates and registers the render collectors.
func NewRender() *Render {
	reg := prometheus.NewRegistry()
	m := &Render{
		registry: reg,
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raysplit_blocks_dispatched_total",
			Help: "Dynamic blocks handed to workers.",
		}, []string{"mode"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raysplit_results_received_total",
			Help: "Result messages assembled by the coordinator.",
		}, []string{"mode"}),
		pixels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raysplit_pixels_shaded_total",
			Help: "Pixels shaded, by rank.",
		}, []string{"mode", "rank"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raysplit_failures_total",
			Help: "Fatal failures, by kind.",
		}, []string{"kind"}),
		computeSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "raysplit_compute_seconds",
			Help:    "Shading time carried by each result message.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"mode"}),
		wallSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "raysplit_last_wall_seconds",
			Help: "Wall time of the last completed render.",
		}, []string{"mode"}),
		commToCompRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "raysplit_last_c2c_ratio",
			Help: "Communication-to-computation ratio of the last completed render.",
		}, []string{"mode"}),
	}
	reg.MustRegister(
		m.blocks, m.results, m.pixels, m.failures,
		m.computeSeconds, m.wallSeconds, m.commToCompRatio,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return m
}

// BlockDispatched counts one dynamic block.
func (m *Render) BlockDispatched(mode string) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(mode).Inc()
}

// ResultReceived records one assembled result and its compute time.
func (m *Render) ResultReceived(mode string, compute time.Duration) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(mode).Inc()
	m.computeSeconds.WithLabelValues(mode).Observe(compute.Seconds())
}

// PixelsShaded adds n pixels to rank's total.
func (m *Render) PixelsShaded(mode, rank string, n int) {
	if m == nil {
		return
	}
	m.pixels.WithLabelValues(mode, rank).Add(float64(n))
}

// Failure counts one fatal failure.
func (m *Render) Failure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

// RenderFinished records the timing of a completed render.
func (m *Render) RenderFinished(mode string, wall time.Duration, ratio float64) {
	if m == nil {
		return
	}
	m.wallSeconds.WithLabelValues(mode).Set(wall.Seconds())
	m.commToCompRatio.WithLabelValues(mode).Set(ratio)
}

// WritePrometheus serves the registry in the Prometheus text format.
func (m *Render) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// Handler returns the HTTP handler for the registry.
func (m *Render) Handler() http.Handler { return m.handler }

// Registry returns the underlying registry.
func (m *Render) Registry() *prometheus.Registry { return m.registry }
