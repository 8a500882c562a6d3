package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all pipeline metrics on a private prometheus registry
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	reg *prometheus.Registry

	// Orchestrator
	ItemsTotal   *prometheus.CounterVec   // pipeline, outcome
	ItemDuration *prometheus.HistogramVec // pipeline
	InFlight     *prometheus.GaugeVec     // pipeline
	BatchesTotal *prometheus.CounterVec   // pipeline, status

	// Universe resolver
	UniverseResolutions *prometheus.CounterVec // universe, source
	UniverseSize        *prometheus.GaugeVec   // universe
}

// New creates and registers every metric
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valuescan_items_total",
				Help: "Per-security compute outcomes by pipeline",
			},
			[]string{"pipeline", "outcome"},
		),

		ItemDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "valuescan_item_duration_seconds",
				Help:    "Fetch+compute duration per security",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"pipeline"},
		),

		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "valuescan_items_in_flight",
				Help: "Compute calls currently running",
			},
			[]string{"pipeline"},
		),

		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valuescan_batches_total",
				Help: "Finished batches by status",
			},
			[]string{"pipeline", "status"},
		),

		UniverseResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valuescan_universe_resolutions_total",
				Help: "Universe resolutions by source (primary, fallback, cache)",
			},
			[]string{"universe", "source"},
		),

		UniverseSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "valuescan_universe_size",
				Help: "Identifiers in the last resolved universe",
			},
			[]string{"universe"},
		),
	}

	r.reg.MustRegister(
		r.ItemsTotal,
		r.ItemDuration,
		r.InFlight,
		r.BatchesTotal,
		r.UniverseResolutions,
		r.UniverseSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveItem records one finished item
func (r *Registry) ObserveItem(pipeline, outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.ItemsTotal.WithLabelValues(pipeline, outcome).Inc()
	r.ItemDuration.WithLabelValues(pipeline).Observe(took.Seconds())
}

// ItemStarted / ItemFinished track in-flight compute calls
func (r *Registry) ItemStarted(pipeline string) {
	if r == nil {
		return
	}
	r.InFlight.WithLabelValues(pipeline).Inc()
}

func (r *Registry) ItemFinished(pipeline string) {
	if r == nil {
		return
	}
	r.InFlight.WithLabelValues(pipeline).Dec()
}

// ObserveBatch records a finished batch
func (r *Registry) ObserveBatch(pipeline string, cancelled bool) {
	if r == nil {
		return
	}
	status := "completed"
	if cancelled {
		status = "cancelled"
	}
	r.BatchesTotal.WithLabelValues(pipeline, status).Inc()
}

// ObserveUniverse records a resolution
func (r *Registry) ObserveUniverse(universe, source string, size int) {
	if r == nil {
		return
	}
	r.UniverseResolutions.WithLabelValues(universe, source).Inc()
	r.UniverseSize.WithLabelValues(universe).Set(float64(size))
}

// Gatherer exposes the registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the /metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
