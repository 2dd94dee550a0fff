// Package monitoring exports prometheus metrics for interception
// activity.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Interception metrics
	Intercepted  *prometheus.CounterVec // rerouted insertions by region and tag
	Removed      *prometheus.CounterVec // rerouted removals by region and tag
	PassThrough  *prometheus.CounterVec // delegated operations by op kind
	RemoveErrors prometheus.Counter     // remove-path errors caught and logged

	// Script pipeline metrics
	ScriptsTransformed prometheus.Counter
	StaleDiscards      prometheus.Counter
	BlobsOutstanding   prometheus.Gauge

	// Fetch metrics
	FetchBreakerOpen prometheus.Gauge

	// Lifecycle metrics
	AppsBusy prometheus.Gauge
}

// New creates a metrics collector registered on its own registry, which
// is also returned for serving.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Intercepted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoist_intercepted_inserts_total",
				Help: "Resource insertions rerouted into app containers",
			},
			[]string{"region", "tag"},
		),
		Removed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoist_intercepted_removes_total",
				Help: "Resource removals resolved through app containers",
			},
			[]string{"region", "tag"},
		),
		PassThrough: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoist_passthrough_total",
				Help: "Operations delegated unchanged to the shared region",
			},
			[]string{"op"},
		),
		RemoveErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hoist_remove_errors_total",
				Help: "Errors caught on the remove path before fallback",
			},
		),
		ScriptsTransformed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hoist_scripts_transformed_total",
				Help: "Script nodes run through the transform pipeline",
			},
		),
		StaleDiscards: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hoist_stale_discards_total",
				Help: "Wrapped-code results discarded after unmount races",
			},
		),
		BlobsOutstanding: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hoist_blobs_outstanding",
				Help: "In-memory script resources currently installed",
			},
		),
		FetchBreakerOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hoist_fetch_breaker_open",
				Help: "Whether the resource-fetch circuit breaker is open",
			},
		),
		AppsBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hoist_apps_busy",
				Help: "Apps with a non-zero bootstrap or mount count",
			},
		),
	}
	return m, reg
}
