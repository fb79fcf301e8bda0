// Package metrics exports sweep results as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studydesk/storedoctor/pkg/model"
)

const namespace = "storedoctor"

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
	}
	return defaultRegistry
}

// Registry holds all storedoctor metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	sweeps         prometheus.Counter
	actions        *prometheus.CounterVec
	score          prometheus.Gauge
	duration       prometheus.Histogram
	storeBytes     prometheus.Gauge
	storeKeys      prometheus.Gauge
	serviceOffline *prometheus.GaugeVec
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Completed sweeps.",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Repair actions reported, by category and severity.",
		}, []string{"category", "severity"}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_score",
			Help:      "Health score of the most recent sweep (0-100).",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a sweep.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10, 20, 30},
		}),
		storeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_bytes",
			Help:      "Store size after repair, counted as UTF-16 bytes.",
		}),
		storeKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_keys",
			Help:      "Keys in the store after repair.",
		}),
		serviceOffline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_offline",
			Help:      "1 when the service's offline flag is set.",
		}, []string{"service"}),
	}
	r.reg.MustRegister(r.sweeps, r.actions, r.score, r.duration,
		r.storeBytes, r.storeKeys, r.serviceOffline)
	return r
}

// RecordSweep records a finished sweep.
func (r *Registry) RecordSweep(report *model.Report) {
	r.sweeps.Inc()
	r.score.Set(float64(report.Record.Score))
	r.duration.Observe(report.Duration.Seconds())
	for _, a := range report.Actions {
		r.actions.WithLabelValues(string(a.Category), string(a.Severity)).Inc()
	}
	if report.Storage != nil {
		r.RecordStorage(report.Storage)
	}
}

// RecordStorage updates the store size gauges.
func (r *Registry) RecordStorage(stats *model.StorageStats) {
	r.storeBytes.Set(float64(stats.TotalBytes))
	r.storeKeys.Set(float64(stats.KeyCount))
}

// SetServiceOffline records a service's offline flag.
func (r *Registry) SetServiceOffline(service string, offline bool) {
	v := 0.0
	if offline {
		v = 1
	}
	r.serviceOffline.WithLabelValues(service).Set(v)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node exporter textfile
// collector. The write is atomic.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

