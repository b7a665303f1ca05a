package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "botgc"

// Prometheus exports sink metrics on a dedicated registry. Metric names
// become the "name" label of three vectors so the pipeline can keep using
// free-form dotted names.
type Prometheus struct {
	registry *prometheus.Registry
	counters *prometheus.CounterVec
	gauges   *prometheus.GaugeVec
	timings  *prometheus.HistogramVec
}

// NewPrometheus registers the sink's collectors on registry. A nil
// registry gets a fresh one.
func NewPrometheus(registry *prometheus.Registry) *Prometheus {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Prometheus{
		registry: registry,
		counters: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Pipeline events by name.",
		}, []string{"name"}),
		gauges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gauge",
			Help:      "Point-in-time pipeline values by name.",
		}, []string{"name"}),
		timings: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Pipeline stage durations by name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),
	}
}

func (p *Prometheus) IncrCounter(name string) {
	p.counters.WithLabelValues(name).Inc()
}

func (p *Prometheus) SetGauge(name string, value float64) {
	p.gauges.WithLabelValues(name).Set(value)
}

func (p *Prometheus) RecordTiming(name string, duration time.Duration) {
	p.timings.WithLabelValues(name).Observe(duration.Seconds())
}

// Registry returns the registry the collectors live on.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
