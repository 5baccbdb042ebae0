// Package metrics exposes Prometheus counters for gene resolution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes.
const (
	OutcomeResolved = "resolved"
	OutcomeNoMatch  = "no_match"
	OutcomeNoHits   = "no_hits"
	OutcomeError    = "error"
)

// Batch statuses.
const (
	BatchApplied = "applied"
	BatchReset   = "reset"
)

// Collector holds the application's metrics on its own registry.
// All methods are safe to call on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	Lookups       *prometheus.CounterVec
	Batches       *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	Mounts        prometheus.Counter
}

// NewCollector creates a collector with metrics under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gene_lookups_total",
				Help:      "Gene lookups against the annotation service by outcome",
			},
			[]string{"outcome"},
		),
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_batches_total",
				Help:      "Resolution batches by how they were applied to the view",
			},
			[]string{"status"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_batch_duration_seconds",
				Help:      "Time for all lookups of a batch to settle",
				Buckets:   prometheus.DefBuckets,
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hit_cache_hits_total",
				Help:      "Lookups answered from the hit cache",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hit_cache_misses_total",
				Help:      "Lookups that went to the annotation service",
			},
		),
		Mounts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ideogram_mounts_total",
				Help:      "Renderer instances constructed",
			},
		),
	}

	c.registry.MustRegister(
		c.Lookups,
		c.Batches,
		c.BatchDuration,
		c.CacheHits,
		c.CacheMisses,
		c.Mounts,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveLookup(outcome string) {
	if c == nil {
		return
	}
	c.Lookups.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveBatch(status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Batches.WithLabelValues(status).Inc()
	c.BatchDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
	} else {
		c.CacheMisses.Inc()
	}
}

func (c *Collector) ObserveMount() {
	if c == nil {
		return
	}
	c.Mounts.Inc()
}
