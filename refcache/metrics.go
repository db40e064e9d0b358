/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package refcache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-cachekit/internal/libinfo"
)

// MetricsCollector represents a collector of metrics to analyze how (effectively or not) cache is used.
type MetricsCollector interface {
	// SetAmount sets the number of entries in the cache.
	SetAmount(int)

	// IncHits increments the number of reads served by a cached value.
	IncHits()

	// IncMisses increments the number of reads that found no live value.
	IncMisses()

	// IncProductions increments the number of values built by the producer.
	IncProductions()

	// IncReleases increments the number of completed releases.
	IncReleases()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// If it is not empty, PrometheusMetrics.MustCurryWith must be called with the same labels.
	CurriedLabelNames []string
}

// PrometheusMetrics represents a Prometheus metrics for the cache.
type PrometheusMetrics struct {
	EntriesAmount    *prometheus.GaugeVec
	HitsTotal        *prometheus.CounterVec
	MissesTotal      *prometheus.CounterVec
	ProductionsTotal *prometheus.CounterVec
	ReleasesTotal    *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)

	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, opts.CurriedLabelNames)
	}
	return &PrometheusMetrics{
		EntriesAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "refcache_entries_amount",
			Help:        "Number of entries in the cache, including entries being released.",
			ConstLabels: constLabels,
		}, opts.CurriedLabelNames),
		HitsTotal:        counter("refcache_hits_total", "Number of reads served by a cached value."),
		MissesTotal:      counter("refcache_misses_total", "Number of reads that found no live value."),
		ProductionsTotal: counter("refcache_productions_total", "Number of values built by the producer."),
		ReleasesTotal:    counter("refcache_releases_total", "Number of released (reclaimed, removed or replaced) values."),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount:    pm.EntriesAmount.MustCurryWith(labels),
		HitsTotal:        pm.HitsTotal.MustCurryWith(labels),
		MissesTotal:      pm.MissesTotal.MustCurryWith(labels),
		ProductionsTotal: pm.ProductionsTotal.MustCurryWith(labels),
		ReleasesTotal:    pm.ReleasesTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.EntriesAmount, pm.HitsTotal, pm.MissesTotal, pm.ProductionsTotal, pm.ReleasesTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.EntriesAmount)
	prometheus.Unregister(pm.HitsTotal)
	prometheus.Unregister(pm.MissesTotal)
	prometheus.Unregister(pm.ProductionsTotal)
	prometheus.Unregister(pm.ReleasesTotal)
}

// SetAmount sets the number of entries in the cache.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.With(nil).Set(float64(amount))
}

// IncHits increments the number of reads served by a cached value.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.With(nil).Inc()
}

// IncMisses increments the number of reads that found no live value.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.With(nil).Inc()
}

// IncProductions increments the number of values built by the producer.
func (pm *PrometheusMetrics) IncProductions() {
	pm.ProductionsTotal.With(nil).Inc()
}

// IncReleases increments the number of completed releases.
func (pm *PrometheusMetrics) IncReleases() {
	pm.ReleasesTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)   {}
func (disabledMetrics) IncHits()        {}
func (disabledMetrics) IncMisses()      {}
func (disabledMetrics) IncProductions() {}
func (disabledMetrics) IncReleases()    {}
