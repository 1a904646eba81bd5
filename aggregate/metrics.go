package aggregate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes the aggregate read path. A nil *Metrics records nothing.
type Metrics struct {
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheErrors     *prometheus.CounterVec
	DegradedFetches *prometheus.CounterVec
	RebuildDuration prometheus.Histogram
}

// NewMetrics registers the aggregate metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "parcelcache_full_data_hits_total",
			Help: "Full data requests served from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "parcelcache_full_data_misses_total",
			Help: "Full data requests that rebuilt the aggregate",
		}),
		CacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parcelcache_cache_errors_total",
			Help: "Cache store failures absorbed by the aggregate path",
		}, []string{"op"}),
		DegradedFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parcelcache_provider_degraded_total",
			Help: "External provider fetches that fell back to an empty field",
		}, []string{"provider"}),
		RebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parcelcache_full_data_rebuild_duration_seconds",
			Help:    "Duration of full data rebuilds on cache miss",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) cacheError(op string) {
	if m != nil {
		m.CacheErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) degraded(provider string) {
	if m != nil {
		m.DegradedFetches.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) observeRebuild(d time.Duration) {
	if m != nil {
		m.RebuildDuration.Observe(d.Seconds())
	}
}
