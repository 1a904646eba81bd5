package cache

import (
	"github.com/goliatone/go-parcel-cache/internal/cacheinfra"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stats is a snapshot of a backend's operation counters.
type Stats = cacheinfra.StatsSnapshot

// StatsProvider is implemented by backends that count their own operations.
// The in-process memory backend does; Redis keeps its own statistics.
type StatsProvider interface {
	Stats() Stats
}

// RegisterStats exposes the operation counters of c on reg. It reports false
// and registers nothing when the backend does not count operations.
func RegisterStats(reg prometheus.Registerer, c ObjectCache) bool {
	sp, ok := c.(StatsProvider)
	if !ok {
		return false
	}

	factory := promauto.With(reg)
	counters := []struct {
		name  string
		help  string
		value func(Stats) int64
	}{
		{"hits", "Object cache reads that found a live entry", func(s Stats) int64 { return s.Hits }},
		{"misses", "Object cache reads that found nothing, expired entries included", func(s Stats) int64 { return s.Misses }},
		{"expired", "Object cache entries dropped on read after their ttl", func(s Stats) int64 { return s.Expired }},
		{"sets", "Object cache writes", func(s Stats) int64 { return s.Sets }},
		{"deletes", "Object cache evictions", func(s Stats) int64 { return s.Deletes }},
	}
	for _, counter := range counters {
		value := counter.value
		factory.NewCounterFunc(prometheus.CounterOpts{
			Name: "parcelcache_object_cache_" + counter.name + "_total",
			Help: counter.help,
		}, func() float64 {
			return float64(value(sp.Stats()))
		})
	}
	return true
}
