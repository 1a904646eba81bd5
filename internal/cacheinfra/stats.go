package cacheinfra

import "github.com/puzpuzpuz/xsync/v3"

// Stats counts store operations without taking locks on the hot path.
type Stats struct {
	hits    *xsync.Counter
	misses  *xsync.Counter
	expired *xsync.Counter
	sets    *xsync.Counter
	deletes *xsync.Counter
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Hits    int64
	Misses  int64
	Expired int64
	Sets    int64
	Deletes int64
}

func newStats() *Stats {
	return &Stats{
		hits:    xsync.NewCounter(),
		misses:  xsync.NewCounter(),
		expired: xsync.NewCounter(),
		sets:    xsync.NewCounter(),
		deletes: xsync.NewCounter(),
	}
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:    s.hits.Value(),
		Misses:  s.misses.Value(),
		Expired: s.expired.Value(),
		Sets:    s.sets.Value(),
		Deletes: s.deletes.Value(),
	}
}
