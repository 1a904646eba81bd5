package cacheinfra

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/viccon/sturdyc"
)

// memoryEntry carries its own expiry so every entry can have a different ttl
// while sturdyc enforces the global ceiling and capacity eviction.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process ObjectCache backed by a sturdyc client.
type MemoryStore struct {
	client *sturdyc.Client[memoryEntry]
	clock  clockwork.Clock
	stats  *Stats
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the clock used for expiry checks. Tests pass a fake clock.
func WithClock(clock clockwork.Clock) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore creates a new sturdyc backed store.
// It validates the configuration and initializes a sturdyc client with the provided settings.
//
// Capacity, NumShards, TTL and EvictionPercentage are passed to sturdyc.New();
// the eviction interval is applied as an option when set.
func NewMemoryStore(cfg Config, opts ...MemoryOption) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var sturdycOpts []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		sturdycOpts = append(sturdycOpts, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	s := &MemoryStore{
		client: sturdyc.New[memoryEntry](
			cfg.Capacity,
			cfg.NumShards,
			cfg.TTL,
			cfg.EvictionPercentage,
			sturdycOpts...,
		),
		clock: clockwork.NewRealClock(),
		stats: newStats(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

// Get returns a copy of the stored payload. Entries past their expiry are
// removed and reported as absent.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.client.Get(key)
	if !ok {
		s.stats.misses.Inc()
		return nil, false, nil
	}

	if !s.clock.Now().Before(entry.expiresAt) {
		s.client.Delete(key)
		s.stats.expired.Inc()
		s.stats.misses.Inc()
		return nil, false, nil
	}

	s.stats.hits.Inc()
	return bytes.Clone(entry.value), true, nil
}

// Set stores a copy of value until ttl elapses on the store clock.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		s.client.Delete(key)
		return nil
	}

	s.client.Set(key, memoryEntry{
		value:     bytes.Clone(value),
		expiresAt: s.clock.Now().Add(ttl),
	})
	s.stats.sets.Inc()
	return nil
}

// Delete removes a single entry. Missing keys are not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	s.stats.deletes.Inc()
	return nil
}

// DeleteByPrefix removes all entries that have keys starting with the given prefix.
func (s *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
			s.stats.deletes.Inc()
		}
	}
	return nil
}

// Stats exposes operation counters.
func (s *MemoryStore) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// Len reports the number of entries held by sturdyc, expired ones included.
func (s *MemoryStore) Len() int {
	return len(s.client.ScanKeys())
}
