package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-parcel-cache/internal/cacheinfra"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            string        `yaml:"backend"`
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	MaxTTL             time.Duration `yaml:"max_ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
	Redis              RedisConfig   `yaml:"redis"`
}

// RedisConfig mirrors the connection options of the shared store.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.Backend = BackendMemory
	cfg.Redis = RedisConfig{
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}
	return cfg
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return c.toInternal().Validate()
	case BackendRedis:
		if c.Redis.URL == "" {
			return &cacheinfra.ConfigError{Field: "Redis.URL", Message: "is required for the redis backend"}
		}
		return nil
	default:
		return &cacheinfra.ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
}

// Option customises NewObjectCache.
type Option func(*options)

type options struct {
	clock  clockwork.Clock
	logger *zap.Logger
}

// WithClock sets the clock the memory backend uses for expiry checks.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger used by the backend constructors.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewObjectCache constructs the configured backend. The returned close
// function releases backend resources and is always safe to call.
func NewObjectCache(ctx context.Context, cfg Config, opts ...Option) (ObjectCache, func() error, error) {
	o := &options{clock: clockwork.NewRealClock(), logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case BackendRedis:
		client, err := cacheinfra.NewRedisClient(ctx, cfg.Redis.toInternal())
		if err != nil {
			return nil, nil, err
		}
		o.logger.Info("cache backend ready", zap.String("backend", BackendRedis))
		return cacheinfra.NewRedisStore(client), client.Close, nil
	default:
		store, err := cacheinfra.NewMemoryStore(cfg.toInternal(), cacheinfra.WithClock(o.clock))
		if err != nil {
			return nil, nil, err
		}
		o.logger.Info("cache backend ready",
			zap.String("backend", BackendMemory),
			zap.Int("capacity", cfg.Capacity),
			zap.Duration("max_ttl", cfg.MaxTTL),
		)
		return store, func() error { return nil }, nil
	}
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.MaxTTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func (r RedisConfig) toInternal() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		URL:          r.URL,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		MaxTTL:             cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
