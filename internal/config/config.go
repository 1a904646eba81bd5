// Package config loads service configuration from defaults, an optional YAML
// file and PARCELCACHE_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-parcel-cache/aggregate"
	"github.com/goliatone/go-parcel-cache/cache"
	"github.com/goliatone/go-parcel-cache/internal/providers"
	"github.com/goliatone/go-parcel-cache/internal/store"
	"github.com/goliatone/go-parcel-cache/parcels"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PARCELCACHE_"

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Log       LogConfig        `yaml:"log"`
	Cache     cache.Config     `yaml:"cache"`
	Database  store.Config     `yaml:"database"`
	Providers providers.Config `yaml:"providers"`
	Aggregate AggregateConfig  `yaml:"aggregate"`
	Records   RecordsConfig    `yaml:"records"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

// AggregateConfig tunes the full data read path.
type AggregateConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	SingleFlight bool          `yaml:"single_flight"`
}

// RecordsConfig tunes record-level caching.
type RecordsConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns a configuration that runs locally against an in-memory
// cache and sqlite database.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  20 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log:   LogConfig{Mode: "development", Level: "info"},
		Cache: cache.DefaultConfig(),
		Database: store.Config{
			Driver: store.DriverSQLite,
			DSN:    "file:parcelcache.db?cache=shared&_foreign_keys=on",
		},
		Providers: providers.DefaultConfig(),
		Aggregate: AggregateConfig{TTL: aggregate.DefaultTTL},
		Records:   RecordsConfig{TTL: parcels.DefaultRecordTTL},
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Providers),
		validation.Field(&c.Aggregate),
		validation.Field(&c.Records),
	); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.validateTTLCeiling()
}

// validateTTLCeiling rejects entry ttls the memory backend would cut short:
// sturdyc drops every entry once cache.max_ttl elapses.
func (c Config) validateTTLCeiling() error {
	if c.Cache.Backend != cache.BackendMemory {
		return nil
	}

	ceiling := validation.Max(c.Cache.MaxTTL).
		Error(fmt.Sprintf("must be no greater than cache.max_ttl (%s) with the memory backend", c.Cache.MaxTTL))
	return validation.Errors{
		"aggregate.ttl": validation.Validate(c.Aggregate.TTL, ceiling),
		"records.ttl":   validation.Validate(c.Records.TTL, ceiling),
	}.Filter()
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ShutdownTimeout, validation.Required),
	)
}

func (a AggregateConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.TTL, validation.Required, validation.Min(time.Second)),
	)
}

func (r RecordsConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TTL, validation.Required, validation.Min(time.Second)),
	)
}
