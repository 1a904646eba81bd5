package config

import (
	"fmt"
	"strconv"
	"time"
)

type lookupFunc func(string) (string, bool)

type envBinding struct {
	name  string
	apply func(string) error
}

func applyEnv(cfg *Config, lookup lookupFunc) error {
	bindings := []envBinding{
		{"SERVER_ADDR", setString(&cfg.Server.Addr)},
		{"SERVER_REQUEST_TIMEOUT", setDuration(&cfg.Server.RequestTimeout)},
		{"SERVER_SHUTDOWN_TIMEOUT", setDuration(&cfg.Server.ShutdownTimeout)},
		{"LOG_MODE", setString(&cfg.Log.Mode)},
		{"LOG_LEVEL", setString(&cfg.Log.Level)},
		{"CACHE_BACKEND", setString(&cfg.Cache.Backend)},
		{"CACHE_CAPACITY", setInt(&cfg.Cache.Capacity)},
		{"CACHE_MAX_TTL", setDuration(&cfg.Cache.MaxTTL)},
		{"REDIS_URL", setString(&cfg.Cache.Redis.URL)},
		{"REDIS_POOL_SIZE", setInt(&cfg.Cache.Redis.PoolSize)},
		{"DB_DRIVER", setString(&cfg.Database.Driver)},
		{"DB_DSN", setString(&cfg.Database.DSN)},
		{"SOIL_URL", setString(&cfg.Providers.SoilURL)},
		{"CLIMATE_URL", setString(&cfg.Providers.ClimateURL)},
		{"PROVIDER_TIMEOUT", setDuration(&cfg.Providers.Timeout)},
		{"AGGREGATE_TTL", setDuration(&cfg.Aggregate.TTL)},
		{"AGGREGATE_SINGLE_FLIGHT", setBool(&cfg.Aggregate.SingleFlight)},
		{"RECORDS_TTL", setDuration(&cfg.Records.TTL)},
	}

	for _, b := range bindings {
		raw, ok := lookup(EnvPrefix + b.name)
		if !ok || raw == "" {
			continue
		}
		if err := b.apply(raw); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.name, err)
		}
	}
	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
