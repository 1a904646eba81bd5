package providers

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config holds the endpoints and resilience settings of both providers.
type Config struct {
	SoilURL    string        `yaml:"soil_url"`
	ClimateURL string        `yaml:"climate_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker placed in front of each provider.
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			OpenTimeout:      30 * time.Second,
			FailureThreshold: 0.5,
			MinRequests:      5,
		},
	}
}

// Validate checks the configuration. Empty URLs disable the provider.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SoilURL, is.URL),
		validation.Field(&c.ClimateURL, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Breaker),
	)
}

func (b BreakerConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.FailureThreshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&b.OpenTimeout, validation.Min(time.Duration(0))),
		validation.Field(&b.Interval, validation.Min(time.Duration(0))),
	)
}
