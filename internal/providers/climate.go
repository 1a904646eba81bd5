package providers

import (
	"context"

	"github.com/goliatone/go-parcel-cache/aggregate"
)

// ClimateName identifies the climate provider.
const ClimateName = "climate"

// ClimateClient fetches climate series.
type ClimateClient struct {
	c *client
}

// NewClimateClient builds a client for cfg.ClimateURL.
func NewClimateClient(cfg Config, opts ...Option) (*ClimateClient, error) {
	c, err := newClient(ClimateName, cfg.ClimateURL, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &ClimateClient{c: c}, nil
}

// FetchClimate implements aggregate.ClimateFetcher. Range bounds are forwarded
// as start/end query parameters when set.
func (s *ClimateClient) FetchClimate(ctx context.Context, loc aggregate.Location, rng aggregate.ClimateRange) (*aggregate.ClimateSeries, error) {
	query := locationQuery(loc)
	if rng.Start != "" {
		query.Set("start", rng.Start)
	}
	if rng.End != "" {
		query.Set("end", rng.End)
	}

	raw, err := s.c.fetch(ctx, query)
	if err != nil || raw == nil {
		return nil, err
	}
	return &aggregate.ClimateSeries{
		Source:    s.c.base.Host,
		Start:     rng.Start,
		End:       rng.End,
		FetchedAt: s.c.clock.Now().UTC(),
		Data:      raw,
	}, nil
}

var _ aggregate.ClimateFetcher = (*ClimateClient)(nil)
