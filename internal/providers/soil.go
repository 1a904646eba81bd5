package providers

import (
	"context"
	"net/url"
	"strconv"

	"github.com/goliatone/go-parcel-cache/aggregate"
)

// SoilName identifies the soil provider in logs, errors and breaker state.
const SoilName = "soil"

// SoilClient fetches soil composition snapshots.
type SoilClient struct {
	c *client
}

// NewSoilClient builds a client for cfg.SoilURL.
func NewSoilClient(cfg Config, opts ...Option) (*SoilClient, error) {
	c, err := newClient(SoilName, cfg.SoilURL, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &SoilClient{c: c}, nil
}

// FetchSoil implements aggregate.SoilFetcher.
func (s *SoilClient) FetchSoil(ctx context.Context, loc aggregate.Location) (*aggregate.SoilSnapshot, error) {
	raw, err := s.c.fetch(ctx, locationQuery(loc))
	if err != nil || raw == nil {
		return nil, err
	}
	return &aggregate.SoilSnapshot{
		Source:    s.c.base.Host,
		FetchedAt: s.c.clock.Now().UTC(),
		Data:      raw,
	}, nil
}

func locationQuery(loc aggregate.Location) url.Values {
	return url.Values{
		"lat": {strconv.FormatFloat(loc.Latitude, 'f', 6, 64)},
		"lon": {strconv.FormatFloat(loc.Longitude, 'f', 6, 64)},
	}
}

var _ aggregate.SoilFetcher = (*SoilClient)(nil)
