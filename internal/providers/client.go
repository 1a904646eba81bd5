// Package providers holds the HTTP clients for the external soil and climate
// data sources. Each client runs behind its own circuit breaker and a per-call
// timeout, and never retries.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const maxBodyBytes = 4 << 20

// Option customises a provider client.
type Option func(*client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for responses and breaker transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(c *client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used for fetch timestamps and timings.
func WithClock(clock clockwork.Clock) Option {
	return func(c *client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

type client struct {
	name    string
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	logger  *zap.Logger
}

func newClient(name, rawURL string, cfg Config, opts ...Option) (*client, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s provider url: %w", name, err)
	}

	c := &client{
		name:    name,
		base:    base,
		http:    &http.Client{},
		timeout: cfg.Timeout,
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultConfig().Timeout
	}

	breaker := cfg.Breaker
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breaker.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breaker.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return !countsAgainstProvider(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("provider circuit state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c, nil
}

// fetch issues a GET with the given query. A 404 or an empty/null body is
// reported as (nil, nil).
func (c *client) fetch(ctx context.Context, query url.Values) (json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, newProviderError(ErrorCircuitOpen, c.name, "call rejected", fmt.Errorf("%w: %v", ErrCircuitOpen, err))
		}
		return nil, err
	}

	raw, _ := result.(json.RawMessage)
	return raw, nil
}

// countsAgainstProvider reports whether err is a provider failure for the
// breaker. Bare context errors mean the caller gave up, and bad data is a
// well-formed answer the provider will keep giving.
func countsAgainstProvider(err error) bool {
	if err == nil {
		return false
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return perr.Category != ErrorBadData
}

// do performs one request under the per-call timeout. When the caller's own
// ctx is done the bare context error is returned instead of a ProviderError.
func (c *client) do(parent context.Context, query url.Values) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	u := *c.base
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, newProviderError(ErrorInternal, c.name, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.clock.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newProviderError(ErrorTimeout, c.name, "request timed out", err)
		}
		return nil, newProviderError(ErrorProviderOutage, c.name, "request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("provider responded",
		zap.String("provider", c.name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", c.clock.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newProviderError(ErrorRateLimited, c.name, "rate limited", nil)
	case resp.StatusCode >= 500:
		return nil, newProviderError(ErrorProviderOutage, c.name, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, newProviderError(ErrorBadData, c.name, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newProviderError(ErrorTimeout, c.name, "reading body timed out", err)
		}
		return nil, newProviderError(ErrorProviderOutage, c.name, "read body", err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, newProviderError(ErrorBadData, c.name, "response is not valid json", nil)
	}
	return json.RawMessage(body), nil
}
