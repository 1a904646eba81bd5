package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goliatone/go-parcel-cache/aggregate"
	"github.com/goliatone/go-parcel-cache/cache"
	"github.com/goliatone/go-parcel-cache/internal/config"
	"github.com/goliatone/go-parcel-cache/internal/providers"
	"github.com/goliatone/go-parcel-cache/internal/store"
	"github.com/goliatone/go-parcel-cache/internal/transport/httpapi"
	"github.com/goliatone/go-parcel-cache/invalidation"
	"github.com/goliatone/go-parcel-cache/parcels"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Container owns every long-lived component of the service and the order in
// which they are released.
type Container struct {
	config   config.Config
	logger   *zap.Logger
	registry *prometheus.Registry

	cache       cache.ObjectCache
	closeCache  func() error
	store       *store.Store
	coordinator *invalidation.Coordinator
	aggregate   *aggregate.Service
	parcels     *parcels.Service
	handler     *httpapi.Handler
}

// Option customises NewContainer.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	clock    clockwork.Clock
}

// WithLogger sets the root logger; components get named children.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegistry sets the registry metrics are registered with and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithClock sets the clock used for cache expiry and aggregate timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// NewContainer opens the database and cache backend described by cfg and wires
// the services on top of them.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := &options{
		logger:   zap.NewNop(),
		registry: prometheus.NewRegistry(),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Container{config: cfg, logger: o.logger, registry: o.registry}

	objectCache, closeCache, err := cache.NewObjectCache(ctx, cfg.Cache,
		cache.WithClock(o.clock),
		cache.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("cache backend: %w", err)
	}
	c.cache, c.closeCache = objectCache, closeCache
	cache.RegisterStats(o.registry, objectCache)

	db, err := store.Open(cfg.Database)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.store = db
	if err := db.CreateSchema(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.coordinator, err = invalidation.NewCoordinator(objectCache, invalidation.DefaultLinks,
		invalidation.WithLogger(o.logger.Named("invalidation")),
		invalidation.WithVariantKinds(cache.KindParcelFullData),
	)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	soil, climate, err := newProviders(cfg.Providers, o)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	aggOpts := []aggregate.Option{
		aggregate.WithTTL(cfg.Aggregate.TTL),
		aggregate.WithClock(o.clock),
		aggregate.WithLogger(o.logger.Named("aggregate")),
		aggregate.WithMetrics(aggregate.NewMetrics(o.registry)),
	}
	if cfg.Aggregate.SingleFlight {
		aggOpts = append(aggOpts, aggregate.WithSingleFlight())
	}
	c.aggregate = aggregate.NewService(objectCache, db, soil, climate, aggOpts...)

	c.parcels = parcels.NewService(db, objectCache, c.coordinator,
		parcels.WithRecordTTL(cfg.Records.TTL),
		parcels.WithLogger(o.logger.Named("parcels")),
	)

	c.handler = httpapi.New(c.parcels, c.aggregate, o.logger.Named("http"), cfg.Server.RequestTimeout)
	return c, nil
}

// newProviders builds the configured provider clients. A provider without a
// URL is left nil so its field is always empty.
func newProviders(cfg providers.Config, o *options) (aggregate.SoilFetcher, aggregate.ClimateFetcher, error) {
	popts := []providers.Option{
		providers.WithLogger(o.logger.Named("providers")),
		providers.WithClock(o.clock),
	}

	var (
		soil    aggregate.SoilFetcher
		climate aggregate.ClimateFetcher
	)
	if cfg.SoilURL != "" {
		client, err := providers.NewSoilClient(cfg, popts...)
		if err != nil {
			return nil, nil, err
		}
		soil = client
	}
	if cfg.ClimateURL != "" {
		client, err := providers.NewClimateClient(cfg, popts...)
		if err != nil {
			return nil, nil, err
		}
		climate = client
	}
	return soil, climate, nil
}

// Router serves the API, /metrics and /healthz.
func (c *Container) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", c.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	c.handler.Register(r)
	return r
}

func (c *Container) health(w http.ResponseWriter, r *http.Request) {
	if err := c.store.Ping(r.Context()); err != nil {
		c.logger.Warn("health check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Cache() cache.ObjectCache {
	return c.cache
}

func (c *Container) Store() *store.Store {
	return c.store
}

func (c *Container) Coordinator() *invalidation.Coordinator {
	return c.coordinator
}

func (c *Container) Aggregate() *aggregate.Service {
	return c.aggregate
}

func (c *Container) Parcels() *parcels.Service {
	return c.parcels
}

// Close releases the database and the cache backend.
func (c *Container) Close() error {
	var errs []error
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	if c.closeCache != nil {
		errs = append(errs, c.closeCache())
	}
	return errors.Join(errs...)
}
