package aggregate

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-parcel-cache/cache"
	"github.com/goliatone/go-parcel-cache/internal/apperrors"
	"github.com/goliatone/go-parcel-cache/internal/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a rebuilt aggregate stays cached.
const DefaultTTL = 15 * time.Minute

// DefaultFlightTimeout bounds a shared rebuild, which no single caller can
// cancel.
const DefaultFlightTimeout = 30 * time.Second

const tracerName = "github.com/goliatone/go-parcel-cache/aggregate"

// Service assembles and caches FullData views.
type Service struct {
	cache   cache.ObjectCache
	codec   cache.Codec
	records RecordStore
	soil    SoilFetcher
	climate ClimateFetcher

	ttl     time.Duration
	clock   clockwork.Clock
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer

	flight        *singleflight.Group
	flightTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithCodec replaces the msgpack payload codec.
func WithCodec(codec cache.Codec) Option {
	return func(s *Service) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithClock sets the clock used for generation timestamps and rebuild timing.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation. A nil Metrics records nothing.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer replaces the global otel tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithSingleFlight collapses concurrent rebuilds of the same aggregate for the
// same principal into one. Without it every concurrent miss rebuilds. The
// shared rebuild is detached from the callers' cancellation and bounded by
// DefaultFlightTimeout; a caller that gives up stops waiting but does not
// abort the rebuild for the others.
func WithSingleFlight() Option {
	return func(s *Service) {
		s.flight = &singleflight.Group{}
	}
}

// WithFlightTimeout overrides DefaultFlightTimeout.
func WithFlightTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.flightTimeout = timeout
		}
	}
}

// NewService wires the aggregate read path. soil and climate may be nil, in
// which case the corresponding fields are always empty.
func NewService(objectCache cache.ObjectCache, records RecordStore, soil SoilFetcher, climate ClimateFetcher, opts ...Option) *Service {
	s := &Service{
		cache:   objectCache,
		codec:   cache.NewMsgpackCodec(),
		records: records,
		soil:    soil,
		climate: climate,
		ttl:     DefaultTTL,
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),

		flightTimeout: DefaultFlightTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// KeyFor returns the cache key of the aggregate for parcelID and rng.
func KeyFor(parcelID uuid.UUID, rng ClimateRange) string {
	if variant := rng.Variant(); variant != "" {
		return cache.VariantKey(cache.KindParcelFullData, parcelID.String(), variant)
	}
	return cache.KeyFor(cache.KindParcelFullData, parcelID.String())
}

// GetFullAggregate returns the full data view of parcelID as seen by principal.
// It fails with a not found error when the parcel does not exist or belongs to
// another principal. Provider and cache store failures never fail the call.
func (s *Service) GetFullAggregate(ctx context.Context, principal, parcelID uuid.UUID, rng ClimateRange) (*FullData, error) {
	ctx, span := s.tracer.Start(ctx, "aggregate.GetFullAggregate",
		trace.WithAttributes(
			attribute.String("parcel.id", parcelID.String()),
			attribute.Bool("climate.ranged", !rng.IsZero()),
		),
	)
	defer span.End()

	key := KeyFor(parcelID, rng)

	cached, found, err := cache.Load[*FullData](ctx, s.cache, s.codec, key)
	if err != nil {
		s.metrics.cacheError("get")
		s.logger.Warn("cache read failed, rebuilding aggregate",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	if found && cached != nil {
		if cached.OwnerID != principal.String() {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return nil, apperrors.NotFound("parcel", parcelID.String())
		}
		s.metrics.hit()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		cached.normalize()
		return cached, nil
	}

	s.metrics.miss()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var view *FullData
	if s.flight != nil {
		view, err = s.sharedRebuild(ctx, principal, parcelID, rng, key)
	} else {
		view, err = s.rebuild(ctx, principal, parcelID, rng, key)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return view, nil
}

func (s *Service) sharedRebuild(ctx context.Context, principal, parcelID uuid.UUID, rng ClimateRange, key string) (*FullData, error) {
	ch := s.flight.DoChan(key+"|"+principal.String(), func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flightTimeout)
		defer cancel()
		return s.rebuild(buildCtx, principal, parcelID, rng, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*FullData), nil
	}
}

// rebuild assembles the view and stores it. Nothing is stored once ctx is
// done, since provider fields may have been emptied by the cancellation.
func (s *Service) rebuild(ctx context.Context, principal, parcelID uuid.UUID, rng ClimateRange, key string) (*FullData, error) {
	start := s.clock.Now()

	parcel, err := s.records.GetParcel(ctx, principal, parcelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("parcel", parcelID.String())
		}
		return nil, apperrors.Internal(err, "load parcel")
	}

	rel, err := s.loadRelated(ctx, parcel.ID)
	if err != nil {
		return nil, apperrors.Internal(err, "load parcel relations")
	}

	parcelView := newParcelView(parcel, rel.points)
	soil, climate := s.loadExternal(ctx, parcelView.Centroid, rng)
	if err := ctx.Err(); err != nil {
		s.logger.Debug("aggregate rebuild abandoned", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	view := &FullData{
		Parcel:       parcelView,
		SoilData:     soil,
		ClimateData:  climate,
		ParcelCrops:  summarizeCrops(rel.crops, rel.stats),
		YieldRecords: yieldViews(rel.yields),
		GeneratedAt:  s.clock.Now().UTC(),
		OwnerID:      parcel.OwnerID.String(),
	}

	if err := cache.Store(ctx, s.cache, s.codec, key, view, s.ttl); err != nil {
		s.metrics.cacheError("set")
		s.logger.Warn("cache write failed, aggregate served uncached",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	s.metrics.observeRebuild(s.clock.Since(start))
	s.logger.Debug("aggregate rebuilt",
		zap.String("key", key),
		zap.Int("parcel_crops", len(view.ParcelCrops)),
		zap.Int("yield_records", len(view.YieldRecords)),
	)
	return view, nil
}
