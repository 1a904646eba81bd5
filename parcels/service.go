package parcels

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-parcel-cache/cache"
	"github.com/goliatone/go-parcel-cache/internal/apperrors"
	"github.com/goliatone/go-parcel-cache/internal/store"
	"github.com/goliatone/go-parcel-cache/invalidation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRecordTTL is how long a parcel record stays cached.
const DefaultRecordTTL = 15 * time.Minute

// Records is the persistence the service writes through.
type Records interface {
	GetParcel(ctx context.Context, ownerID, id uuid.UUID) (*store.Parcel, error)
	ListParcels(ctx context.Context, ownerID uuid.UUID) ([]store.Parcel, error)
	CreateParcel(ctx context.Context, parcel *store.Parcel) (*store.Parcel, error)
	UpdateParcel(ctx context.Context, parcel *store.Parcel) (*store.Parcel, error)
	DeleteParcel(ctx context.Context, id uuid.UUID) error

	LocatePoint(ctx context.Context, id uuid.UUID) (store.Ownership, error)
	CreatePoint(ctx context.Context, point *store.ParcelPoint) (*store.ParcelPoint, error)
	DeletePoint(ctx context.Context, id uuid.UUID) error

	GetCrop(ctx context.Context, id uuid.UUID) (*store.Crop, error)
	CreateCrop(ctx context.Context, crop *store.Crop) (*store.Crop, error)
	UpdateCrop(ctx context.Context, crop *store.Crop) (*store.Crop, error)

	LocateParcelCrop(ctx context.Context, id uuid.UUID) (store.Ownership, error)
	CreateParcelCrop(ctx context.Context, pc *store.ParcelCrop) (*store.ParcelCrop, error)
	DeleteParcelCrop(ctx context.Context, id uuid.UUID) error

	LocateYieldRecord(ctx context.Context, id uuid.UUID) (store.Ownership, error)
	GetYieldRecord(ctx context.Context, id uuid.UUID) (*store.YieldRecord, error)
	CreateYieldRecord(ctx context.Context, record *store.YieldRecord) (*store.YieldRecord, error)
	UpdateYieldRecord(ctx context.Context, record *store.YieldRecord) (*store.YieldRecord, error)
	DeleteYieldRecord(ctx context.Context, id uuid.UUID) error
}

// Service performs writes and record-level cached reads.
type Service struct {
	records     Records
	cache       cache.ObjectCache
	codec       cache.Codec
	invalidator invalidation.Invalidator
	ttl         time.Duration
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for cache warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecordTTL overrides DefaultRecordTTL.
func WithRecordTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithCodec replaces the msgpack codec used for cached records.
func WithCodec(codec cache.Codec) Option {
	return func(s *Service) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// NewService builds the mutation service.
func NewService(records Records, objectCache cache.ObjectCache, invalidator invalidation.Invalidator, opts ...Option) *Service {
	s := &Service{
		records:     records,
		cache:       objectCache,
		codec:       cache.NewMsgpackCodec(),
		invalidator: invalidator,
		ttl:         DefaultRecordTTL,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func parcelRef(id uuid.UUID) cache.EntityRef {
	return cache.Ref(cache.KindParcel, id.String())
}

func fullDataRef(parcelID uuid.UUID) cache.EntityRef {
	return cache.Ref(cache.KindParcelFullData, parcelID.String())
}

// invalidate runs after the write has committed. Failures were already logged
// by the coordinator and never fail the write.
func (s *Service) invalidate(ctx context.Context, entity cache.EntityRef, owners ...cache.EntityRef) {
	if err := s.invalidator.Invalidate(ctx, entity, owners...); err != nil {
		s.logger.Debug("write committed with incomplete invalidation", zap.Stringer("entity", entity))
	}
}

// GetParcel reads a parcel through the record cache.
func (s *Service) GetParcel(ctx context.Context, principal, id uuid.UUID) (*store.Parcel, error) {
	key := parcelRef(id).Key()

	cached, found, err := cache.Load[*store.Parcel](ctx, s.cache, s.codec, key)
	if err != nil {
		s.logger.Warn("cache read failed, loading parcel from store", zap.String("key", key), zap.Error(err))
	}
	if found && cached != nil {
		if cached.OwnerID != principal {
			return nil, apperrors.NotFound("parcel", id.String())
		}
		return cached, nil
	}

	parcel, err := s.ownedParcel(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if err := cache.Store(ctx, s.cache, s.codec, key, parcel, s.ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return parcel, nil
}

// ListParcels returns the principal's parcels. Lists are not cached.
func (s *Service) ListParcels(ctx context.Context, principal uuid.UUID) ([]store.Parcel, error) {
	parcels, err := s.records.ListParcels(ctx, principal)
	if err != nil {
		return nil, apperrors.Internal(err, "list parcels")
	}
	return parcels, nil
}

func (s *Service) CreateParcel(ctx context.Context, principal uuid.UUID, in ParcelInput) (*store.Parcel, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}

	parcel, err := s.records.CreateParcel(ctx, &store.Parcel{OwnerID: principal, Name: in.Name})
	if err != nil {
		return nil, apperrors.Internal(err, "create parcel")
	}

	s.invalidate(ctx, parcelRef(parcel.ID), fullDataRef(parcel.ID))
	return parcel, nil
}

func (s *Service) UpdateParcel(ctx context.Context, principal, id uuid.UUID, in ParcelInput) (*store.Parcel, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}

	parcel, err := s.ownedParcel(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	parcel.Name = in.Name
	updated, err := s.records.UpdateParcel(ctx, parcel)
	if err != nil {
		return nil, apperrors.Internal(err, "update parcel")
	}

	s.invalidate(ctx, parcelRef(id), fullDataRef(id))
	return updated, nil
}

func (s *Service) DeleteParcel(ctx context.Context, principal, id uuid.UUID) error {
	if _, err := s.ownedParcel(ctx, principal, id); err != nil {
		return err
	}
	if err := s.records.DeleteParcel(ctx, id); err != nil {
		return apperrors.Internal(err, "delete parcel")
	}

	s.invalidate(ctx, parcelRef(id), fullDataRef(id))
	return nil
}

func (s *Service) AddPoint(ctx context.Context, principal uuid.UUID, in PointInput) (*store.ParcelPoint, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}
	if _, err := s.ownedParcel(ctx, principal, in.ParcelID); err != nil {
		return nil, err
	}

	point, err := s.records.CreatePoint(ctx, &store.ParcelPoint{
		ParcelID:  in.ParcelID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Position:  in.Position,
	})
	if err != nil {
		return nil, apperrors.Internal(err, "create parcel point")
	}

	s.invalidate(ctx, cache.Ref(cache.KindParcelPoint, point.ID.String()), fullDataRef(in.ParcelID))
	return point, nil
}

func (s *Service) DeletePoint(ctx context.Context, principal, id uuid.UUID) error {
	own, err := s.locate(ctx, principal, "parcel point", id, s.records.LocatePoint)
	if err != nil {
		return err
	}
	if err := s.records.DeletePoint(ctx, id); err != nil {
		return apperrors.Internal(err, "delete parcel point")
	}

	s.invalidate(ctx, cache.Ref(cache.KindParcelPoint, id.String()), fullDataRef(own.ParcelID))
	return nil
}

func (s *Service) AddParcelCrop(ctx context.Context, principal uuid.UUID, in ParcelCropInput) (*store.ParcelCrop, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}
	if _, err := s.ownedParcel(ctx, principal, in.ParcelID); err != nil {
		return nil, err
	}
	if _, err := s.records.GetCrop(ctx, in.CropID); err != nil {
		return nil, translate(err, "crop", in.CropID)
	}

	pc, err := s.records.CreateParcelCrop(ctx, &store.ParcelCrop{
		ParcelID:  in.ParcelID,
		CropID:    in.CropID,
		PlantedAt: in.PlantedAt,
	})
	if err != nil {
		return nil, apperrors.Internal(err, "create parcel crop")
	}

	s.invalidate(ctx, cache.Ref(cache.KindParcelCrop, pc.ID.String()), fullDataRef(in.ParcelID))
	return pc, nil
}

func (s *Service) DeleteParcelCrop(ctx context.Context, principal, id uuid.UUID) error {
	own, err := s.locate(ctx, principal, "parcel crop", id, s.records.LocateParcelCrop)
	if err != nil {
		return err
	}
	if err := s.records.DeleteParcelCrop(ctx, id); err != nil {
		return apperrors.Internal(err, "delete parcel crop")
	}

	s.invalidate(ctx, cache.Ref(cache.KindParcelCrop, id.String()), fullDataRef(own.ParcelID))
	return nil
}

func (s *Service) RecordYield(ctx context.Context, principal uuid.UUID, in YieldInput) (*store.YieldRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}
	own, err := s.locate(ctx, principal, "parcel crop", in.ParcelCropID, s.records.LocateParcelCrop)
	if err != nil {
		return nil, err
	}

	record, err := s.records.CreateYieldRecord(ctx, &store.YieldRecord{
		ParcelCropID: in.ParcelCropID,
		YieldAmount:  in.YieldAmount,
		Date:         in.Date,
	})
	if err != nil {
		return nil, apperrors.Internal(err, "create yield record")
	}

	s.invalidateYield(ctx, record.ID, own)
	return record, nil
}

func (s *Service) UpdateYield(ctx context.Context, principal, id uuid.UUID, in YieldUpdate) (*store.YieldRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}
	own, err := s.locate(ctx, principal, "yield record", id, s.records.LocateYieldRecord)
	if err != nil {
		return nil, err
	}

	record, err := s.records.GetYieldRecord(ctx, id)
	if err != nil {
		return nil, translate(err, "yield record", id)
	}
	record.YieldAmount = in.YieldAmount
	record.Date = in.Date

	updated, err := s.records.UpdateYieldRecord(ctx, record)
	if err != nil {
		return nil, apperrors.Internal(err, "update yield record")
	}

	s.invalidateYield(ctx, id, own)
	return updated, nil
}

func (s *Service) DeleteYield(ctx context.Context, principal, id uuid.UUID) error {
	own, err := s.locate(ctx, principal, "yield record", id, s.records.LocateYieldRecord)
	if err != nil {
		return err
	}
	if err := s.records.DeleteYieldRecord(ctx, id); err != nil {
		return apperrors.Internal(err, "delete yield record")
	}

	s.invalidateYield(ctx, id, own)
	return nil
}

func (s *Service) invalidateYield(ctx context.Context, id uuid.UUID, own store.Ownership) {
	s.invalidate(ctx,
		cache.Ref(cache.KindYieldRecord, id.String()),
		cache.Ref(cache.KindParcelCrop, own.ParcelCropID.String()),
		fullDataRef(own.ParcelID),
	)
}

// CreateCrop adds a catalog entry. Crops are shared and have no owner.
func (s *Service) CreateCrop(ctx context.Context, in CropInput) (*store.Crop, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}

	crop, err := s.records.CreateCrop(ctx, &store.Crop{Name: in.Name})
	if err != nil {
		return nil, apperrors.Internal(err, "create crop")
	}

	s.invalidate(ctx, cache.Ref(cache.KindCrop, crop.ID.String()))
	return crop, nil
}

// RenameCrop renames a catalog entry. Cached parcel_full_data views keep the
// old name until they expire.
func (s *Service) RenameCrop(ctx context.Context, id uuid.UUID, in CropInput) (*store.Crop, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}

	crop, err := s.records.GetCrop(ctx, id)
	if err != nil {
		return nil, translate(err, "crop", id)
	}
	crop.Name = in.Name

	updated, err := s.records.UpdateCrop(ctx, crop)
	if err != nil {
		return nil, apperrors.Internal(err, "rename crop")
	}

	s.invalidate(ctx, cache.Ref(cache.KindCrop, id.String()))
	return updated, nil
}

func (s *Service) ownedParcel(ctx context.Context, principal, id uuid.UUID) (*store.Parcel, error) {
	parcel, err := s.records.GetParcel(ctx, principal, id)
	if err != nil {
		return nil, translate(err, "parcel", id)
	}
	return parcel, nil
}

func (s *Service) locate(ctx context.Context, principal uuid.UUID, entity string, id uuid.UUID, lookup func(context.Context, uuid.UUID) (store.Ownership, error)) (store.Ownership, error) {
	own, err := lookup(ctx, id)
	if err != nil {
		return store.Ownership{}, translate(err, entity, id)
	}
	if own.OwnerID != principal {
		return store.Ownership{}, apperrors.NotFound(entity, id.String())
	}
	return own, nil
}

func translate(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(entity, id.String())
	}
	return apperrors.Internal(err, "load "+entity)
}
