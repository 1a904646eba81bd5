package aggregate

import (
	"context"

	"github.com/goliatone/go-parcel-cache/internal/store"
	"github.com/google/uuid"
)

// RecordStore is the slice of the record layer the aggregate is built from.
// GetParcel must return an error wrapping store.ErrNotFound when the parcel is
// missing or owned by someone else.
type RecordStore interface {
	GetParcel(ctx context.Context, ownerID, id uuid.UUID) (*store.Parcel, error)
	ListPoints(ctx context.Context, parcelID uuid.UUID) ([]store.ParcelPoint, error)
	ListParcelCrops(ctx context.Context, parcelID uuid.UUID) ([]store.ParcelCropDetail, error)
	YieldStats(ctx context.Context, parcelID uuid.UUID) (map[uuid.UUID]store.YieldStat, error)
	ListYieldRecords(ctx context.Context, parcelID uuid.UUID) ([]store.YieldRecord, error)
}

// SoilFetcher returns the soil snapshot for a location. (nil, nil) means the
// provider has no data.
type SoilFetcher interface {
	FetchSoil(ctx context.Context, loc Location) (*SoilSnapshot, error)
}

// ClimateFetcher returns a climate series for a location. (nil, nil) means the
// provider has no data.
type ClimateFetcher interface {
	FetchClimate(ctx context.Context, loc Location, rng ClimateRange) (*ClimateSeries, error)
}
