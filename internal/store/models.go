package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Parcel is the primary record. Ownership filtering happens on OwnerID.
type Parcel struct {
	bun.BaseModel `bun:"table:parcels,alias:p"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	OwnerID   uuid.UUID `bun:"owner_id,notnull,type:uuid" json:"owner_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// ParcelPoint is one vertex of the parcel geometry.
type ParcelPoint struct {
	bun.BaseModel `bun:"table:parcel_points,alias:pp"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ParcelID  uuid.UUID `bun:"parcel_id,notnull,type:uuid" json:"parcel_id"`
	Latitude  float64   `bun:"latitude,notnull" json:"latitude"`
	Longitude float64   `bun:"longitude,notnull" json:"longitude"`
	Position  int       `bun:"position,notnull,default:0" json:"position"`
}

// Crop is a catalog entry shared by every parcel.
type Crop struct {
	bun.BaseModel `bun:"table:crops,alias:c"`

	ID   uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name string    `bun:"name,notnull,unique" json:"name"`
}

// ParcelCrop is a crop cycle on a parcel.
type ParcelCrop struct {
	bun.BaseModel `bun:"table:parcel_crops,alias:pc"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ParcelID  uuid.UUID `bun:"parcel_id,notnull,type:uuid" json:"parcel_id"`
	CropID    uuid.UUID `bun:"crop_id,notnull,type:uuid" json:"crop_id"`
	PlantedAt time.Time `bun:"planted_at,nullzero" json:"planted_at,omitempty"`
}

// YieldRecord is a single harvest observation for a parcel crop.
type YieldRecord struct {
	bun.BaseModel `bun:"table:yield_records,alias:yr"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ParcelCropID uuid.UUID `bun:"parcel_crop_id,notnull,type:uuid" json:"parcel_crop_id"`
	YieldAmount  float64   `bun:"yield_amount,notnull" json:"yield_amount"`
	Date         time.Time `bun:"date,notnull" json:"date"`
}

// ParcelCropDetail is a parcel crop joined with its catalog name.
type ParcelCropDetail struct {
	ID       uuid.UUID `bun:"id"`
	CropName *string   `bun:"crop_name"`
}

// YieldStat aggregates the yield observations of one parcel crop.
type YieldStat struct {
	Total   float64
	Average float64
	Count   int
}

// Ownership locates a constituent record in its parcel.
type Ownership struct {
	ParcelID     uuid.UUID `bun:"parcel_id"`
	OwnerID      uuid.UUID `bun:"owner_id"`
	ParcelCropID uuid.UUID `bun:"parcel_crop_id"`
}
