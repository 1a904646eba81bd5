package parcels

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

var requiredID = validation.By(func(value any) error {
	if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
})

// ParcelInput carries the writable fields of a parcel.
type ParcelInput struct {
	Name string `json:"name"`
}

func (in ParcelInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
	)
}

// PointInput adds a vertex to a parcel geometry.
type PointInput struct {
	ParcelID  uuid.UUID `json:"parcel_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Position  int       `json:"position"`
}

func (in PointInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ParcelID, requiredID),
		validation.Field(&in.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&in.Longitude, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&in.Position, validation.Min(0)),
	)
}

// ParcelCropInput starts a crop cycle on a parcel.
type ParcelCropInput struct {
	ParcelID  uuid.UUID `json:"parcel_id"`
	CropID    uuid.UUID `json:"crop_id"`
	PlantedAt time.Time `json:"planted_at"`
}

func (in ParcelCropInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ParcelID, requiredID),
		validation.Field(&in.CropID, requiredID),
	)
}

// YieldInput records a harvest for a crop cycle.
type YieldInput struct {
	ParcelCropID uuid.UUID `json:"parcel_crop_id"`
	YieldAmount  float64   `json:"yield_amount"`
	Date         time.Time `json:"date"`
}

func (in YieldInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ParcelCropID, requiredID),
		validation.Field(&in.YieldAmount, validation.Min(0.0)),
		validation.Field(&in.Date, validation.Required),
	)
}

// YieldUpdate replaces the measured fields of a yield record.
type YieldUpdate struct {
	YieldAmount float64   `json:"yield_amount"`
	Date        time.Time `json:"date"`
}

func (in YieldUpdate) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.YieldAmount, validation.Min(0.0)),
		validation.Field(&in.Date, validation.Required),
	)
}

// CropInput names a catalog crop.
type CropInput struct {
	Name string `json:"name"`
}

func (in CropInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 120)),
	)
}
