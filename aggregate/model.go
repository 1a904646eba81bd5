package aggregate

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-parcel-cache/cache"
)

// Location is the point external providers are queried for.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ClimateRange bounds a climate series. Empty bounds are left to the provider.
type ClimateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r ClimateRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}

// Variant identifies the range inside the aggregate key space.
func (r ClimateRange) Variant() string {
	if r.IsZero() {
		return ""
	}
	return cache.VariantOf(r.Start, r.End)
}

// SoilSnapshot is the provider payload for one location.
type SoilSnapshot struct {
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
	Data      json.RawMessage `json:"data"`
}

// ClimateSeries is the provider payload for one location and range.
type ClimateSeries struct {
	Source    string          `json:"source"`
	Start     string          `json:"start,omitempty"`
	End       string          `json:"end,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Data      json.RawMessage `json:"data"`
}

// PointView is one geometry vertex.
type PointView struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ParcelView is the primary record part of the aggregate.
type ParcelView struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Points   []PointView `json:"points"`
	Centroid *PointView  `json:"centroid"`
}

// CropSummary carries the yield totals of one crop cycle. TotalYield and
// AvgYield are nil when no yield has been recorded yet.
type CropSummary struct {
	ID         string   `json:"id"`
	CropName   *string  `json:"crop_name"`
	TotalYield *float64 `json:"total_yield"`
	AvgYield   *float64 `json:"avg_yield"`
}

// YieldRecordView is a flat yield observation.
type YieldRecordView struct {
	ID           string  `json:"id"`
	YieldAmount  float64 `json:"yield_amount"`
	Date         string  `json:"date"`
	ParcelCropID string  `json:"parcel_crop_id"`
}

// FullData is the composite read model. It is rebuilt whole on every miss and
// never modified once cached.
type FullData struct {
	Parcel       ParcelView        `json:"parcel"`
	SoilData     *SoilSnapshot     `json:"soil_data"`
	ClimateData  *ClimateSeries    `json:"climate_data"`
	ParcelCrops  []CropSummary     `json:"parcel_crops"`
	YieldRecords []YieldRecordView `json:"yield_records"`
	GeneratedAt  time.Time         `json:"generated_at"`

	// OwnerID travels with the cached payload so hits can be checked against
	// the requesting principal. It is never sent to clients.
	OwnerID string `json:"-"`
}

// normalize restores empty lists the payload codec may have decoded as nil.
func (d *FullData) normalize() {
	if d.Parcel.Points == nil {
		d.Parcel.Points = []PointView{}
	}
	if d.ParcelCrops == nil {
		d.ParcelCrops = []CropSummary{}
	}
	if d.YieldRecords == nil {
		d.YieldRecords = []YieldRecordView{}
	}
}
