package store

import (
	"context"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func byPK(q *bun.UpdateQuery) *bun.UpdateQuery {
	return q.WherePK()
}

// GetParcel returns the parcel only when it belongs to ownerID.
func (s *Store) GetParcel(ctx context.Context, ownerID, id uuid.UUID) (*Parcel, error) {
	parcel := new(Parcel)
	err := s.db.NewSelect().
		Model(parcel).
		Where("p.id = ?", id).
		Where("p.owner_id = ?", ownerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "get parcel "+id.String())
	}
	return parcel, nil
}

// ListParcels returns every parcel of ownerID ordered by name.
func (s *Store) ListParcels(ctx context.Context, ownerID uuid.UUID) ([]Parcel, error) {
	var parcels []Parcel
	err := s.db.NewSelect().
		Model(&parcels).
		Where("p.owner_id = ?", ownerID).
		OrderExpr("p.name ASC, p.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list parcels: %w", err)
	}
	return parcels, nil
}

// ListPoints returns the geometry of a parcel in drawing order.
func (s *Store) ListPoints(ctx context.Context, parcelID uuid.UUID) ([]ParcelPoint, error) {
	var points []ParcelPoint
	err := s.db.NewSelect().
		Model(&points).
		Where("pp.parcel_id = ?", parcelID).
		OrderExpr("pp.position ASC, pp.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list points: %w", err)
	}
	return points, nil
}

// ListParcelCrops returns the crop cycles of a parcel with their catalog name.
// CropName is nil when the catalog entry is gone.
func (s *Store) ListParcelCrops(ctx context.Context, parcelID uuid.UUID) ([]ParcelCropDetail, error) {
	var rows []ParcelCropDetail
	err := s.db.NewSelect().
		TableExpr("parcel_crops AS pc").
		ColumnExpr("pc.id AS id").
		ColumnExpr("c.name AS crop_name").
		Join("LEFT JOIN crops AS c ON c.id = pc.crop_id").
		Where("pc.parcel_id = ?", parcelID).
		OrderExpr("pc.planted_at ASC, pc.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list parcel crops: %w", err)
	}
	return rows, nil
}

type yieldStatRow struct {
	ParcelCropID uuid.UUID `bun:"parcel_crop_id"`
	Total        float64   `bun:"total"`
	Average      float64   `bun:"average"`
	Count        int       `bun:"count"`
}

// YieldStats sums and averages yield observations grouped by parcel crop.
// Parcel crops without observations are absent from the map.
func (s *Store) YieldStats(ctx context.Context, parcelID uuid.UUID) (map[uuid.UUID]YieldStat, error) {
	var rows []yieldStatRow
	err := s.db.NewSelect().
		TableExpr("yield_records AS yr").
		ColumnExpr("yr.parcel_crop_id AS parcel_crop_id").
		ColumnExpr("SUM(yr.yield_amount) AS total").
		ColumnExpr("AVG(yr.yield_amount) AS average").
		ColumnExpr("COUNT(*) AS count").
		Join("JOIN parcel_crops AS pc ON pc.id = yr.parcel_crop_id").
		Where("pc.parcel_id = ?", parcelID).
		GroupExpr("yr.parcel_crop_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("yield stats: %w", err)
	}

	stats := make(map[uuid.UUID]YieldStat, len(rows))
	for _, row := range rows {
		stats[row.ParcelCropID] = YieldStat{Total: row.Total, Average: row.Average, Count: row.Count}
	}
	return stats, nil
}

// ListYieldRecords returns every observation recorded on the parcel's crops.
func (s *Store) ListYieldRecords(ctx context.Context, parcelID uuid.UUID) ([]YieldRecord, error) {
	var records []YieldRecord
	err := s.db.NewSelect().
		Model(&records).
		Join("JOIN parcel_crops AS pc ON pc.id = yr.parcel_crop_id").
		Where("pc.parcel_id = ?", parcelID).
		OrderExpr("yr.date ASC, yr.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list yield records: %w", err)
	}
	return records, nil
}

// LocatePoint resolves the parcel and owner of a point.
func (s *Store) LocatePoint(ctx context.Context, id uuid.UUID) (Ownership, error) {
	var own Ownership
	err := s.db.NewSelect().
		TableExpr("parcel_points AS pp").
		ColumnExpr("pp.parcel_id AS parcel_id").
		ColumnExpr("p.owner_id AS owner_id").
		Join("JOIN parcels AS p ON p.id = pp.parcel_id").
		Where("pp.id = ?", id).
		Limit(1).
		Scan(ctx, &own)
	if err != nil {
		return Ownership{}, notFound(err, "locate point "+id.String())
	}
	return own, nil
}

// LocateParcelCrop resolves the parcel and owner of a parcel crop.
func (s *Store) LocateParcelCrop(ctx context.Context, id uuid.UUID) (Ownership, error) {
	var own Ownership
	err := s.db.NewSelect().
		TableExpr("parcel_crops AS pc").
		ColumnExpr("pc.id AS parcel_crop_id").
		ColumnExpr("pc.parcel_id AS parcel_id").
		ColumnExpr("p.owner_id AS owner_id").
		Join("JOIN parcels AS p ON p.id = pc.parcel_id").
		Where("pc.id = ?", id).
		Limit(1).
		Scan(ctx, &own)
	if err != nil {
		return Ownership{}, notFound(err, "locate parcel crop "+id.String())
	}
	return own, nil
}

// LocateYieldRecord resolves the parcel crop, parcel and owner of a yield record.
func (s *Store) LocateYieldRecord(ctx context.Context, id uuid.UUID) (Ownership, error) {
	var own Ownership
	err := s.db.NewSelect().
		TableExpr("yield_records AS yr").
		ColumnExpr("yr.parcel_crop_id AS parcel_crop_id").
		ColumnExpr("pc.parcel_id AS parcel_id").
		ColumnExpr("p.owner_id AS owner_id").
		Join("JOIN parcel_crops AS pc ON pc.id = yr.parcel_crop_id").
		Join("JOIN parcels AS p ON p.id = pc.parcel_id").
		Where("yr.id = ?", id).
		Limit(1).
		Scan(ctx, &own)
	if err != nil {
		return Ownership{}, notFound(err, "locate yield record "+id.String())
	}
	return own, nil
}

// GetCrop returns a catalog entry.
func (s *Store) GetCrop(ctx context.Context, id uuid.UUID) (*Crop, error) {
	crop := new(Crop)
	if err := s.db.NewSelect().Model(crop).Where("c.id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "get crop "+id.String())
	}
	return crop, nil
}

// GetYieldRecord returns a yield record by id.
func (s *Store) GetYieldRecord(ctx context.Context, id uuid.UUID) (*YieldRecord, error) {
	record := new(YieldRecord)
	if err := s.db.NewSelect().Model(record).Where("yr.id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "get yield record "+id.String())
	}
	return record, nil
}

// CreateParcel inserts a parcel, assigning an id and timestamps when missing.
func (s *Store) CreateParcel(ctx context.Context, parcel *Parcel) (*Parcel, error) {
	if parcel.ID == uuid.Nil {
		parcel.ID = uuid.New()
	}
	now := time.Now().UTC()
	if parcel.CreatedAt.IsZero() {
		parcel.CreatedAt = now
	}
	parcel.UpdatedAt = now
	return create(ctx, s.parcels, parcel, "parcel")
}

// UpdateParcel writes every column of parcel.
func (s *Store) UpdateParcel(ctx context.Context, parcel *Parcel) (*Parcel, error) {
	parcel.UpdatedAt = time.Now().UTC()
	return update(ctx, s.parcels, parcel, "parcel")
}

// DeleteParcel removes a parcel; its points and crop cycles cascade.
func (s *Store) DeleteParcel(ctx context.Context, id uuid.UUID) error {
	return remove(ctx, s.parcels, &Parcel{ID: id}, "parcel")
}

// CreatePoint inserts a geometry point.
func (s *Store) CreatePoint(ctx context.Context, point *ParcelPoint) (*ParcelPoint, error) {
	if point.ID == uuid.Nil {
		point.ID = uuid.New()
	}
	return create(ctx, s.points, point, "parcel point")
}

// DeletePoint removes a geometry point.
func (s *Store) DeletePoint(ctx context.Context, id uuid.UUID) error {
	return remove(ctx, s.points, &ParcelPoint{ID: id}, "parcel point")
}

// CreateCrop inserts a catalog entry.
func (s *Store) CreateCrop(ctx context.Context, crop *Crop) (*Crop, error) {
	if crop.ID == uuid.Nil {
		crop.ID = uuid.New()
	}
	return create(ctx, s.crops, crop, "crop")
}

// UpdateCrop writes a catalog entry.
func (s *Store) UpdateCrop(ctx context.Context, crop *Crop) (*Crop, error) {
	return update(ctx, s.crops, crop, "crop")
}

// CreateParcelCrop inserts a crop cycle.
func (s *Store) CreateParcelCrop(ctx context.Context, pc *ParcelCrop) (*ParcelCrop, error) {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	return create(ctx, s.parcelCrops, pc, "parcel crop")
}

// DeleteParcelCrop removes a crop cycle and, by cascade, its yield records.
func (s *Store) DeleteParcelCrop(ctx context.Context, id uuid.UUID) error {
	return remove(ctx, s.parcelCrops, &ParcelCrop{ID: id}, "parcel crop")
}

// CreateYieldRecord inserts a yield observation.
func (s *Store) CreateYieldRecord(ctx context.Context, record *YieldRecord) (*YieldRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return create(ctx, s.yieldRecords, record, "yield record")
}

// UpdateYieldRecord writes a yield observation.
func (s *Store) UpdateYieldRecord(ctx context.Context, record *YieldRecord) (*YieldRecord, error) {
	return update(ctx, s.yieldRecords, record, "yield record")
}

// DeleteYieldRecord removes a yield observation.
func (s *Store) DeleteYieldRecord(ctx context.Context, id uuid.UUID) error {
	return remove(ctx, s.yieldRecords, &YieldRecord{ID: id}, "yield record")
}

func create[T any](ctx context.Context, repo repository.Repository[T], record T, what string) (T, error) {
	created, err := repo.Create(ctx, record)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("create %s: %w", what, err)
	}
	return created, nil
}

func update[T any](ctx context.Context, repo repository.Repository[T], record T, what string) (T, error) {
	updated, err := repo.Update(ctx, record, byPK)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("update %s: %w", what, err)
	}
	return updated, nil
}

func remove[T any](ctx context.Context, repo repository.Repository[T], record T, what string) error {
	if err := repo.Delete(ctx, record); err != nil {
		return fmt.Errorf("delete %s: %w", what, err)
	}
	return nil
}
