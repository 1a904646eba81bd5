package store

import (
	"context"
	"fmt"
)

type index struct {
	name   string
	model  any
	column string
}

// CreateSchema creates tables and indexes when they do not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	tables := []struct {
		model any
		fks   []string
	}{
		{model: (*Parcel)(nil)},
		{model: (*Crop)(nil)},
		{model: (*ParcelPoint)(nil), fks: []string{`("parcel_id") REFERENCES "parcels" ("id") ON DELETE CASCADE`}},
		{model: (*ParcelCrop)(nil), fks: []string{
			`("parcel_id") REFERENCES "parcels" ("id") ON DELETE CASCADE`,
			`("crop_id") REFERENCES "crops" ("id")`,
		}},
		{model: (*YieldRecord)(nil), fks: []string{`("parcel_crop_id") REFERENCES "parcel_crops" ("id") ON DELETE CASCADE`}},
	}

	for _, t := range tables {
		q := s.db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.fks {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", t.model, err)
		}
	}

	indexes := []index{
		{name: "parcels_owner_id_idx", model: (*Parcel)(nil), column: "owner_id"},
		{name: "parcel_points_parcel_id_idx", model: (*ParcelPoint)(nil), column: "parcel_id"},
		{name: "parcel_crops_parcel_id_idx", model: (*ParcelCrop)(nil), column: "parcel_id"},
		{name: "yield_records_parcel_crop_id_idx", model: (*YieldRecord)(nil), column: "parcel_crop_id"},
	}
	for _, idx := range indexes {
		if _, err := s.db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}

	return nil
}
