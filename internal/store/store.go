// Package store is the relational record layer behind the parcel cache. Reads
// used by the aggregation path are plain bun queries; writes go through
// go-repository-bun repositories.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row. Rows owned by
// another principal are indistinguishable from missing ones.
var ErrNotFound = errors.New("record not found")

// Config selects the database.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// Store gives access to parcel records.
type Store struct {
	db *bun.DB

	parcels      repository.Repository[*Parcel]
	points       repository.Repository[*ParcelPoint]
	crops        repository.Repository[*Crop]
	parcelCrops  repository.Repository[*ParcelCrop]
	yieldRecords repository.Repository[*YieldRecord]
}

// Open connects to the configured database.
func Open(cfg Config) (*Store, error) {
	var db *bun.DB

	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err := sql.Open(DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite serialises writers anyway; one connection keeps in-memory
		// databases shared across queries.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open(DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	return New(db), nil
}

// New wraps an existing bun database.
func New(db *bun.DB) *Store {
	return &Store{
		db:           db,
		parcels:      newRepository(db, func() *Parcel { return &Parcel{} }, func(r *Parcel) uuid.UUID { return r.ID }, func(r *Parcel, id uuid.UUID) { r.ID = id }),
		points:       newRepository(db, func() *ParcelPoint { return &ParcelPoint{} }, func(r *ParcelPoint) uuid.UUID { return r.ID }, func(r *ParcelPoint, id uuid.UUID) { r.ID = id }),
		crops:        newRepository(db, func() *Crop { return &Crop{} }, func(r *Crop) uuid.UUID { return r.ID }, func(r *Crop, id uuid.UUID) { r.ID = id }),
		parcelCrops:  newRepository(db, func() *ParcelCrop { return &ParcelCrop{} }, func(r *ParcelCrop) uuid.UUID { return r.ID }, func(r *ParcelCrop, id uuid.UUID) { r.ID = id }),
		yieldRecords: newRepository(db, func() *YieldRecord { return &YieldRecord{} }, func(r *YieldRecord) uuid.UUID { return r.ID }, func(r *YieldRecord, id uuid.UUID) { r.ID = id }),
	}
}

func newRepository[T any](db *bun.DB, newRecord func() T, getID func(T) uuid.UUID, setID func(T, uuid.UUID)) repository.Repository[T] {
	return repository.NewRepository[T](db, repository.ModelHandlers[T]{
		NewRecord:     newRecord,
		GetID:         getID,
		SetID:         setID,
		GetIdentifier: func() string { return "id" },
	})
}

// DB exposes the underlying bun handle.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
