package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	s, err := Open(Config{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.CreateSchema(context.Background()))
	return s
}

type seeded struct {
	owner      uuid.UUID
	parcel     *Parcel
	maize      *ParcelCrop
	rice       *ParcelCrop
	firstYield *YieldRecord
}

func seed(t *testing.T, s *Store) seeded {
	t.Helper()
	ctx := context.Background()

	owner := uuid.New()
	parcel, err := s.CreateParcel(ctx, &Parcel{OwnerID: owner, Name: "North field"})
	require.NoError(t, err)

	for i, ll := range [][2]float64{{-18.9, 47.5}, {-18.8, 47.5}, {-18.8, 47.6}} {
		_, err := s.CreatePoint(ctx, &ParcelPoint{ParcelID: parcel.ID, Latitude: ll[0], Longitude: ll[1], Position: i})
		require.NoError(t, err)
	}

	maizeCrop, err := s.CreateCrop(ctx, &Crop{Name: "Maize"})
	require.NoError(t, err)
	riceCrop, err := s.CreateCrop(ctx, &Crop{Name: "Rice"})
	require.NoError(t, err)

	planted := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	maize, err := s.CreateParcelCrop(ctx, &ParcelCrop{ParcelID: parcel.ID, CropID: maizeCrop.ID, PlantedAt: planted})
	require.NoError(t, err)
	rice, err := s.CreateParcelCrop(ctx, &ParcelCrop{ParcelID: parcel.ID, CropID: riceCrop.ID, PlantedAt: planted.AddDate(0, 1, 0)})
	require.NoError(t, err)

	first, err := s.CreateYieldRecord(ctx, &YieldRecord{ParcelCropID: maize.ID, YieldAmount: 10, Date: planted.AddDate(0, 4, 0)})
	require.NoError(t, err)
	_, err = s.CreateYieldRecord(ctx, &YieldRecord{ParcelCropID: maize.ID, YieldAmount: 20, Date: planted.AddDate(0, 5, 0)})
	require.NoError(t, err)

	return seeded{owner: owner, parcel: parcel, maize: maize, rice: rice, firstYield: first}
}

func TestStore_GetParcelFiltersByOwner(t *testing.T) {
	s := newTestStore(t)
	data := seed(t, s)
	ctx := context.Background()

	got, err := s.GetParcel(ctx, data.owner, data.parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, "North field", got.Name)

	_, err = s.GetParcel(ctx, uuid.New(), data.parcel.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetParcel(ctx, data.owner, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListPointsInOrder(t *testing.T) {
	s := newTestStore(t)
	data := seed(t, s)

	points, err := s.ListPoints(context.Background(), data.parcel.ID)
	require.NoError(t, err)
	require.Len(t, points, 3)
	for i, p := range points {
		assert.Equal(t, i, p.Position)
	}
}

func TestStore_YieldStatsGroupedByParcelCrop(t *testing.T) {
	s := newTestStore(t)
	data := seed(t, s)
	ctx := context.Background()

	stats, err := s.YieldStats(ctx, data.parcel.ID)
	require.NoError(t, err)
	require.Contains(t, stats, data.maize.ID)
	assert.InDelta(t, 30, stats[data.maize.ID].Total, 1e-9)
	assert.InDelta(t, 15, stats[data.maize.ID].Average, 1e-9)
	assert.Equal(t, 2, stats[data.maize.ID].Count)
	assert.NotContains(t, stats, data.rice.ID)

	_, err = s.CreateYieldRecord(ctx, &YieldRecord{ParcelCropID: data.maize.ID, YieldAmount: 40, Date: time.Now().UTC()})
	require.NoError(t, err)

	stats, err = s.YieldStats(ctx, data.parcel.ID)
	require.NoError(t, err)
	assert.InDelta(t, 70, stats[data.maize.ID].Total, 1e-9)
	assert.InDelta(t, 23.333, stats[data.maize.ID].Average, 1e-3)
}

func TestStore_ListParcelCropsWithNames(t *testing.T) {
	s := newTestStore(t)
	data := seed(t, s)

	crops, err := s.ListParcelCrops(context.Background(), data.parcel.ID)
	require.NoError(t, err)
	require.Len(t, crops, 2)
	assert.Equal(t, data.maize.ID, crops[0].ID)
	require.NotNil(t, crops[0].CropName)
	assert.Equal(t, "Maize", *crops[0].CropName)
	require.NotNil(t, crops[1].CropName)
	assert.Equal(t, "Rice", *crops[1].CropName)
}

func TestStore_ListYieldRecords(t *testing.T) {
	s := newTestStore(t)
	data := seed(t, s)

	records, err := s.ListYieldRecords(context.Background(), data.parcel.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, data.firstYield.ID, records[0].ID)
	assert.Equal(t, data.maize.ID, records[0].ParcelCropID)
}

func TestStore_Locate(t *testing.T) {
	s := newTestStore(t)
	data := seed(t, s)
	ctx := context.Background()

	points, err := s.ListPoints(ctx, data.parcel.ID)
	require.NoError(t, err)

	own, err := s.LocatePoint(ctx, points[0].ID)
	require.NoError(t, err)
	assert.Equal(t, data.parcel.ID, own.ParcelID)
	assert.Equal(t, data.owner, own.OwnerID)

	own, err = s.LocateParcelCrop(ctx, data.rice.ID)
	require.NoError(t, err)
	assert.Equal(t, data.parcel.ID, own.ParcelID)
	assert.Equal(t, data.rice.ID, own.ParcelCropID)

	own, err = s.LocateYieldRecord(ctx, data.firstYield.ID)
	require.NoError(t, err)
	assert.Equal(t, data.maize.ID, own.ParcelCropID)
	assert.Equal(t, data.parcel.ID, own.ParcelID)
	assert.Equal(t, data.owner, own.OwnerID)

	_, err = s.LocateYieldRecord(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	data := seed(t, s)
	ctx := context.Background()

	data.parcel.Name = "South field"
	_, err := s.UpdateParcel(ctx, data.parcel)
	require.NoError(t, err)

	got, err := s.GetParcel(ctx, data.owner, data.parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, "South field", got.Name)

	record, err := s.GetYieldRecord(ctx, data.firstYield.ID)
	require.NoError(t, err)
	record.YieldAmount = 50
	_, err = s.UpdateYieldRecord(ctx, record)
	require.NoError(t, err)

	stats, err := s.YieldStats(ctx, data.parcel.ID)
	require.NoError(t, err)
	assert.InDelta(t, 70, stats[data.maize.ID].Total, 1e-9)

	require.NoError(t, s.DeleteParcelCrop(ctx, data.maize.ID))
	records, err := s.ListYieldRecords(ctx, data.parcel.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, s.DeleteParcel(ctx, data.parcel.ID))
	_, err = s.GetParcel(ctx, data.owner, data.parcel.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	assert.Error(t, err)
}
