package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-parcel-cache/internal/store"
	"github.com/google/uuid"
)

type fakeRecords struct {
	mu sync.Mutex

	parcel *store.Parcel
	points []store.ParcelPoint
	crops  []store.ParcelCropDetail
	yields []store.YieldRecord

	relatedErr error
	block      chan struct{}
	calls      map[string]int
}

func newFakeRecords(owner uuid.UUID) *fakeRecords {
	parcel := &store.Parcel{ID: uuid.New(), OwnerID: owner, Name: "Ambohidratrimo"}
	maize := "Maize"
	return &fakeRecords{
		parcel: parcel,
		points: []store.ParcelPoint{
			{ID: uuid.New(), ParcelID: parcel.ID, Latitude: -18.0, Longitude: 47.0, Position: 0},
			{ID: uuid.New(), ParcelID: parcel.ID, Latitude: -19.0, Longitude: 48.0, Position: 1},
		},
		crops: []store.ParcelCropDetail{{ID: uuid.New(), CropName: &maize}},
		calls: map[string]int{},
	}
}

func (f *fakeRecords) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeRecords) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRecords) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRecords) addYield(amount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.yields = append(f.yields, store.YieldRecord{
		ID:           uuid.New(),
		ParcelCropID: f.crops[0].ID,
		YieldAmount:  amount,
		Date:         time.Date(2024, 6, len(f.yields)+1, 0, 0, 0, 0, time.UTC),
	})
}

func (f *fakeRecords) GetParcel(ctx context.Context, ownerID, id uuid.UUID) (*store.Parcel, error) {
	f.record("GetParcel")
	if f.block != nil {
		<-f.block
	}
	if id != f.parcel.ID || ownerID != f.parcel.OwnerID {
		return nil, store.ErrNotFound
	}
	p := *f.parcel
	return &p, nil
}

func (f *fakeRecords) ListPoints(ctx context.Context, parcelID uuid.UUID) ([]store.ParcelPoint, error) {
	f.record("ListPoints")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.ParcelPoint(nil), f.points...), nil
}

func (f *fakeRecords) ListParcelCrops(ctx context.Context, parcelID uuid.UUID) ([]store.ParcelCropDetail, error) {
	f.record("ListParcelCrops")
	if f.relatedErr != nil {
		return nil, f.relatedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.ParcelCropDetail(nil), f.crops...), nil
}

func (f *fakeRecords) YieldStats(ctx context.Context, parcelID uuid.UUID) (map[uuid.UUID]store.YieldStat, error) {
	f.record("YieldStats")
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := map[uuid.UUID]store.YieldStat{}
	for _, y := range f.yields {
		st := stats[y.ParcelCropID]
		st.Total += y.YieldAmount
		st.Count++
		st.Average = st.Total / float64(st.Count)
		stats[y.ParcelCropID] = st
	}
	return stats, nil
}

func (f *fakeRecords) ListYieldRecords(ctx context.Context, parcelID uuid.UUID) ([]store.YieldRecord, error) {
	f.record("ListYieldRecords")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.YieldRecord(nil), f.yields...), nil
}

type fakeSoil struct {
	mu    sync.Mutex
	err   error
	calls int
	last  Location
}

// FetchSoil fails with the context error once ctx is done, like an HTTP client.
func (f *fakeSoil) FetchSoil(ctx context.Context, loc Location) (*SoilSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = loc
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &SoilSnapshot{Source: "soilgrids", Data: json.RawMessage(`{"ph":6.1}`)}, nil
}

func (f *fakeSoil) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClimate struct {
	mu     sync.Mutex
	err    error
	calls  int
	ranges []ClimateRange
}

func (f *fakeClimate) FetchClimate(ctx context.Context, loc Location, rng ClimateRange) (*ClimateSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ranges = append(f.ranges, rng)
	if f.err != nil {
		return nil, f.err
	}
	return &ClimateSeries{Source: "nasa-power", Start: rng.Start, End: rng.End, Data: json.RawMessage(`{"t2m":[21.5]}`)}, nil
}

func (f *fakeClimate) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errStoreDown = errors.New("connection refused")

// downCache fails every operation like an unreachable store.
type downCache struct {
	mu  sync.Mutex
	ops int
}

func (d *downCache) hit() {
	d.mu.Lock()
	d.ops++
	d.mu.Unlock()
}

func (d *downCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	d.hit()
	return nil, false, errStoreDown
}

func (d *downCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	d.hit()
	return errStoreDown
}

func (d *downCache) Delete(ctx context.Context, key string) error {
	d.hit()
	return errStoreDown
}

func (d *downCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	d.hit()
	return errStoreDown
}
