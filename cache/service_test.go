package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is a minimal ObjectCache used to exercise the typed helpers.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mapCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	return nil
}

type summary struct {
	ID      string
	Total   *float64
	Average *float64
	Items   []string
}

func TestStoreThenLoad(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	codec := NewMsgpackCodec()

	total := 30.0
	in := summary{ID: "c1", Total: &total, Items: []string{"a", "b"}}
	require.NoError(t, Store(ctx, c, codec, "parcel_crop:c1", in, 15*time.Minute))
	assert.Equal(t, 15*time.Minute, c.ttls["parcel_crop:c1"])

	out, found, err := Load[summary](ctx, c, codec, "parcel_crop:c1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c1", out.ID)
	require.NotNil(t, out.Total)
	assert.Equal(t, 30.0, *out.Total)
	assert.Nil(t, out.Average)
	assert.Equal(t, []string{"a", "b"}, out.Items)
}

func TestLoad_Absent(t *testing.T) {
	out, found, err := Load[summary](context.Background(), newMapCache(), NewMsgpackCodec(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, summary{}, out)
}

func TestLoad_PresentButEmptyIsAHit(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	codec := NewMsgpackCodec()

	require.NoError(t, Store(ctx, c, codec, "k", summary{}, time.Minute))

	_, found, err := Load[summary](ctx, c, codec, "k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLoad_DecodeFailureIsAMiss(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	c.data["k"] = []byte{0xc1}

	_, found, err := Load[summary](ctx, c, NewMsgpackCodec(), "k")
	assert.False(t, found)
	assert.Error(t, err)
}

func TestLoad_StoreError(t *testing.T) {
	c := newMapCache()
	c.err = errors.New("boom")

	_, found, err := Load[summary](context.Background(), c, NewMsgpackCodec(), "k")
	assert.False(t, found)
	assert.EqualError(t, err, "boom")
}
