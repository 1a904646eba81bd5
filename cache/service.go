package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-parcel-cache/internal/cacheinfra"
)

// ErrStoreUnavailable wraps every failure reported by a cache backend.
var ErrStoreUnavailable = cacheinfra.ErrStoreUnavailable

// ObjectCache exposes the TTL key-value operations the read paths and the
// invalidation coordinator rely on.
type ObjectCache interface {
	// Get returns the stored payload. Expired entries are reported as absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites unconditionally. A ttl <= 0 stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every entry whose key starts with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Codec serializes values into the opaque payloads stored by an ObjectCache.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Load is a type-safe read through an ObjectCache. A payload that cannot be
// decoded is reported as absent together with the decode error.
func Load[T any](ctx context.Context, c ObjectCache, codec Codec, key string) (T, bool, error) {
	var zero T

	data, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return zero, false, err
	}

	var value T
	if err := codec.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	return value, true, nil
}

// Store encodes value and writes it under key with a single Set call.
func Store[T any](ctx context.Context, c ObjectCache, codec Codec, key string, value T, ttl time.Duration) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}
