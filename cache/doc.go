// Package cache provides the object cache abstraction and the key scheme used by
// the parcel read paths.
//
// # Overview
//
// This package exports the pieces shared by every cache consumer:
//
//   - ObjectCache: get/set/delete against a TTL-backed key-value store
//   - Kind and EntityRef: the (kind, identifier) pairs cache keys are derived from
//   - Codec: turns typed values into the opaque payloads an ObjectCache stores
//
// Backends live in internal/cacheinfra. NewObjectCache builds one from Config:
// an in-process sturdyc store by default, or a shared Redis store.
//
// # Keys
//
// Keys have the shape "{kind}:{identifier}". Kinds are package level constants
// that never contain the separator, so two different (kind, identifier) pairs
// can never produce the same key:
//
//	key := cache.KeyFor(cache.KindParcel, parcelID)
//
// Parameterised views of the same entity (for example a climate date range)
// append a hashed variant segment:
//
//	key := cache.VariantKey(cache.KindParcelFullData, parcelID, cache.VariantOf(start, end))
//
// All variants of an entity share the prefix returned by VariantPrefix, which is
// what invalidation uses to drop them together.
//
// # Typed access
//
// Load and Store wrap an ObjectCache with a Codec:
//
//	view, found, err := cache.Load[FullData](ctx, store, codec, key)
//	if err == nil && found {
//		return view, nil
//	}
//
// The found flag is the only signal for a hit. A present but empty value is a
// hit; it never gets confused with an absent entry.
//
// # Error Handling
//
// Backend failures are reported wrapped in ErrStoreUnavailable. Callers treat
// them as a miss on reads and as a no-op on writes; the cache is never the
// reason a request fails.
package cache
