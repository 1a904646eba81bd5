// Package parcels holds the write operations on parcels and their constituent
// records. Every successful write ends with exactly one call to the
// invalidation coordinator naming the written entity and its owners, so the
// next read of a cached record or parcel_full_data view is rebuilt from the
// store.
package parcels
