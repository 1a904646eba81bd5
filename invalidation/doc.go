// Package invalidation evicts cached entries after mutations.
//
// Ownership is declared once, as a static table of links from a constituent
// kind to the kind that owns it:
//
//	links := []invalidation.Link{
//		{Constituent: cache.KindParcelPoint, Owner: cache.KindParcelFullData},
//		{Constituent: cache.KindYieldRecord, Owner: cache.KindParcelCrop},
//		{Constituent: cache.KindParcelCrop, Owner: cache.KindParcelFullData},
//	}
//
// Links are followed transitively, so a yield record change reaches the
// parcel's full data view through its parcel crop. The coordinator never reads
// storage: the caller supplies the identifiers of the owners.
//
//	err := coord.Invalidate(ctx,
//		cache.Ref(cache.KindYieldRecord, yieldID),
//		cache.Ref(cache.KindParcelCrop, parcelCropID),
//		cache.Ref(cache.KindParcelFullData, parcelID),
//	)
//
// Every mutating operation calls Invalidate once, after its write committed and
// before it answers. Errors returned by Invalidate are warnings: the mutation
// already happened, the only consequence is a stale read until the TTL expires.
package invalidation
