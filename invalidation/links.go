package invalidation

import (
	"fmt"

	"github.com/goliatone/go-parcel-cache/cache"
)

// Link declares that mutating Constituent requires evicting the cached entry of
// its Owner.
type Link struct {
	Constituent cache.Kind
	Owner       cache.Kind
}

// DefaultLinks is the ownership table for the parcel domain. Crops are a shared
// catalog and own nothing.
var DefaultLinks = []Link{
	{Constituent: cache.KindParcel, Owner: cache.KindParcelFullData},
	{Constituent: cache.KindParcelPoint, Owner: cache.KindParcelFullData},
	{Constituent: cache.KindParcelCrop, Owner: cache.KindParcelFullData},
	{Constituent: cache.KindYieldRecord, Owner: cache.KindParcelCrop},
}

// resolveOwners computes, for every constituent kind, the ordered set of owner
// kinds reachable through links. Cycles are rejected.
func resolveOwners(links []Link) (map[cache.Kind][]cache.Kind, error) {
	direct := make(map[cache.Kind][]cache.Kind)
	for _, l := range links {
		if !l.Constituent.Valid() || !l.Owner.Valid() {
			return nil, fmt.Errorf("invalid link %q -> %q", l.Constituent, l.Owner)
		}
		if l.Constituent == l.Owner {
			return nil, fmt.Errorf("kind %q cannot own itself", l.Constituent)
		}
		direct[l.Constituent] = append(direct[l.Constituent], l.Owner)
	}

	resolved := make(map[cache.Kind][]cache.Kind, len(direct))
	for kind := range direct {
		var out []cache.Kind
		seen := map[cache.Kind]bool{}
		if err := walk(direct, kind, map[cache.Kind]bool{kind: true}, seen, &out); err != nil {
			return nil, err
		}
		resolved[kind] = out
	}
	return resolved, nil
}

func walk(direct map[cache.Kind][]cache.Kind, kind cache.Kind, path, seen map[cache.Kind]bool, out *[]cache.Kind) error {
	for _, owner := range direct[kind] {
		if path[owner] {
			return fmt.Errorf("ownership cycle through %q", owner)
		}
		if !seen[owner] {
			seen[owner] = true
			*out = append(*out, owner)
		}
		path[owner] = true
		if err := walk(direct, owner, path, seen, out); err != nil {
			return err
		}
		delete(path, owner)
	}
	return nil
}
