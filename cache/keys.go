package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// Kind names a cacheable entity type. Its value is used verbatim as the key prefix.
type Kind string

// Kinds cached by this module.
const (
	KindParcel         Kind = "parcel"
	KindParcelPoint    Kind = "parcel_point"
	KindParcelCrop     Kind = "parcel_crop"
	KindYieldRecord    Kind = "yield_record"
	KindCrop           Kind = "crop"
	KindParcelFullData Kind = "parcel_full_data"
)

// Valid reports whether the kind can be used as a key prefix.
func (k Kind) Valid() bool {
	return k != "" && !strings.Contains(string(k), KeySeparator)
}

func (k Kind) String() string {
	return string(k)
}

// EntityRef identifies a cacheable domain object.
type EntityRef struct {
	Kind Kind
	ID   string
}

// Ref is shorthand for building an EntityRef.
func Ref(kind Kind, id string) EntityRef {
	return EntityRef{Kind: kind, ID: id}
}

// Key returns the cache key for the reference.
func (r EntityRef) Key() string {
	return KeyFor(r.Kind, r.ID)
}

func (r EntityRef) String() string {
	return r.Key()
}

// KeyFor maps (kind, identifier) to a cache key. Identifiers are validated by
// callers before they get here.
func KeyFor(kind Kind, id string) string {
	return string(kind) + KeySeparator + id
}

// VariantKey returns the key of a parameterised view of an entity. An empty
// variant yields the plain entity key.
func VariantKey(kind Kind, id, variant string) string {
	if variant == "" {
		return KeyFor(kind, id)
	}
	return VariantPrefix(kind, id) + variant
}

// VariantPrefix is shared by every variant key of the entity, but not by the
// plain entity key itself.
func VariantPrefix(kind Kind, id string) string {
	return KeyFor(kind, id) + KeySeparator
}

// VariantOf hashes the parameters of a view into a fixed width variant segment.
// It returns "" when every part is empty.
func VariantOf(parts ...string) string {
	empty := true
	for _, p := range parts {
		if p != "" {
			empty = false
			break
		}
	}
	if empty {
		return ""
	}

	d := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = d.WriteString("\x00")
		}
		_, _ = d.WriteString(p)
	}

	sum := strconv.FormatUint(d.Sum64(), 16)
	return strings.Repeat("0", 16-len(sum)) + sum
}
