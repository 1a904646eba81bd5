package invalidation

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-parcel-cache/cache"
	"go.uber.org/zap"
)

// Invalidator is what mutating operations depend on.
type Invalidator interface {
	Invalidate(ctx context.Context, entity cache.EntityRef, owners ...cache.EntityRef) error
}

// MissingOwnerError reports a linked owner whose identifier the caller did not supply.
type MissingOwnerError struct {
	Entity cache.EntityRef
	Owner  cache.Kind
}

func (e *MissingOwnerError) Error() string {
	return fmt.Sprintf("invalidate %s: no identifier supplied for owner kind %q", e.Entity, e.Owner)
}

// Coordinator evicts an entity's own key and the keys of everything that owns it.
type Coordinator struct {
	cache    cache.ObjectCache
	owners   map[cache.Kind][]cache.Kind
	variants map[cache.Kind]bool
	logger   *zap.Logger
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for eviction warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithVariantKinds marks kinds whose entries may carry variant keys. Evicting
// such an entity also drops every key under its variant prefix.
func WithVariantKinds(kinds ...cache.Kind) Option {
	return func(c *Coordinator) {
		for _, k := range kinds {
			c.variants[k] = true
		}
	}
}

// NewCoordinator builds a coordinator over a static link table.
func NewCoordinator(objectCache cache.ObjectCache, links []Link, opts ...Option) (*Coordinator, error) {
	owners, err := resolveOwners(links)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		cache:    objectCache,
		owners:   owners,
		variants: make(map[cache.Kind]bool),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// OwnersOf returns the owner kinds evicted together with kind, nearest first.
func (c *Coordinator) OwnersOf(kind cache.Kind) []cache.Kind {
	return append([]cache.Kind(nil), c.owners[kind]...)
}

// Invalidate deletes the entity's key, then the key of every linked owner
// supplied by the caller. Owners whose kind is not linked to the entity are
// ignored. All evictions are attempted; failures are logged at warn level and
// returned joined.
func (c *Coordinator) Invalidate(ctx context.Context, entity cache.EntityRef, owners ...cache.EntityRef) error {
	errs := []error{c.evict(ctx, entity)}

	supplied := make(map[cache.Kind]string, len(owners))
	for _, o := range owners {
		supplied[o.Kind] = o.ID
	}

	evicted := []string{entity.Key()}
	for _, kind := range c.owners[entity.Kind] {
		id, ok := supplied[kind]
		if !ok || id == "" {
			errs = append(errs, &MissingOwnerError{Entity: entity, Owner: kind})
			continue
		}
		owner := cache.Ref(kind, id)
		errs = append(errs, c.evict(ctx, owner))
		evicted = append(evicted, owner.Key())
	}

	err := errors.Join(errs...)
	if err != nil {
		c.logger.Warn("cache invalidation incomplete, stale reads possible until ttl",
			zap.Stringer("entity", entity),
			zap.Error(err),
		)
		return err
	}

	c.logger.Debug("cache invalidated", zap.Strings("keys", evicted))
	return nil
}

func (c *Coordinator) evict(ctx context.Context, ref cache.EntityRef) error {
	var errs []error
	if err := c.cache.Delete(ctx, ref.Key()); err != nil {
		errs = append(errs, err)
	}
	if c.variants[ref.Kind] {
		if err := c.cache.DeleteByPrefix(ctx, cache.VariantPrefix(ref.Kind, ref.ID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
