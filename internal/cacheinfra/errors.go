package cacheinfra

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable is returned (wrapped) when a backend cannot serve a call.
var ErrStoreUnavailable = errors.New("cache store unavailable")

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrStoreUnavailable, op, key, err)
}
