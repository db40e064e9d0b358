/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package refcache

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// ProductionError is returned when the producer (loader) of a missing value fails.
// The cache state is left unchanged, so the next call produces again.
type ProductionError struct {
	Err error
}

func (e *ProductionError) Error() string {
	return fmt.Sprintf("produce cached value: %v", e.Err)
}

// Unwrap returns the producer's error.
func (e *ProductionError) Unwrap() error {
	return e.Err
}
