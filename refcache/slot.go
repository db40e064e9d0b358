/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package refcache

import (
	"context"

	"github.com/acronis/go-cachekit/reclaim"
)

// Producer builds the value of an empty Slot. It is called under the cache's write lock,
// at most once per reconstruction. Returning nil, nil leaves the slot empty.
type Producer[T any] func(ctx context.Context) (*T, error)

// Slot caches a single value.
//
// If the value implements reclaim.Cleanable, its teardown runs exactly once after the value was
// reclaimed, replaced or cleared, and Get/Set wait for that teardown to complete before a new value
// is installed.
type Slot[T any] struct {
	*core[T]
	producer Producer[T]

	handle reclaim.Handle[T]
	token  *reclaim.Token
}

// NewSlot creates an empty Slot. Get on an empty Slot returns nil.
func NewSlot[T any](cfg *Config, opts Options) (*Slot[T], error) {
	return newSlot[T](cfg, nil, opts)
}

func newSlot[T any](cfg *Config, producer Producer[T], opts Options) (*Slot[T], error) {
	c, err := newCore[T](cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Slot[T]{core: c, producer: producer}, nil
}

// Get returns the cached value, producing it if the slot is empty.
// If the previous value is being released, Get waits for the release to complete first.
func (s *Slot[T]) Get(ctx context.Context) (*T, error) {
	v, _, err := s.get(ctx, false)
	return v, err
}

// Acquire is like Get, but the value stays reachable until the returned release func is called.
// With the counted strength this lease is what keeps the value cached.
func (s *Slot[T]) Acquire(ctx context.Context) (*T, func(), error) {
	return s.get(ctx, true)
}

func (s *Slot[T]) get(ctx context.Context, lease bool) (*T, func(), error) {
	if s.closed.Load() {
		return nil, noRelease, ErrClosed
	}

	var v *T
	release := noRelease
	s.guard.Read(func() {
		if s.handle != nil {
			v, release = s.take(s.handle, lease)
		}
	})
	if v != nil {
		s.metrics.IncHits()
		return v, release, nil
	}

	for {
		var wait <-chan struct{}
		var err error
		hit := false
		s.guard.Write(func() {
			if s.closed.Load() {
				err = ErrClosed
				return
			}
			if s.handle != nil {
				if v, release = s.take(s.handle, lease); v != nil {
					hit = true
					return
				}
				if s.token != nil && !s.token.Completed() {
					wait = s.token.Done()
					return
				}
				s.handle, s.token = nil, nil
			}
			v, release, err = s.produceLocked(ctx, lease)
		})
		if err != nil {
			return nil, noRelease, err
		}
		if wait == nil {
			if hit {
				s.metrics.IncHits()
			} else {
				s.metrics.IncMisses()
			}
			return v, release, nil
		}
		if err = await(ctx, wait); err != nil {
			return nil, noRelease, err
		}
	}
}

func (s *Slot[T]) produceLocked(ctx context.Context, lease bool) (*T, func(), error) {
	if s.producer == nil {
		return nil, noRelease, nil
	}
	v, err := s.producer(ctx)
	if err != nil {
		return nil, noRelease, &ProductionError{Err: err}
	}
	if v == nil {
		return nil, noRelease, nil
	}
	s.metrics.IncProductions()
	s.installLocked(v)
	if !lease {
		return v, noRelease, nil
	}
	leased, release := reclaim.Retain(s.handle)
	return leased, release, nil
}

func (s *Slot[T]) installLocked(v *T) {
	teardown := reclaim.TeardownOf(v)
	s.handle, s.token = s.factory.New(v, teardown != nil, teardown, s.released)
	s.metrics.SetAmount(1)
}

// released is the release callback of the slot's tokens.
func (s *Slot[T]) released(tok *reclaim.Token) {
	s.guard.Write(func() {
		if s.token != tok {
			return
		}
		s.handle, s.token = nil, nil
		s.metrics.SetAmount(0)
	})
	s.metrics.IncReleases()
}

// Set installs v, replacing the current value. A replaced value is released (its teardown runs)
// before v becomes visible. Setting the value that is already cached changes nothing.
// Setting nil empties the slot.
func (s *Slot[T]) Set(ctx context.Context, v *T) error {
	for {
		var wait <-chan struct{}
		var err error
		s.guard.Write(func() {
			if s.closed.Load() {
				err = ErrClosed
				return
			}
			if s.handle != nil {
				if v != nil && s.handle.Value() == v {
					return
				}
				s.handle.Reclaim()
				if s.token != nil && !s.token.Completed() {
					wait = s.token.Done()
					return
				}
				s.handle, s.token = nil, nil
				s.metrics.SetAmount(0)
			}
			if v != nil {
				s.installLocked(v)
			}
		})
		if err != nil || wait == nil {
			return err
		}
		if err = await(ctx, wait); err != nil {
			return err
		}
	}
}

// Clear forces the current value into release. It does nothing if the slot is empty
// or the value is already being released.
func (s *Slot[T]) Clear() {
	s.guard.Write(s.clearLocked)
}

func (s *Slot[T]) clearLocked() {
	if s.handle == nil {
		return
	}
	s.handle.Reclaim()
	if s.token == nil {
		s.handle = nil
		s.metrics.SetAmount(0)
	}
}

// Close clears the slot and makes further Get, Acquire and Set calls fail with ErrClosed.
// Releases already in flight are not aborted.
func (s *Slot[T]) Close() error {
	s.guard.Write(func() {
		s.closed.Store(true)
		s.clearLocked()
	})
	return nil
}
