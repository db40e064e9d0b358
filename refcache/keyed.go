/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package refcache

import (
	"context"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/reclaim"
)

// KeyedProducer builds the value for a missing key. It is called under the cache's write lock.
// Returning nil, nil leaves the key absent.
type KeyedProducer[K comparable, T any] func(ctx context.Context, key K) (*T, error)

// Keyed caches values by key. Every key follows the Slot protocol independently:
// a key whose previous value is being released waits for that release only.
type Keyed[K comparable, T any] struct {
	*core[T]
	producer KeyedProducer[K, T]

	handles map[K]reclaim.Handle[T]
	// tokens outlive handles after Remove and Clear, so that a new value for a key
	// is only installed once the previous one is released.
	tokens map[K]*reclaim.Token
}

// NewKeyed creates an empty Keyed cache. Get of a missing key returns nil.
func NewKeyed[K comparable, T any](cfg *Config, opts Options) (*Keyed[K, T], error) {
	return newKeyed[K, T](cfg, nil, opts)
}

func newKeyed[K comparable, T any](cfg *Config, producer KeyedProducer[K, T], opts Options) (*Keyed[K, T], error) {
	c, err := newCore[T](cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Keyed[K, T]{
		core:     c,
		producer: producer,
		handles:  make(map[K]reclaim.Handle[T]),
		tokens:   make(map[K]*reclaim.Token),
	}, nil
}

// Get returns the value cached for key, producing it if missing.
func (c *Keyed[K, T]) Get(ctx context.Context, key K) (*T, error) {
	v, _, err := c.get(ctx, key, false)
	return v, err
}

// Acquire is like Get, but the value stays reachable until the returned release func is called.
func (c *Keyed[K, T]) Acquire(ctx context.Context, key K) (*T, func(), error) {
	return c.get(ctx, key, true)
}

func (c *Keyed[K, T]) get(ctx context.Context, key K, lease bool) (*T, func(), error) {
	if c.closed.Load() {
		return nil, noRelease, ErrClosed
	}

	var v *T
	release := noRelease
	c.guard.Read(func() {
		if h, ok := c.handles[key]; ok {
			v, release = c.take(h, lease)
		}
	})
	if v != nil {
		c.metrics.IncHits()
		return v, release, nil
	}

	for {
		var wait <-chan struct{}
		var err error
		hit := false
		c.guard.Write(func() {
			if c.closed.Load() {
				err = ErrClosed
				return
			}
			if h, ok := c.handles[key]; ok {
				if v, release = c.take(h, lease); v != nil {
					hit = true
					return
				}
			}
			if wait = c.pendingLocked(key); wait != nil {
				return
			}
			v, release, err = c.produceLocked(ctx, key, lease)
		})
		if err != nil {
			return nil, noRelease, err
		}
		if wait == nil {
			if hit {
				c.metrics.IncHits()
			} else {
				c.metrics.IncMisses()
			}
			return v, release, nil
		}
		if err = await(ctx, wait); err != nil {
			return nil, noRelease, err
		}
	}
}

// pendingLocked returns the completion channel of the key's release in flight, if any.
// Otherwise it drops whatever is left of the key.
func (c *Keyed[K, T]) pendingLocked(key K) <-chan struct{} {
	if tok, ok := c.tokens[key]; ok {
		if !tok.Completed() {
			return tok.Done()
		}
		delete(c.tokens, key)
	}
	if _, ok := c.handles[key]; ok {
		delete(c.handles, key)
		c.metrics.SetAmount(len(c.handles))
	}
	return nil
}

func (c *Keyed[K, T]) produceLocked(ctx context.Context, key K, lease bool) (*T, func(), error) {
	if c.producer == nil {
		return nil, noRelease, nil
	}
	v, err := c.producer(ctx, key)
	if err != nil {
		return nil, noRelease, &ProductionError{Err: err}
	}
	if v == nil {
		return nil, noRelease, nil
	}
	c.metrics.IncProductions()
	h := c.installLocked(key, v)
	if !lease {
		return v, noRelease, nil
	}
	leased, release := reclaim.Retain(h)
	return leased, release, nil
}

func (c *Keyed[K, T]) installLocked(key K, v *T) reclaim.Handle[T] {
	h, tok := c.factory.New(v, true, reclaim.TeardownOf(v), func(tok *reclaim.Token) {
		c.released(key, tok)
	}, log.Any("key", key))
	c.handles[key] = h
	c.tokens[key] = tok
	c.metrics.SetAmount(len(c.handles))
	return h
}

// released is the release callback of the key's token. A callback of a token that is
// no longer the key's current one (it cannot happen while installs wait) changes nothing.
func (c *Keyed[K, T]) released(key K, tok *reclaim.Token) {
	c.guard.Write(func() {
		if c.tokens[key] != tok {
			return
		}
		delete(c.tokens, key)
		delete(c.handles, key)
		c.metrics.SetAmount(len(c.handles))
	})
	c.metrics.IncReleases()
}

// Put installs v for key. A replaced value is released before v becomes visible.
// Putting the value that is already cached for key changes nothing.
// Putting nil removes the key and waits for its release.
func (c *Keyed[K, T]) Put(ctx context.Context, key K, v *T) error {
	for {
		var wait <-chan struct{}
		var err error
		c.guard.Write(func() {
			if c.closed.Load() {
				err = ErrClosed
				return
			}
			if h, ok := c.handles[key]; ok {
				if v != nil && h.Value() == v {
					return
				}
				h.Reclaim()
			}
			if wait = c.pendingLocked(key); wait != nil {
				return
			}
			if v != nil {
				c.installLocked(key, v)
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

// Remove forces the value of key into release and returns it.
// It returns nil, false if the key is absent or its value is already being released.
func (c *Keyed[K, T]) Remove(key K) (*T, bool) {
	var v *T
	c.guard.Write(func() {
		h, ok := c.handles[key]
		if !ok {
			return
		}
		v = h.Value()
		delete(c.handles, key)
		c.metrics.SetAmount(len(c.handles))
		h.Reclaim()
	})
	return v, v != nil
}

// Clear forces every value into release and empties the cache immediately.
// Releases complete asynchronously; until then Get and Put of a cleared key wait for them.
func (c *Keyed[K, T]) Clear() {
	c.guard.Write(c.clearLocked)
}

func (c *Keyed[K, T]) clearLocked() {
	for _, h := range c.handles {
		h.Reclaim()
	}
	c.handles = make(map[K]reclaim.Handle[T])
	c.metrics.SetAmount(0)
}

// Close clears the cache and makes further Get, Acquire and Put calls fail with ErrClosed.
// Releases already in flight are not aborted.
func (c *Keyed[K, T]) Close() error {
	c.guard.Write(func() {
		c.closed.Store(true)
		c.clearLocked()
	})
	return nil
}

// Len returns the number of entries, including entries whose value was reclaimed
// but whose release has not completed yet.
func (c *Keyed[K, T]) Len() int {
	var n int
	c.guard.Read(func() { n = len(c.handles) })
	return n
}

// Contains reports whether key has a value that is not being released.
func (c *Keyed[K, T]) Contains(key K) bool {
	var ok bool
	c.guard.Read(func() {
		h, found := c.handles[key]
		ok = found && !h.PendingReclaim()
	})
	return ok
}
