/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/clock"
	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/reclaim"
	"github.com/acronis/go-cachekit/service"
	"github.com/acronis/go-cachekit/syncguard"
)

// Options contains collaborators of a cache that cannot be set from a configuration file.
type Options struct {
	// Name identifies the cache in logs ("cache_id" field). A random id is generated if empty.
	Name string

	// Guard serializes access to the cache. A new syncguard.RWGuard is used if nil.
	Guard syncguard.Guard

	// Logger is used for sweep and callback failure logging. Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector collects cache usage statistics. Metrics are disabled if nil.
	MetricsCollector MetricsCollector

	// Clock is the time source for expiration. clock.Real() is used if nil.
	Clock clock.Clock
}

// Cache is an in-memory cache of entries with a time to live.
// Entries are kept in a list ordered from the most recently stored or refreshed (front)
// to the least recently one (back); the periodic sweep starts from the back.
type Cache[K comparable, V any] struct {
	guard      syncguard.Guard
	clock      clock.Clock
	logger     log.FieldLogger
	metrics    MetricsCollector
	dispatcher *reclaim.Dispatcher

	defaultTTL atomic.Duration
	sweepQuota atomic.Int64

	sweeper   *service.WorkerUnit
	sweepOnce sync.Once

	lruList *list.List
	entries map[K]*list.Element
}

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	onEvict   func(V)
}

// New creates a new Cache and, unless Config.SweepInterval is zero, starts its periodic sweep.
// A nil cfg means NewDefaultConfig. CloseSweep or CloseAndClear must be called to stop the sweep.
func New[K comparable, V any](cfg *Config, opts Options) (*Cache[K, V], error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ttlcache config: %w", err)
	}

	c := &Cache[K, V]{
		guard:   opts.Guard,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.MetricsCollector,
		lruList: list.New(),
		entries: make(map[K]*list.Element),
	}
	if c.guard == nil {
		c.guard = syncguard.NewRWGuard()
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.logger == nil {
		c.logger = log.NewDisabledLogger()
	}
	if c.metrics == nil {
		c.metrics = disabledMetrics{}
	}
	name := opts.Name
	if name == "" {
		name = xid.New().String()
	}
	c.logger = c.logger.With(log.String("cache_id", name))
	c.dispatcher = reclaim.NewDispatcher(cfg.DispatchConcurrency, c.logger)
	c.defaultTTL.Store(time.Duration(cfg.DefaultTTL))
	c.sweepQuota.Store(int64(cfg.SweepQuota))

	if interval := time.Duration(cfg.SweepInterval); interval > 0 {
		worker := service.NewPeriodicWorkerWithOpts(service.WorkerFunc(c.sweep), interval, c.logger,
			service.PeriodicWorkerOpts{Name: "ttlcache-sweep"})
		c.sweeper = service.NewWorkerUnit(worker)
		go c.sweeper.Start(nil)
	}
	return c, nil
}

// Put stores value under key with the default TTL.
func (c *Cache[K, V]) Put(key K, value V) {
	c.PutWithTTL(key, value, c.defaultTTL.Load(), nil)
}

// PutWithTTL stores value under key until now+ttl; a non-positive ttl stores an already expired entry.
// onEvict, if not nil, is called with the value when the entry expires or is removed, but not on Clear
// and not when the entry is replaced by another Put.
func (c *Cache[K, V]) PutWithTTL(key K, value V, ttl time.Duration, onEvict func(V)) {
	now := c.clock.Now()
	c.guard.Write(func() {
		if elem, ok := c.entries[key]; ok {
			entry := elem.Value.(*cacheEntry[K, V])
			if !now.Before(entry.expiresAt) {
				c.dispatchEviction(entry, EvictionReasonExpired)
				c.metrics.AddEvictions(1, EvictionReasonExpired)
			}
			entry.value = value
			entry.expiresAt = now.Add(ttl)
			entry.onEvict = onEvict
			c.lruList.MoveToFront(elem)
			return
		}
		c.entries[key] = c.lruList.PushFront(&cacheEntry[K, V]{
			key: key, value: value, expiresAt: now.Add(ttl), onEvict: onEvict})
		c.metrics.SetAmount(len(c.entries))
	})
}

// Get returns the value stored under key if it has not expired yet.
// It does not change the position of the entry.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	return c.GetAndRefresh(key, 0)
}

// GetAndRefresh returns the value stored under key if it has not expired yet.
// If refreshTTL is positive, the entry expiration is moved to now+refreshTTL and the entry
// becomes the most recent one. An expired entry found by the call is removed.
func (c *Cache[K, V]) GetAndRefresh(key K, refreshTTL time.Duration) (value V, ok bool) {
	now := c.clock.Now()
	if refreshTTL <= 0 {
		var found, expired bool
		c.guard.Read(func() {
			var elem *list.Element
			if elem, found = c.entries[key]; !found {
				return
			}
			entry := elem.Value.(*cacheEntry[K, V])
			if expired = !now.Before(entry.expiresAt); !expired {
				value, ok = entry.value, true
			}
		})
		if found && expired {
			// The entry may have been replaced or removed since the read, so check it again.
			c.guard.Write(func() {
				elem, exists := c.entries[key]
				if !exists {
					return
				}
				entry := elem.Value.(*cacheEntry[K, V])
				if now.Before(entry.expiresAt) {
					value, ok = entry.value, true
					return
				}
				c.evictLocked(elem, EvictionReasonExpired)
				c.metrics.AddEvictions(1, EvictionReasonExpired)
				c.metrics.SetAmount(len(c.entries))
			})
		}
		c.countLookup(ok)
		return value, ok
	}

	c.guard.Write(func() {
		elem, exists := c.entries[key]
		if !exists {
			return
		}
		entry := elem.Value.(*cacheEntry[K, V])
		if !now.Before(entry.expiresAt) {
			c.evictLocked(elem, EvictionReasonExpired)
			c.metrics.AddEvictions(1, EvictionReasonExpired)
			c.metrics.SetAmount(len(c.entries))
			return
		}
		entry.expiresAt = now.Add(refreshTTL)
		c.lruList.MoveToFront(elem)
		value, ok = entry.value, true
	})
	c.countLookup(ok)
	return value, ok
}

func (c *Cache[K, V]) countLookup(hit bool) {
	if hit {
		c.metrics.IncHits()
	} else {
		c.metrics.IncMisses()
	}
}

// Remove deletes the entry stored under key, expired or not, and reports whether it was present.
// The entry's eviction callback is called.
func (c *Cache[K, V]) Remove(key K) (removed bool) {
	c.guard.Write(func() {
		elem, ok := c.entries[key]
		if !ok {
			return
		}
		c.evictLocked(elem, EvictionReasonRemoved)
		c.metrics.AddEvictions(1, EvictionReasonRemoved)
		c.metrics.SetAmount(len(c.entries))
		removed = true
	})
	return removed
}

// Clear deletes all entries without calling their eviction callbacks.
func (c *Cache[K, V]) Clear() {
	c.guard.Write(func() {
		c.lruList.Init()
		c.entries = make(map[K]*list.Element)
		c.metrics.SetAmount(0)
	})
}

// Valid reports whether key has an entry that has not expired yet.
func (c *Cache[K, V]) Valid(key K) (valid bool) {
	now := c.clock.Now()
	c.guard.Read(func() {
		if elem, ok := c.entries[key]; ok {
			valid = now.Before(elem.Value.(*cacheEntry[K, V]).expiresAt)
		}
	})
	return valid
}

// TimeRemaining returns how long the entry stored under key stays valid. It is 0 if the entry is absent or expired.
func (c *Cache[K, V]) TimeRemaining(key K) (remaining time.Duration) {
	now := c.clock.Now()
	c.guard.Read(func() {
		if elem, ok := c.entries[key]; ok {
			remaining = max(elem.Value.(*cacheEntry[K, V]).expiresAt.Sub(now), 0)
		}
	})
	return remaining
}

// Len returns the number of entries in the cache, including expired ones not removed yet.
func (c *Cache[K, V]) Len() (n int) {
	c.guard.Read(func() {
		n = len(c.entries)
	})
	return n
}

// TrimExpired removes every expired entry and returns how many were removed.
// Unlike the periodic sweep, it scans the whole cache.
func (c *Cache[K, V]) TrimExpired() (evicted int) {
	now := c.clock.Now()
	c.guard.Write(func() {
		for elem := c.lruList.Back(); elem != nil; {
			prev := elem.Prev()
			if !now.Before(elem.Value.(*cacheEntry[K, V]).expiresAt) {
				c.evictLocked(elem, EvictionReasonExpired)
				evicted++
			}
			elem = prev
		}
		if evicted > 0 {
			c.metrics.AddEvictions(evicted, EvictionReasonExpired)
			c.metrics.SetAmount(len(c.entries))
		}
	})
	return evicted
}

// Sweep runs a single sweep pass: it inspects at most the sweep quota of the least recent entries
// and removes the expired ones. Entry order is left intact.
func (c *Cache[K, V]) Sweep() (inspected, evicted int) {
	now := c.clock.Now()
	quota := int(c.sweepQuota.Load())
	c.guard.Write(func() {
		for elem := c.lruList.Back(); elem != nil && inspected < quota; inspected++ {
			prev := elem.Prev()
			if !now.Before(elem.Value.(*cacheEntry[K, V]).expiresAt) {
				c.evictLocked(elem, EvictionReasonExpired)
				evicted++
			}
			elem = prev
		}
		if evicted > 0 {
			c.metrics.AddEvictions(evicted, EvictionReasonExpired)
			c.metrics.SetAmount(len(c.entries))
		}
	})
	return inspected, evicted
}

func (c *Cache[K, V]) sweep(_ context.Context) error {
	inspected, evicted := c.Sweep()
	c.logger.Debug("sweep pass done", log.Int("inspected", inspected), log.Int("evicted", evicted))
	return nil
}

// CloseSweep stops the periodic sweep. A pass in progress is completed first. The cache stays usable.
func (c *Cache[K, V]) CloseSweep() {
	c.sweepOnce.Do(func() {
		if c.sweeper != nil {
			_ = c.sweeper.Stop(true)
		}
	})
}

// CloseAndClear stops the periodic sweep, deletes all entries without calling their eviction callbacks
// and waits for the callbacks that are already scheduled.
func (c *Cache[K, V]) CloseAndClear() {
	c.CloseSweep()
	c.Clear()
	c.dispatcher.Wait()
}

// Wait blocks until all scheduled eviction callbacks have completed.
func (c *Cache[K, V]) Wait() {
	c.dispatcher.Wait()
}

// SetDefaultTTL changes the TTL used by subsequent Put calls. Stored entries keep their expiration.
func (c *Cache[K, V]) SetDefaultTTL(ttl time.Duration) {
	c.defaultTTL.Store(ttl)
}

// SetSweepQuota changes the number of entries inspected by subsequent sweep passes.
func (c *Cache[K, V]) SetSweepQuota(n int) {
	c.sweepQuota.Store(int64(n))
}

// evictLocked unlinks elem and schedules its eviction callback. Metrics are up to the caller.
func (c *Cache[K, V]) evictLocked(elem *list.Element, reason EvictionReason) {
	entry := c.lruList.Remove(elem).(*cacheEntry[K, V])
	delete(c.entries, entry.key)
	c.dispatchEviction(entry, reason)
}

func (c *Cache[K, V]) dispatchEviction(entry *cacheEntry[K, V], reason EvictionReason) {
	if entry.onEvict == nil {
		return
	}
	onEvict, value := entry.onEvict, entry.value
	c.dispatcher.Go(reclaim.JobEvictionCallback, func() { onEvict(value) },
		log.Any("key", entry.key), log.String("reason", string(reason)))
}
