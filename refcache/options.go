/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package refcache

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/reclaim"
	"github.com/acronis/go-cachekit/retry"
	"github.com/acronis/go-cachekit/syncguard"
)

// Options contains collaborators of a cache that cannot be set from a configuration file.
type Options struct {
	// Name identifies the cache in logs ("cache_id" field). A random id is generated if empty.
	Name string

	// Guard serializes access to the cache. A new syncguard.RWGuard is used if nil.
	// One guard may be shared by several caches.
	Guard syncguard.Guard

	// Logger is used for release and failure logging. Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector collects cache usage statistics. Metrics are disabled if nil.
	MetricsCollector MetricsCollector

	// SoftRetainer pins soft values. It allows several caches to share one retention budget.
	// A retainer of Config.SoftCapacity is created if nil and the strength is soft.
	SoftRetainer *reclaim.SoftRetainer

	// RetryPolicy, if set, re-runs a failing loader of NewLoadingSlot/NewLoadingKeyed before giving up.
	RetryPolicy retry.Policy

	// IsRetryable tells which loader errors are worth a retry. All errors are if nil.
	IsRetryable retry.IsRetryable
}

// core holds what Slot and Keyed share.
type core[T any] struct {
	guard    syncguard.Guard
	logger   log.FieldLogger
	metrics  MetricsCollector
	factory  *reclaim.Factory[T]
	registry *reclaim.Registry
	closed   atomic.Bool
}

func newCore[T any](cfg *Config, opts Options) (*core[T], error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid refcache config: %w", err)
	}
	strength, _ := reclaim.ParseStrength(string(cfg.Strength))

	c := &core[T]{guard: opts.Guard, logger: opts.Logger, metrics: opts.MetricsCollector}
	if c.guard == nil {
		c.guard = syncguard.NewRWGuard()
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

	retainer := opts.SoftRetainer
	if retainer == nil && strength == reclaim.StrengthSoft {
		var err error
		if retainer, err = reclaim.NewSoftRetainer(cfg.SoftCapacity); err != nil {
			return nil, err
		}
	}
	c.registry = reclaim.NewRegistry(reclaim.NewDispatcher(cfg.DispatchConcurrency, c.logger), c.logger)
	handles, err := reclaim.NewFactory[T](strength, c.registry, retainer)
	if err != nil {
		return nil, err
	}
	c.factory = handles
	return c, nil
}

// take returns the live value behind h, leased if lease is true.
func (c *core[T]) take(h reclaim.Handle[T], lease bool) (*T, func()) {
	if lease {
		return reclaim.Retain(h)
	}
	return h.Value(), noRelease
}

// await blocks until done is closed or ctx is done.
func await(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until all scheduled teardowns have completed.
// It is mostly useful in tests and before shutting down.
func (c *core[T]) Wait() {
	c.registry.Dispatcher().Wait()
}

func noRelease() {}
