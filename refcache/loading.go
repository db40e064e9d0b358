/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package refcache

import (
	"context"
	"time"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/retry"
)

// NewLoadingSlot creates a Slot that builds its value with loader whenever it is empty.
// A failing loader is retried according to Options.RetryPolicy; the last error is returned
// from Get wrapped in ProductionError.
func NewLoadingSlot[T any](cfg *Config, loader Producer[T], opts Options) (*Slot[T], error) {
	s, err := newSlot[T](cfg, nil, opts)
	if err != nil {
		return nil, err
	}
	s.producer = Producer[T](withRetry[struct{}, T](opts, s.logger, func(ctx context.Context, _ struct{}) (*T, error) {
		return loader(ctx)
	}).forSlot())
	return s, nil
}

// NewLoadingKeyed creates a Keyed cache that builds missing values with loader.
// A failing loader is retried according to Options.RetryPolicy; the last error is returned
// from Get wrapped in ProductionError.
func NewLoadingKeyed[K comparable, T any](cfg *Config, loader KeyedProducer[K, T], opts Options) (*Keyed[K, T], error) {
	c, err := newKeyed[K, T](cfg, nil, opts)
	if err != nil {
		return nil, err
	}
	c.producer = KeyedProducer[K, T](withRetry[K, T](opts, c.logger, loader))
	return c, nil
}

type loadFunc[K any, T any] func(ctx context.Context, key K) (*T, error)

func (f loadFunc[K, T]) forSlot() func(ctx context.Context) (*T, error) {
	return func(ctx context.Context) (*T, error) {
		var zero K
		return f(ctx, zero)
	}
}

func withRetry[K any, T any](opts Options, logger log.FieldLogger, load func(ctx context.Context, key K) (*T, error)) loadFunc[K, T] {
	if opts.RetryPolicy == nil {
		return load
	}
	return func(ctx context.Context, key K) (*T, error) {
		return retry.DoWithRetryValue(ctx, opts.RetryPolicy, opts.IsRetryable,
			func(err error, next time.Duration) {
				logger.Warn("loading cached value failed, retrying",
					log.Any("key", key), log.Error(err), log.Duration("next_attempt_in", next))
			},
			func(ctx context.Context) (*T, error) {
				return load(ctx, key)
			})
	}
}
