/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/log/logtest"
)

func TestPeriodicWorker_Run(t *testing.T) {
	t.Run("run and stop by context timeout", func(t *testing.T) {
		const iterations = 5

		var c atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			c.Inc()
			return nil
		}), time.Millisecond*100, log.NewDisabledLogger())

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100*iterations+time.Millisecond*50)
		defer cancel()

		require.NoError(t, pw.Run(ctx))
		require.GreaterOrEqual(t, int(c.Load()), iterations)
		require.LessOrEqual(t, int(c.Load()), iterations+1)
	})

	t.Run("run and stop by error", func(t *testing.T) {
		var c atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			if c.Inc() == 2 {
				return ErrPeriodicWorkerStop
			}
			return nil
		}), time.Millisecond*10, log.NewDisabledLogger())

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		require.NoError(t, pw.Run(ctx))
		require.Equal(t, int32(2), c.Load())
		require.NoError(t, ctx.Err())
	})

	t.Run("initial delay postpones the first run", func(t *testing.T) {
		var c atomic.Int32
		pw := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			c.Inc()
			return nil
		}), time.Millisecond*100, log.NewDisabledLogger(), PeriodicWorkerOpts{InitialDelay: time.Millisecond * 250})

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*200)
		defer cancel()

		require.NoError(t, pw.Run(ctx))
		require.Equal(t, int32(0), c.Load())
	})

	t.Run("failed run is logged and delay func is consulted", func(t *testing.T) {
		var delays []error
		var c atomic.Int32
		rec := logtest.NewRecorder()
		pw := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			switch c.Inc() {
			case 1:
				return fmt.Errorf("sweep failed")
			case 3:
				return ErrPeriodicWorkerStop
			}
			return nil
		}), time.Hour, rec, PeriodicWorkerOpts{
			Name: "sweeper",
			IntervalDelayFunc: func(worker Worker, err error) time.Duration {
				delays = append(delays, err)
				return time.Millisecond
			},
		})

		require.NoError(t, pw.Run(context.Background()))
		require.Len(t, delays, 2)
		require.EqualError(t, delays[0], "sweep failed")
		require.NoError(t, delays[1])

		entry, found := rec.FindEntry("periodically running worker finished with error")
		require.True(t, found)
		name, found := entry.FindField("worker")
		require.True(t, found)
		require.Equal(t, "sweeper", string(name.Bytes))

		_, found = rec.FindEntry("periodic worker stopped")
		require.True(t, found)
	})
}
