/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/clock"
	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/log/logtest"
	"github.com/acronis/go-cachekit/testutil"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeCache[K comparable, V any](t *testing.T, defaultTTL time.Duration, opts Options) *Cache[K, V] {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.DefaultTTL = config.TimeDuration(defaultTTL)
	cfg.SweepInterval = 0
	c, err := New[K, V](cfg, opts)
	require.NoError(t, err)
	t.Cleanup(c.CloseAndClear)
	return c
}

type evictionLog struct {
	mu     sync.Mutex
	values []string
}

func (l *evictionLog) onEvict(v string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = append(l.values, v)
}

func (l *evictionLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.values...)
}

func TestCache_DefaultAndCustomTTL(t *testing.T) {
	c := makeCache[string, string](t, time.Second, Options{})

	c.PutWithTTL("a", "1", 2*time.Second, nil)
	for i, key := range []string{"b", "c", "d", "e", "f"} {
		c.Put(key, fmt.Sprint(i+2))
	}
	time.Sleep(1100 * time.Millisecond)

	val, found := c.Get("a")
	require.True(t, found)
	require.Equal(t, "1", val)
	for _, key := range []string{"b", "c", "d", "e", "f"} {
		_, found = c.Get(key)
		require.False(t, found, "key %q", key)
	}
	require.Equal(t, 1, c.Len())
}

func TestCache_ExpiryBoundary(t *testing.T) {
	clk := clock.NewMock(testStart)
	metrics := NewPrometheusMetrics()
	c := makeCache[string, int](t, time.Hour, Options{Clock: clk, MetricsCollector: metrics})

	c.PutWithTTL("k", 42, time.Second, nil)
	clk.Advance(999 * time.Millisecond)
	require.True(t, c.Valid("k"))
	require.Equal(t, time.Millisecond, c.TimeRemaining("k"))
	val, found := c.Get("k")
	require.True(t, found)
	require.Equal(t, 42, val)

	clk.Advance(time.Millisecond)
	require.False(t, c.Valid("k"))
	require.Equal(t, time.Duration(0), c.TimeRemaining("k"))
	require.Equal(t, 1, c.Len(), "expired entry is kept until something touches it")

	_, found = c.Get("k")
	require.False(t, found)
	require.Equal(t, 0, c.Len())

	clk.Advance(time.Hour)
	_, found = c.Get("k")
	require.False(t, found)

	testutil.RequireCounterValue(t, metrics.HitsTotal, 1)
	testutil.RequireCounterValue(t, metrics.MissesTotal, 2)
	testutil.RequireLabeledCounterValue(t, metrics.EvictionsTotal, 1, string(EvictionReasonExpired))
	testutil.RequireGaugeValue(t, metrics.EntriesAmount, 0)
}

func TestCache_NonPositiveTTL(t *testing.T) {
	clk := clock.NewMock(testStart)
	c := makeCache[string, int](t, time.Hour, Options{Clock: clk})

	c.PutWithTTL("zero", 1, 0, nil)
	c.PutWithTTL("negative", 2, -time.Second, nil)
	require.False(t, c.Valid("zero"))
	require.False(t, c.Valid("negative"))
	_, found := c.Get("zero")
	require.False(t, found)
}

func TestCache_GetAndRefresh(t *testing.T) {
	clk := clock.NewMock(testStart)
	c := makeCache[string, int](t, time.Second, Options{Clock: clk})

	c.Put("a", 1)
	c.Put("b", 2)
	clk.Advance(800 * time.Millisecond)

	val, found := c.GetAndRefresh("a", time.Second)
	require.True(t, found)
	require.Equal(t, 1, val)
	require.Equal(t, time.Second, c.TimeRemaining("a"))

	clk.Advance(800 * time.Millisecond)
	require.True(t, c.Valid("a"))
	require.False(t, c.Valid("b"))

	// "a" was moved to the front, so "b" is now the coldest entry.
	c.SetSweepQuota(1)
	inspected, evicted := c.Sweep()
	require.Equal(t, 1, inspected)
	require.Equal(t, 1, evicted)
	require.Equal(t, 1, c.Len())
	require.True(t, c.Valid("a"))

	_, found = c.GetAndRefresh("b", time.Second)
	require.False(t, found)
}

func TestCache_PutReplaces(t *testing.T) {
	clk := clock.NewMock(testStart)
	evictions := &evictionLog{}
	c := makeCache[string, string](t, time.Second, Options{Clock: clk})

	c.PutWithTTL("k", "old", time.Second, evictions.onEvict)
	c.PutWithTTL("k", "new", time.Second, evictions.onEvict)
	c.Wait()
	require.Empty(t, evictions.get(), "replacing a live entry is not an eviction")
	val, _ := c.Get("k")
	require.Equal(t, "new", val)

	clk.Advance(time.Second)
	c.PutWithTTL("k", "newest", time.Second, evictions.onEvict)
	c.Wait()
	require.Equal(t, []string{"new"}, evictions.get())
	require.Equal(t, 1, c.Len())
}

func TestCache_Remove(t *testing.T) {
	metrics := NewPrometheusMetrics()
	evictions := &evictionLog{}
	c := makeCache[string, string](t, time.Minute, Options{MetricsCollector: metrics})

	c.PutWithTTL("k", "v", time.Minute, evictions.onEvict)
	require.True(t, c.Remove("k"))
	require.False(t, c.Remove("k"))
	c.Wait()

	require.Equal(t, []string{"v"}, evictions.get())
	require.Equal(t, 0, c.Len())
	testutil.RequireLabeledCounterValue(t, metrics.EvictionsTotal, 1, string(EvictionReasonRemoved))
}

func TestCache_ClearSuppressesCallbacks(t *testing.T) {
	clk := clock.NewMock(testStart)
	evictions := &evictionLog{}
	c := makeCache[int, string](t, time.Second, Options{Clock: clk})

	for i := 0; i < 10; i++ {
		c.PutWithTTL(i, fmt.Sprint(i), time.Second, evictions.onEvict)
	}
	clk.Advance(time.Hour)
	c.Clear()
	require.Equal(t, 0, c.Len())
	require.Equal(t, 0, c.TrimExpired())
	c.Wait()
	require.Empty(t, evictions.get())
}

func TestCache_TrimExpired(t *testing.T) {
	clk := clock.NewMock(testStart)
	evictions := &evictionLog{}
	c := makeCache[int, string](t, time.Second, Options{Clock: clk})

	for i := 0; i < 10; i++ {
		ttl := time.Second
		if i%2 == 0 {
			ttl = time.Minute
		}
		c.PutWithTTL(i, fmt.Sprint(i), ttl, evictions.onEvict)
	}
	clk.Advance(time.Second)

	require.Equal(t, 5, c.TrimExpired())
	require.Equal(t, 5, c.Len())
	c.Wait()
	require.ElementsMatch(t, []string{"1", "3", "5", "7", "9"}, evictions.get())
	for i := 0; i < 10; i += 2 {
		require.True(t, c.Valid(i))
	}
}

func TestCache_SweepIsBounded(t *testing.T) {
	tests := []struct {
		name          string
		entries       int
		expired       []int
		quota         int
		wantInspected int
		wantEvicted   int
		wantLeft      []int
	}{
		{
			name:          "quota less than entries, all expired",
			entries:       10,
			expired:       []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
			quota:         3,
			wantInspected: 3,
			wantEvicted:   3,
			wantLeft:      []int{3, 4, 5, 6, 7, 8, 9},
		},
		{
			name:          "expired entry beyond quota is kept",
			entries:       5,
			expired:       []int{0, 4},
			quota:         2,
			wantInspected: 2,
			wantEvicted:   1,
			wantLeft:      []int{1, 2, 3, 4},
		},
		{
			name:          "quota greater than entries",
			entries:       3,
			expired:       []int{1},
			quota:         20,
			wantInspected: 3,
			wantEvicted:   1,
			wantLeft:      []int{0, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewMock(testStart)
			c := makeCache[int, int](t, time.Minute, Options{Clock: clk})
			c.SetSweepQuota(tt.quota)

			isExpired := make(map[int]bool, len(tt.expired))
			for _, i := range tt.expired {
				isExpired[i] = true
			}
			// Keys are inserted in ascending order, so key 0 is the coldest.
			for i := 0; i < tt.entries; i++ {
				ttl := time.Minute
				if isExpired[i] {
					ttl = time.Second
				}
				c.PutWithTTL(i, i, ttl, nil)
			}
			clk.Advance(time.Second)

			inspected, evicted := c.Sweep()
			require.Equal(t, tt.wantInspected, inspected)
			require.Equal(t, tt.wantEvicted, evicted)
			require.Equal(t, len(tt.wantLeft), c.Len())
			for _, key := range tt.wantLeft {
				c.guard.Read(func() {
					_, ok := c.entries[key]
					require.True(t, ok, "key %d", key)
				})
			}
		})
	}
}

func TestCache_SweepKeepsOrder(t *testing.T) {
	clk := clock.NewMock(testStart)
	c := makeCache[int, int](t, time.Minute, Options{Clock: clk})
	c.SetSweepQuota(2)

	c.PutWithTTL(0, 0, time.Minute, nil)
	c.PutWithTTL(1, 1, time.Second, nil)
	c.PutWithTTL(2, 2, time.Second, nil)
	clk.Advance(time.Second)

	// The first pass inspects 0 and 1, the second one starts from 0 again and reaches 2.
	_, evicted := c.Sweep()
	require.Equal(t, 1, evicted)
	_, evicted = c.Sweep()
	require.Equal(t, 1, evicted)
	require.Equal(t, 1, c.Len())
	require.True(t, c.Valid(0))
}

func TestCache_PeriodicSweep(t *testing.T) {
	clk := clock.NewMock(testStart)
	evictions := &evictionLog{}
	cfg := NewDefaultConfig()
	cfg.SweepInterval = config.TimeDuration(10 * time.Millisecond)
	cfg.SweepQuota = 2
	c, err := New[int, string](cfg, Options{Clock: clk})
	require.NoError(t, err)
	defer c.CloseAndClear()

	for i := 0; i < 5; i++ {
		c.PutWithTTL(i, fmt.Sprint(i), time.Second, evictions.onEvict)
	}
	clk.Advance(time.Second)

	require.Eventually(t, func() bool { return c.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	c.CloseSweep()
	c.Wait()
	require.ElementsMatch(t, []string{"0", "1", "2", "3", "4"}, evictions.get())

	// No passes after CloseSweep.
	c.PutWithTTL(10, "10", time.Second, nil)
	clk.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, c.Len())
}

func TestCache_FirstSweepRunsAtStart(t *testing.T) {
	rec := logtest.NewRecorder()
	cfg := NewDefaultConfig()
	cfg.SweepInterval = config.TimeDuration(time.Hour)
	c, err := New[string, int](cfg, Options{Logger: rec})
	require.NoError(t, err)
	defer c.CloseAndClear()

	require.Eventually(t, func() bool {
		_, found := rec.FindEntry("sweep pass done")
		return found
	}, time.Second, 5*time.Millisecond)
}

func TestCache_CloseAndClearWaitsForCallbacks(t *testing.T) {
	var finished atomic.Int32
	c := makeCache[string, int](t, time.Minute, Options{})
	for i := 0; i < 3; i++ {
		c.PutWithTTL(fmt.Sprint(i), i, time.Minute, func(int) {
			time.Sleep(20 * time.Millisecond)
			finished.Inc()
		})
		c.Remove(fmt.Sprint(i))
	}
	c.CloseAndClear()
	require.Equal(t, int32(3), finished.Load())
}

func TestCache_EvictionCallbackPanic(t *testing.T) {
	rec := logtest.NewRecorder()
	c := makeCache[string, string](t, time.Minute, Options{Logger: rec, Name: "sessions"})

	c.PutWithTTL("k", "v", time.Minute, func(string) { panic("boom") })
	require.True(t, c.Remove("k"))
	c.Wait()

	entry, found := rec.FindEntry("eviction callback panicked: boom")
	require.True(t, found)
	cacheID, found := entry.FindField("cache_id")
	require.True(t, found)
	require.Equal(t, "sessions", string(cacheID.Bytes))
	reason, found := entry.FindField("reason")
	require.True(t, found)
	require.Equal(t, string(EvictionReasonRemoved), string(reason.Bytes))

	// The cache keeps working.
	c.Put("k", "v2")
	val, found := c.Get("k")
	require.True(t, found)
	require.Equal(t, "v2", val)
}

func TestCache_SetDefaultTTL(t *testing.T) {
	clk := clock.NewMock(testStart)
	c := makeCache[string, int](t, time.Second, Options{Clock: clk})

	c.Put("short", 1)
	c.SetDefaultTTL(time.Minute)
	c.Put("long", 2)
	require.Equal(t, time.Second, c.TimeRemaining("short"))
	require.Equal(t, time.Minute, c.TimeRemaining("long"))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := makeCache[int, int](t, time.Minute, Options{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := i % 16
				c.Put(key, g)
				c.Get(key)
				c.GetAndRefresh(key, time.Minute)
				if i%10 == 0 {
					c.Remove(key)
				}
				c.Sweep()
			}
		}(g)
	}
	wg.Wait()
	require.LessOrEqual(t, c.Len(), 16)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SweepQuota = 0
	_, err := New[string, int](cfg, Options{})
	require.ErrorContains(t, err, "sweepQuota")
}
