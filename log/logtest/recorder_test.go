/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/log"
)

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.Warn("release failed", log.Int("attempt", 10), log.String("key", "abc"))
	rec.With(log.String("cache_id", "c1")).Info("sweep done")

	require.Len(t, rec.Entries(), 2)

	_, found := rec.FindEntry("unknown")
	require.False(t, found)

	entry, found := rec.FindEntry("release failed")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)

	attempt, found := entry.FindField("attempt")
	require.True(t, found)
	require.Equal(t, 10, int(attempt.Int))

	key, found := entry.FindField("key")
	require.True(t, found)
	require.Equal(t, "abc", string(key.Bytes))

	entry, found = rec.FindEntry("sweep done")
	require.True(t, found)
	_, found = entry.FindField("cache_id")
	require.True(t, found)

	require.Len(t, rec.EntriesAtLevel(log.LevelInfo), 1)

	rec.Reset()
	require.Empty(t, rec.Entries())
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Error("teardown panicked", log.Int("n", i))
		}(i)
	}
	wg.Wait()
	require.Len(t, rec.EntriesAtLevel(log.LevelError), 50)
}
