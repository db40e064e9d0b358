/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package refcache

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/reclaim"
)

// journal records teardown and production events in order.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(format string, args ...interface{}) {
	j.mu.Lock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

func (j *journal) has(event string) bool {
	for _, e := range j.snapshot() {
		if e == event {
			return true
		}
	}
	return false
}

// conn is a cached value owning a resource that must be closed exactly once.
type conn struct {
	id       int
	closes   *atomic.Int32
	journal  *journal
	closeLag time.Duration
}

func newConn(id int, j *journal) *conn {
	return &conn{id: id, closes: atomic.NewInt32(0), journal: j}
}

func (c *conn) CleanupFunc() func() {
	id, closes, j, lag := c.id, c.closes, c.journal, c.closeLag
	return func() {
		time.Sleep(lag)
		closes.Inc()
		if j != nil {
			j.add("des:%d", id)
		}
	}
}

var _ reclaim.Cleanable = (*conn)(nil)

func configWithStrength(s reclaim.Strength) *Config {
	cfg := NewDefaultConfig()
	cfg.Strength = s
	return cfg
}

func collectUntil(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		runtime.GC()
		return cond()
	}, 5*time.Second, 10*time.Millisecond)
}
