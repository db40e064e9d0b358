/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package reclaim

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSoftCapacity is the default number of values a SoftRetainer pins.
const DefaultSoftCapacity = 1024

// SoftRetainer keeps strong references to the most recently used soft values.
// A value that falls out of it (capacity, Shrink or Pressure) is held weakly only
// and is reclaimed on the next collection unless used elsewhere.
// It is safe for concurrent use and may be shared by several caches.
type SoftRetainer struct {
	pins *lru.Cache[any, struct{}]
}

// NewSoftRetainer creates a SoftRetainer pinning at most capacity values.
func NewSoftRetainer(capacity int) (*SoftRetainer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("soft retainer capacity must be positive, got %d", capacity)
	}
	pins, err := lru.New[any, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &SoftRetainer{pins: pins}, nil
}

// Touch pins v (or refreshes its recency if already pinned).
func (r *SoftRetainer) Touch(v any) {
	r.pins.Add(v, struct{}{})
}

// Forget unpins v.
func (r *SoftRetainer) Forget(v any) {
	r.pins.Remove(v)
}

// Pinned reports whether v is currently pinned, without refreshing its recency.
func (r *SoftRetainer) Pinned(v any) bool {
	return r.pins.Contains(v)
}

// Len returns the number of pinned values.
func (r *SoftRetainer) Len() int {
	return r.pins.Len()
}

// Shrink unpins up to n least recently used values and returns how many were unpinned.
func (r *SoftRetainer) Shrink(n int) int {
	unpinned := 0
	for ; unpinned < n; unpinned++ {
		if _, _, ok := r.pins.RemoveOldest(); !ok {
			break
		}
	}
	return unpinned
}

// Pressure unpins every value, as a runtime under memory pressure would clear all soft references.
func (r *SoftRetainer) Pressure() {
	r.pins.Purge()
}
