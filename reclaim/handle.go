/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package reclaim

import (
	"fmt"
	"runtime"
	"sync"
	"weak"

	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log"
)

// Handle is a reference to a cached value that may be reclaimed.
type Handle[T any] interface {
	// Value returns the value or nil if it has been reclaimed or is being reclaimed.
	Value() *T

	// PendingReclaim reports whether the value has been reclaimed (or forced into reclamation).
	PendingReclaim() bool

	// Reclaim forces reclamation. The bound token, if any, fires.
	Reclaim()
}

// Factory creates handles of one strength.
type Factory[T any] struct {
	strength Strength
	registry *Registry
	retainer *SoftRetainer
}

// NewFactory creates a Factory. retainer is required for StrengthSoft only.
func NewFactory[T any](strength Strength, registry *Registry, retainer *SoftRetainer) (*Factory[T], error) {
	switch strength {
	case StrengthWeak, StrengthCounted:
	case StrengthSoft:
		if retainer == nil {
			return nil, fmt.Errorf("soft strength requires a retainer")
		}
	default:
		return nil, fmt.Errorf("unknown reclaim strength %q", strength)
	}
	return &Factory[T]{strength: strength, registry: registry, retainer: retainer}, nil
}

// Strength returns the strength of created handles.
func (f *Factory[T]) Strength() Strength {
	return f.strength
}

// New wraps v into a handle. If bind is true, the returned token fires when v is reclaimed,
// running teardown and then onRelease. Counted handles are always bound, since nothing else
// observes their release. The returned token is nil when no binding was made.
func (f *Factory[T]) New(v *T, bind bool, teardown func(), onRelease func(*Token), fields ...log.Field) (Handle[T], *Token) {
	switch f.strength {
	case StrengthCounted:
		tok := f.registry.NewToken(teardown, onRelease, fields...)
		return &countedHandle[T]{value: v, token: tok}, tok
	case StrengthSoft:
		var tok *Token
		if bind {
			tok = Bind(f.registry, v, teardown, onRelease, fields...)
		}
		f.retainer.Touch(v)
		return &softHandle[T]{weakHandle: weakHandle[T]{ptr: weak.Make(v), token: tok}, retainer: f.retainer}, tok
	default:
		var tok *Token
		if bind {
			tok = Bind(f.registry, v, teardown, onRelease, fields...)
		}
		return &weakHandle[T]{ptr: weak.Make(v), token: tok}, tok
	}
}

type weakHandle[T any] struct {
	ptr       weak.Pointer[T]
	token     *Token
	reclaimed atomic.Bool
}

func (h *weakHandle[T]) Value() *T {
	if h.reclaimed.Load() {
		return nil
	}
	return h.ptr.Value()
}

func (h *weakHandle[T]) PendingReclaim() bool {
	return h.reclaimed.Load() || h.ptr.Value() == nil
}

func (h *weakHandle[T]) Reclaim() {
	if !h.reclaimed.CompareAndSwap(false, true) {
		return
	}
	if h.token != nil {
		h.token.Fire()
	}
}

type softHandle[T any] struct {
	weakHandle[T]
	retainer *SoftRetainer
}

func (h *softHandle[T]) Value() *T {
	v := h.weakHandle.Value()
	if v != nil {
		h.retainer.Touch(v)
	}
	return v
}

func (h *softHandle[T]) Reclaim() {
	v := h.ptr.Value()
	h.weakHandle.Reclaim()
	if v != nil {
		h.retainer.Forget(v)
	}
}

type countedHandle[T any] struct {
	mu        sync.Mutex
	value     *T
	refs      int
	reclaimed bool
	token     *Token
}

func (h *countedHandle[T]) Value() *T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

func (h *countedHandle[T]) PendingReclaim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reclaimed
}

func (h *countedHandle[T]) Reclaim() {
	h.mu.Lock()
	if h.reclaimed {
		h.mu.Unlock()
		return
	}
	h.reclaimed = true
	h.value = nil
	h.mu.Unlock()
	h.token.Fire()
}

func (h *countedHandle[T]) acquire() (*T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reclaimed {
		return nil, false
	}
	h.refs++
	return h.value, true
}

func (h *countedHandle[T]) release() {
	h.mu.Lock()
	h.refs--
	last := h.refs == 0 && !h.reclaimed
	if last {
		h.reclaimed = true
		h.value = nil
	}
	h.mu.Unlock()
	if last {
		h.token.Fire()
	}
}

// Refs returns the number of outstanding leases of a counted handle, or -1 for other strengths.
func Refs[T any](h Handle[T]) int {
	if ch, ok := h.(*countedHandle[T]); ok {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		return ch.refs
	}
	return -1
}

// Retain takes a lease on the value behind h. The value stays strongly reachable until the
// returned release func is called; for counted handles the lease is what keeps the value alive,
// and releasing the last one reclaims it. It returns nil and a no-op func if h is already reclaimed.
// The release func may be called more than once.
func Retain[T any](h Handle[T]) (*T, func()) {
	if ch, ok := h.(*countedHandle[T]); ok {
		v, ok := ch.acquire()
		if !ok {
			return nil, func() {}
		}
		return v, sync.OnceFunc(ch.release)
	}
	v := h.Value()
	if v == nil {
		return nil, func() {}
	}
	return v, sync.OnceFunc(func() { runtime.KeepAlive(v) })
}
