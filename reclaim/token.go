/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package reclaim

import (
	"runtime"

	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log"
)

// Token is the release callback bound to one stored value.
// It fires at most once, either because the collector found the value unreachable,
// or because the owner forced it (Fire). Firing schedules the teardown followed by
// the owner's release callback; Done is closed after both returned.
type Token struct {
	fired    atomic.Bool
	done     chan struct{}
	schedule func(t *Token)

	cleanup    runtime.Cleanup
	hasCleanup bool
}

// Fired reports whether the token has fired. The release may still be running.
func (t *Token) Fired() bool {
	return t.fired.Load()
}

// Done returns a channel closed once the teardown and the release callback have completed.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Completed reports whether the release has fully completed.
func (t *Token) Completed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Fire forces the release. It returns false if the token has already fired.
func (t *Token) Fire() bool {
	if !t.fired.CompareAndSwap(false, true) {
		return false
	}
	if t.hasCleanup {
		t.cleanup.Stop()
	}
	t.schedule(t)
	return true
}

// collected is invoked by the runtime once the value became unreachable.
// It must not touch t.cleanup: the cleanup may run before AddCleanup returned to Bind.
func (t *Token) collected() {
	if t.fired.CompareAndSwap(false, true) {
		t.schedule(t)
	}
}

// Registry creates tokens whose releases run on a Dispatcher.
type Registry struct {
	dispatcher *Dispatcher
	logger     log.FieldLogger
}

// NewRegistry creates a Registry scheduling releases on d.
func NewRegistry(d *Dispatcher, logger log.FieldLogger) *Registry {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Registry{dispatcher: d, logger: logger}
}

// Dispatcher returns the dispatcher the registry schedules releases on.
func (r *Registry) Dispatcher() *Dispatcher {
	return r.dispatcher
}

// NewToken creates a token that fires only when forced (Token.Fire).
// Both teardown and onRelease may be nil. onRelease runs even if teardown panics.
func (r *Registry) NewToken(teardown func(), onRelease func(*Token), fields ...log.Field) *Token {
	return &Token{
		done: make(chan struct{}),
		schedule: func(t *Token) {
			r.dispatcher.Go(JobTeardown, func() {
				defer close(t.done)
				if onRelease != nil {
					defer onRelease(t)
				}
				if teardown != nil {
					teardown()
				}
				r.logger.Debug("value released", fields...)
			}, fields...)
		},
	}
}

// Bind creates a token that fires when v becomes unreachable or when forced.
// Neither teardown nor onRelease may reference v, otherwise v is never collected.
func Bind[T any](r *Registry, v *T, teardown func(), onRelease func(*Token), fields ...log.Field) *Token {
	t := r.NewToken(teardown, onRelease, fields...)
	t.cleanup = runtime.AddCleanup(v, (*Token).collected, t)
	t.hasCleanup = true
	return t
}
