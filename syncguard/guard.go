/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package syncguard

import "sync"

// Guard represents a read/write critical section.
// Read may run concurrently with other Read calls, Write is always exclusive.
// The lock is released even if fn panics.
type Guard interface {
	Read(fn func())
	Write(fn func())
}

// RWGuard is a Guard backed by sync.RWMutex.
// A blocked Write prevents new readers from entering, so writers are not starved by a stream of readers.
type RWGuard struct {
	mu sync.RWMutex
}

var _ Guard = (*RWGuard)(nil)

// NewRWGuard creates a new RWGuard.
func NewRWGuard() *RWGuard {
	return &RWGuard{}
}

// Read runs fn holding the lock in shared mode.
func (g *RWGuard) Read(fn func()) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn()
}

// Write runs fn holding the lock in exclusive mode.
func (g *RWGuard) Write(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// MutexGuard is a Guard where both Read and Write are exclusive.
type MutexGuard struct {
	mu sync.Mutex
}

var _ Guard = (*MutexGuard)(nil)

// NewMutexGuard creates a new MutexGuard.
func NewMutexGuard() *MutexGuard {
	return &MutexGuard{}
}

// Read runs fn holding the lock.
func (g *MutexGuard) Read(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// Write runs fn holding the lock.
func (g *MutexGuard) Write(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// ReadValue runs fn in read mode and returns its result.
func ReadValue[T any](g Guard, fn func() T) (res T) {
	g.Read(func() { res = fn() })
	return res
}

// WriteValue runs fn in write mode and returns its result.
func WriteValue[T any](g Guard, fn func() T) (res T) {
	g.Write(func() { res = fn() })
	return res
}

// TryRead runs fn in read mode and propagates its error.
func TryRead[T any](g Guard, fn func() (T, error)) (res T, err error) {
	g.Read(func() { res, err = fn() })
	return res, err
}

// TryWrite runs fn in write mode and propagates its error.
func TryWrite[T any](g Guard, fn func() (T, error)) (res T, err error) {
	g.Write(func() { res, err = fn() })
	return res, err
}
