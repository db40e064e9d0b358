/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs background work for caches (e.g. the periodic sweep of expired entries)
// with a start/stop lifecycle.
package service

// Unit represents a background component that can be started and stopped.
type Unit interface {
	// Start begins the unit's operation. It may block for the unit's lifetime.
	// If Start succeeds, it must not write anything to the provided error channel.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has failed or was never called.
	// If gracefully is true, Stop waits until the current piece of work is done.
	Stop(gracefully bool) error
}
