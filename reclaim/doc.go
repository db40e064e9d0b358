/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package reclaim provides handles to cached values that the runtime (or an explicit reference count)
// may reclaim, and release tokens that run a value's teardown exactly once after that happens.
//
// A Handle never keeps a Weak or Soft value reachable by itself. When the value is reclaimed, or when
// the owner forces reclamation with Handle.Reclaim, the bound Token fires: the teardown and then the
// owner's release callback run on a Dispatcher goroutine, after which Token.Done is closed.
//
// Values are *T because weak pointers and runtime cleanups are attached to heap objects.
// Anything reachable from a teardown function or a release callback is kept alive,
// so neither may reference the value itself (see Cleanable).
package reclaim
