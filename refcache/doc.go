/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package refcache provides caches whose entries live as long as the runtime (or a reference count)
// keeps the cached value around: a single-value Slot and a Keyed map.
//
// An entry that was reclaimed, removed or replaced is released asynchronously: the value's teardown
// (see reclaim.Cleanable) runs exactly once and the entry is dropped from the cache. Until that release
// completes no new value is installed for the same key, and readers never get a value that is being released.
package refcache
