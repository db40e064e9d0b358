/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package ttlcache provides an in-memory cache whose entries expire after a per-entry TTL.
//
// Expired entries are invisible to readers at once, and are physically removed either by the access
// that finds them or by a periodic sweep. Each sweep pass inspects only a bounded number of the
// coldest entries (least recently stored or refreshed), so a pass never holds the lock for long.
// Eviction callbacks run asynchronously and never under the cache lock.
package ttlcache
