/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package syncguard provides read/write critical sections that caches use for all access to their state.
// A Guard may be shared by several caches when a single lock across related caches is wanted.
package syncguard
