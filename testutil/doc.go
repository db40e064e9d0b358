/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains assertions shared by the cache tests (error chains, Prometheus metric values).
package testutil

type tHelper interface {
	Helper()
}
