/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package reclaim

// Cleanable is implemented by values that own resources which must be released
// once the cache lets the value go.
//
// CleanupFunc is called when the value is stored. The returned func runs at most once,
// after the value was reclaimed or evicted. It must not capture the receiver:
// a teardown that references the value keeps it reachable forever.
type Cleanable interface {
	CleanupFunc() func()
}

// TeardownOf returns the teardown of v if v implements Cleanable, nil otherwise.
func TeardownOf(v any) func() {
	if c, ok := v.(Cleanable); ok {
		return c.CleanupFunc()
	}
	return nil
}
