/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package syncguard

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuards(t *testing.T) {
	guards := map[string]func() Guard{
		"rw":    func() Guard { return NewRWGuard() },
		"mutex": func() Guard { return NewMutexGuard() },
	}

	for name, newGuard := range guards {
		t.Run(name, func(t *testing.T) {
			t.Run("writes are serialized", func(t *testing.T) {
				g := newGuard()
				const goroutines, iterations = 8, 1000
				counter := 0
				var wg sync.WaitGroup
				for i := 0; i < goroutines; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for j := 0; j < iterations; j++ {
							g.Write(func() { counter++ })
						}
					}()
				}
				wg.Wait()
				require.Equal(t, goroutines*iterations, ReadValue(g, func() int { return counter }))
			})

			t.Run("fallible variants propagate error and release lock", func(t *testing.T) {
				g := newGuard()
				errBoom := errors.New("boom")

				_, err := TryWrite(g, func() (int, error) { return 0, errBoom })
				require.ErrorIs(t, err, errBoom)

				res, err := TryRead(g, func() (string, error) { return "ok", nil })
				require.NoError(t, err)
				require.Equal(t, "ok", res)

				require.Equal(t, 42, WriteValue(g, func() int { return 42 }))
			})

			t.Run("panic does not leave lock held", func(t *testing.T) {
				g := newGuard()
				require.Panics(t, func() { g.Write(func() { panic("oops") }) })
				require.Equal(t, 1, WriteValue(g, func() int { return 1 }))
			})
		})
	}
}
