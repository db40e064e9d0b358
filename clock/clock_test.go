/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMock(start)
	require.Equal(t, start, m.Now())

	m.Advance(time.Second)
	require.Equal(t, start.Add(time.Second), m.Now())

	m.Set(start)
	require.Equal(t, start, m.Now())
}

func TestReal(t *testing.T) {
	before := time.Now()
	now := Real().Now()
	require.False(t, now.Before(before))
}
