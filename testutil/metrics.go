/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCounterValue asserts that the collector (a counter or a vector with a single child) has the given value.
func AssertCounterValue(t assert.TestingT, counter prometheus.Collector, want float64) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return assert.Equal(t, want, promtestutil.ToFloat64(counter))
}

// RequireCounterValue calls AssertCounterValue and fails the test immediately if it does not hold.
func RequireCounterValue(t require.TestingT, counter prometheus.Collector, want float64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertCounterValue(t, counter, want) {
		return
	}
	t.FailNow()
}

// RequireGaugeValue fails the test immediately if the gauge (or a gauge vector with a single child) has another value.
func RequireGaugeValue(t require.TestingT, gauge prometheus.Collector, want float64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if assert.Equal(t, want, promtestutil.ToFloat64(gauge)) {
		return
	}
	t.FailNow()
}

// RequireLabeledCounterValue fails the test immediately if the child of the counter vector
// with the given label values has another value.
func RequireLabeledCounterValue(t require.TestingT, vec *prometheus.CounterVec, want float64, labelValues ...string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if assert.Equal(t, want, promtestutil.ToFloat64(vec.WithLabelValues(labelValues...))) {
		return
	}
	t.FailNow()
}
