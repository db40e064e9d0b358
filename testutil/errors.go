/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"
)

// RequireNoErrorInChannel fails if a background unit has already reported an error to c.
// It does not wait: an empty channel passes.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	select {
	case err := <-c:
		require.NoError(t, err, msgAndArgs...)
	default:
	}
}

// RequireErrorIsAny fails unless errors.Is(err, target) holds for one of targets.
// Cache calls may return either a closing error or a context error depending on timing,
// which is what this is for.
func RequireErrorIsAny(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	wanted := make([]string, 0, len(targets))
	for _, target := range targets {
		if errors.Is(err, target) {
			return
		}
		wanted = append(wanted, fmt.Sprintf("%q", target.Error()))
	}
	require.FailNow(t, fmt.Sprintf("none of [%s] is in the error chain:\n%s",
		strings.Join(wanted, ", "), errorChain(err)), msgAndArgs...)
}

// errorChain renders err and every error it wraps, one per line.
func errorChain(err error) string {
	var lines []string
	for ; err != nil; err = errors.Unwrap(err) {
		lines = append(lines, fmt.Sprintf("\t%q", err.Error()))
	}
	if len(lines) == 0 {
		return "\t<nil>"
	}
	return strings.Join(lines, "\n")
}
