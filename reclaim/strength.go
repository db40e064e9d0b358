/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package reclaim

import (
	"fmt"
	"strings"
)

// Strength defines when a cached value becomes eligible for reclamation.
type Strength string

// Supported strengths.
const (
	// StrengthWeak values are reclaimed by the garbage collector as soon as nobody outside the cache holds them.
	StrengthWeak Strength = "weak"

	// StrengthSoft values are additionally pinned by a bounded LRU retention set
	// and behave as weak once they fall out of it.
	StrengthSoft Strength = "soft"

	// StrengthCounted values are reclaimed when the last lease taken via Retain is released.
	StrengthCounted Strength = "counted"
)

// AvailableStrengths lists all supported strengths.
var AvailableStrengths = []string{string(StrengthWeak), string(StrengthSoft), string(StrengthCounted)}

// ParseStrength converts a case-insensitive string into Strength.
func ParseStrength(s string) (Strength, error) {
	for _, available := range AvailableStrengths {
		if strings.EqualFold(s, available) {
			return Strength(available), nil
		}
	}
	return "", fmt.Errorf("unknown reclaim strength %q, should be one of %v", s, AvailableStrengths)
}
