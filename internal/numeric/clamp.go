// Package numeric holds small generic numeric helpers. No other package
// in this module calls them at present.
package numeric

import "golang.org/x/exp/constraints"

// Clamp returns f clamped to the range [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}
