// Package mathx holds the small integer and float helpers shared by the
// input, menu and color packages.
package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Min/Max for convenience.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Map re-maps x from [inMin, inMax] to [outMin, outMax] with integer
// arithmetic truncating toward zero. The input is not clamped.
func Map(x, inMin, inMax, outMin, outMax int) int {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// MapFloat is Map for floats.
func MapFloat(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// Wrap folds v into [lo, hi). Values past either end re-enter from the other.
func Wrap(v, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return lo
	}
	r := math.Mod(v-lo, span)
	if r < 0 {
		r += span
	}
	return lo + r
}

// Frac returns the fractional part of v in [0, 1), also for negative v.
func Frac(v float64) float64 {
	return v - math.Floor(v)
}
