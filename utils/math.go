package utils

import (
	"math"
)

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Lerp interpolates linearly from start (frac = 0) to end (frac = 1).
func Lerp(start, end, frac float64) float64 {
	return (1-frac)*start + frac*end
}

// MaxInt returns the larger of a and b.
func MaxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}

// MinInt returns the smaller of a and b.
func MinInt(a, b int) int {
	if a > b {
		return b
	}
	return a
}
