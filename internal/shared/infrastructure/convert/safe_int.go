// Package convert holds overflow-safe integer conversions.
package convert

import "math"

// IntToInt32Clamped converts v to int32, clamping at the int32 bounds.
// Used for pool sizes read from configuration.
func IntToInt32Clamped(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// IntToUintClamped converts v to uint, clamping negative values to 0.
func IntToUintClamped(v int) uint {
	if v < 0 {
		return 0
	}
	return uint(v)
}
