// Package util contains misc internal utilities.
package util

import (
	"math"
	"strconv"
)

// Limiter is a range that a value must lie within, inclusive of both ends
type Limiter struct {
	Min float64 `json:"min" yaml:"Min" koanf:"Min"`
	Max float64 `json:"max" yaml:"Max" koanf:"Max"`
}

// Check returns true if f is within the limits
func (l Limiter) Check(f float64) bool {
	return f >= l.Min && f <= l.Max
}

// Clamp restricts f to the limits
func (l Limiter) Clamp(f float64) float64 {
	return Clamp(f, l.Min, l.Max)
}

// Valid returns false if the range is empty or not finite
func (l Limiter) Valid() bool {
	return !math.IsNaN(l.Min) && !math.IsNaN(l.Max) && !math.IsInf(l.Min, 0) && !math.IsInf(l.Max, 0) && l.Min <= l.Max
}

// Clamp restricts input to the range [low, high]
func Clamp(input, low, high float64) float64 {
	if input < low {
		return low
	}
	if input > high {
		return high
	}
	return input
}

// RoundTo rounds f to the given number of decimal places
func RoundTo(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}

// FormatFloat formats f in the shortest representation that round trips,
// without exponents, e.g. 12345.6 => "12345.6", 1e7 => "10000000"
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
