package vmath

import "math"

const (
	Tau     = 2 * math.Pi
	Deg2Rad = math.Pi / 180
)

// Sin is a float32 convenience wrapper; the sim stores float32 state but
// trig runs in float64 for precision.
func Sin(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func Cos(x float32) float32 {
	return float32(math.Cos(float64(x)))
}
