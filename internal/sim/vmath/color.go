package vmath

// Color is a linear RGBA color, one float32 per channel.
type Color struct {
	R, G, B, A float32
}
