package vmath

import "math"

// Vec3 is a float32 3D vector. float32 matches the wire format, so values
// survive a save/load round trip bit-exact.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) LenSq() float32 {
	return v.Dot(v)
}

func (v Vec3) Len() float32 {
	return float32(math.Sqrt(float64(v.LenSq())))
}

func (v Vec3) Normalized() Vec3 {
	mag := v.Len()
	if mag == 0 {
		return Vec3{}
	}
	return v.Scale(1 / mag)
}

// OrthoBasis returns two unit vectors spanning the plane perpendicular to v.
// v need not be normalized but must be non-zero.
func (v Vec3) OrthoBasis() (Vec3, Vec3) {
	n := v.Normalized()
	ref := Vec3{0, 1, 0}
	if abs32(n.Y) > 0.99 {
		ref = Vec3{1, 0, 0}
	}
	a := n.Cross(ref).Normalized()
	b := n.Cross(a)
	return a, b
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
