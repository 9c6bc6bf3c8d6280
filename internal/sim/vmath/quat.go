package vmath

import "math"

// Quat is a rotation quaternion (X, Y, Z imaginary, W real).
type Quat struct {
	X, Y, Z, W float32
}

func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// QuatFromEuler builds a rotation from XYZ Euler angles in radians,
// applied in X, Y, Z order.
func QuatFromEuler(x, y, z float32) Quat {
	sx, cx := sincosHalf(x)
	sy, cy := sincosHalf(y)
	sz, cz := sincosHalf(z)
	return Quat{
		X: sx*cy*cz - cx*sy*sz,
		Y: cx*sy*cz + sx*cy*sz,
		Z: cx*cy*sz - sx*sy*cz,
		W: cx*cy*cz + sx*sy*sz,
	}
}

func sincosHalf(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a) * 0.5)
	return float32(s), float32(c)
}

// Mul composes rotations: the result applies o first, then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Normalized guards against drift from repeated incremental integration.
func (q Quat) Normalized() Quat {
	mag := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if mag == 0 {
		return QuatIdentity()
	}
	inv := 1 / mag
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}
