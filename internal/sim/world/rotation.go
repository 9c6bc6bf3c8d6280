package world

import (
	"orbitfield/internal/persistence/codec"
	"orbitfield/internal/sim/vmath"
)

// Rotation spins the entity at a constant angular velocity, in degrees per
// second around each axis.
type Rotation struct {
	noReferences
	AngularVelocity vmath.Vec3
}

func (ro *Rotation) Tag() Tag { return TagRotation }

func (ro *Rotation) Update(e *Entity, dt float32) bool {
	step := ro.AngularVelocity.Scale(dt * vmath.Deg2Rad)
	e.Orientation = vmath.QuatFromEuler(step.X, step.Y, step.Z).Mul(e.Orientation).Normalized()
	return true
}

func (ro *Rotation) Save(w *codec.Writer) {
	w.Vec3(ro.AngularVelocity)
}

func (ro *Rotation) Load(r *codec.Reader) {
	ro.AngularVelocity = r.Vec3()
}

func (ro *Rotation) Recycle() {
	*ro = Rotation{}
	rotationPool.put(ro)
}
