package world

import (
	"orbitfield/internal/persistence/codec"
	"orbitfield/internal/sim/vmath"
)

// Movement translates the entity at a constant velocity.
type Movement struct {
	noReferences
	Velocity vmath.Vec3
}

func (m *Movement) Tag() Tag { return TagMovement }

func (m *Movement) Update(e *Entity, dt float32) bool {
	e.Position = e.Position.Add(m.Velocity.Scale(dt))
	return true
}

func (m *Movement) Save(w *codec.Writer) {
	w.Vec3(m.Velocity)
}

func (m *Movement) Load(r *codec.Reader) {
	m.Velocity = r.Vec3()
}

func (m *Movement) Recycle() {
	*m = Movement{}
	movementPool.put(m)
}
