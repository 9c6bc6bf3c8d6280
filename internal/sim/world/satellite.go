package world

import (
	"orbitfield/internal/persistence/codec"
	"orbitfield/internal/sim/vmath"
)

// Satellite orbits the entity around a focal entity. The orbit plane is
// spanned by two orthogonal basis vectors pre-scaled by the orbit radius;
// the phase advances at 2πf·age. Position is absolute: the satellite tracks
// the focal entity wherever it moves.
//
// When the focal reference goes stale (the focal entity died or was
// recycled) the satellite flings the entity off on a tangent: it derives an
// exit velocity from its last two recorded positions, attaches a Movement
// behavior carrying that velocity, and removes itself.
type Satellite struct {
	Focal     EntityReference
	Frequency float32
	BasisA    vmath.Vec3
	BasisB    vmath.Vec3

	prevPos vmath.Vec3
}

func (s *Satellite) Tag() Tag { return TagSatellite }

func (s *Satellite) Update(e *Entity, dt float32) bool {
	if !s.Focal.IsValid() {
		m := e.AddMovement()
		if dt > 0 {
			m.Velocity = e.Position.Sub(s.prevPos).Scale(1 / dt)
		}
		return false
	}
	s.prevPos = e.Position
	phase := vmath.Tau * s.Frequency * e.Age
	center := s.Focal.Target().Position
	e.Position = center.
		Add(s.BasisA.Scale(vmath.Cos(phase))).
		Add(s.BasisB.Scale(vmath.Sin(phase)))
	return true
}

func (s *Satellite) Save(w *codec.Writer) {
	s.Focal.Save(w)
	w.Float32(s.Frequency)
	w.Vec3(s.BasisA)
	w.Vec3(s.BasisB)
	w.Vec3(s.prevPos)
}

func (s *Satellite) Load(r *codec.Reader) {
	s.Focal.Load(r)
	s.Frequency = r.Float32()
	s.BasisA = r.Vec3()
	s.BasisB = r.Vec3()
	s.prevPos = r.Vec3()
}

func (s *Satellite) Recycle() {
	*s = Satellite{}
	satellitePool.put(s)
}

func (s *Satellite) ResolveReferences(reg *Registry) {
	s.Focal.Resolve(reg)
}
