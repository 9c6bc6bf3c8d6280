package world

import (
	"orbitfield/internal/persistence/codec"
	"orbitfield/internal/sim/vmath"
)

// Oscillation drives the entity along a sine wave of the given frequency and
// amplitude vector. It applies only the delta between the previous and
// current sine sample each tick, so the cumulative offset after n ticks
// telescopes to Offset * sin(2πf·age) while still composing with other
// position-mutating behaviors; there is no absolute baseline to fight over.
type Oscillation struct {
	noReferences
	Offset    vmath.Vec3
	Frequency float32

	// last holds the previous sine sample. Persisted so a loaded entity
	// resumes mid-wave without a position jump.
	last float32
}

func (o *Oscillation) Tag() Tag { return TagOscillation }

func (o *Oscillation) Update(e *Entity, dt float32) bool {
	s := vmath.Sin(vmath.Tau * o.Frequency * e.Age)
	e.Position = e.Position.Add(o.Offset.Scale(s - o.last))
	o.last = s
	return true
}

func (o *Oscillation) Save(w *codec.Writer) {
	w.Vec3(o.Offset)
	w.Float32(o.Frequency)
	w.Float32(o.last)
}

func (o *Oscillation) Load(r *codec.Reader) {
	o.Offset = r.Vec3()
	o.Frequency = r.Float32()
	o.last = r.Float32()
}

func (o *Oscillation) Recycle() {
	*o = Oscillation{}
	oscillationPool.put(o)
}
