package world

import "orbitfield/internal/persistence/codec"

// Dying shrinks the entity; at zero scale it marks the entity dead so the
// world recycles it on this tick, and removes itself.
type Dying struct {
	noReferences
	Rate float32
}

func (d *Dying) Tag() Tag { return TagDying }

func (d *Dying) Update(e *Entity, dt float32) bool {
	e.Scale -= d.Rate * dt
	if e.Scale <= 0 {
		e.Scale = 0
		e.dead = true
		return false
	}
	return true
}

func (d *Dying) Save(w *codec.Writer) {
	w.Float32(d.Rate)
}

func (d *Dying) Load(r *codec.Reader) {
	d.Rate = r.Float32()
}

func (d *Dying) Recycle() {
	*d = Dying{}
	dyingPool.put(d)
}
