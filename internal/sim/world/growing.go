package world

import "orbitfield/internal/persistence/codec"

// Growing scales the entity up to a target size, then removes itself.
type Growing struct {
	noReferences
	Rate   float32
	Target float32
}

func (g *Growing) Tag() Tag { return TagGrowing }

func (g *Growing) Update(e *Entity, dt float32) bool {
	e.Scale += g.Rate * dt
	if e.Scale >= g.Target {
		e.Scale = g.Target
		return false
	}
	return true
}

func (g *Growing) Save(w *codec.Writer) {
	w.Float32(g.Rate)
	w.Float32(g.Target)
}

func (g *Growing) Load(r *codec.Reader) {
	g.Rate = r.Float32()
	g.Target = r.Float32()
}

func (g *Growing) Recycle() {
	*g = Growing{}
	growingPool.put(g)
}
