package world

import (
	"errors"
	"fmt"

	"orbitfield/internal/persistence/codec"
)

// Behavior is one unit of per-tick entity logic. The set of implementations
// is closed; each one maps to a fixed wire tag below.
//
// Update returns false to ask the owning entity to remove the behavior on
// this tick. Save and Load are symmetric and carry no tag; the entity writes
// the tag one level up. ResolveReferences runs only in the global pass after
// a whole load batch has been reconstructed.
type Behavior interface {
	Update(e *Entity, dt float32) bool
	Save(w *codec.Writer)
	Load(r *codec.Reader)
	Recycle()
	ResolveReferences(reg *Registry)
	Tag() Tag
}

// Tag identifies a behavior variant on the wire. Values are frozen: they are
// written into save files and must never be renumbered.
type Tag int32

const (
	TagMovement    Tag = 0
	TagRotation    Tag = 1
	TagOscillation Tag = 2
	TagSatellite   Tag = 3
	TagGrowing     Tag = 4
	TagDying       Tag = 5
)

func (t Tag) String() string {
	switch t {
	case TagMovement:
		return "movement"
	case TagRotation:
		return "rotation"
	case TagOscillation:
		return "oscillation"
	case TagSatellite:
		return "satellite"
	case TagGrowing:
		return "growing"
	case TagDying:
		return "dying"
	}
	return "unknown"
}

// ErrUnknownTag reports a variant tag outside the closed set: either a
// corrupt save or a variant missing from the table below.
var ErrUnknownTag = errors.New("world: unknown behavior tag")

// variantTable maps wire tags to pool-backed attachment. Kept as an explicit
// table so the tag space stays visibly bijective with the variant set.
var variantTable = map[Tag]func(e *Entity) Behavior{
	TagMovement:    func(e *Entity) Behavior { return e.AddMovement() },
	TagRotation:    func(e *Entity) Behavior { return e.AddRotation() },
	TagOscillation: func(e *Entity) Behavior { return e.AddOscillation() },
	TagSatellite:   func(e *Entity) Behavior { return e.AddSatellite() },
	TagGrowing:     func(e *Entity) Behavior { return e.AddGrowing() },
	TagDying:       func(e *Entity) Behavior { return e.AddDying() },
}

func (e *Entity) addByTag(tag Tag) (Behavior, error) {
	attach, ok := variantTable[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
	return attach(e), nil
}

// pool is a per-variant LIFO free list. Reuse order is part of the contract:
// the most recently reclaimed instance is handed out first. Plain slice
// rather than sync.Pool because the sim is single-threaded and sync.Pool
// gives no reuse-order or retention guarantees.
type pool[B Behavior] struct {
	free  []B
	alloc func() B
}

func (p *pool[B]) get() B {
	n := len(p.free)
	if n == 0 {
		return p.alloc()
	}
	b := p.free[n-1]
	p.free = p.free[:n-1]
	return b
}

func (p *pool[B]) put(b B) {
	p.free = append(p.free, b)
}

// One pool per variant, package-wide. Grow-only; entries live until process
// teardown. Single simulation thread only.
var (
	movementPool    = pool[*Movement]{alloc: func() *Movement { return &Movement{} }}
	rotationPool    = pool[*Rotation]{alloc: func() *Rotation { return &Rotation{} }}
	oscillationPool = pool[*Oscillation]{alloc: func() *Oscillation { return &Oscillation{} }}
	satellitePool   = pool[*Satellite]{alloc: func() *Satellite { return &Satellite{} }}
	growingPool     = pool[*Growing]{alloc: func() *Growing { return &Growing{} }}
	dyingPool       = pool[*Dying]{alloc: func() *Dying { return &Dying{} }}
)

// noReferences is embedded by variants that hold no entity references.
type noReferences struct{}

func (noReferences) ResolveReferences(*Registry) {}
