package world

import (
	"fmt"

	"orbitfield/internal/persistence/codec"
	"orbitfield/internal/sim/vmath"
)

// Entity is one simulated object: a transform plus an ordered-but-unordered
// list of active behaviors (insertion order is kept incidentally, removal is
// allowed to reorder the tail). Entities are never freed; the world recycles
// them through a free pool and bumps their identity so stale references can
// tell the difference.
type Entity struct {
	Position    vmath.Vec3
	Orientation vmath.Quat
	Scale       float32
	Colors      []vmath.Color
	Age         float32

	identity  int32
	saveIndex int32
	dead      bool
	behaviors []Behavior
}

func newEntity(identity int32) *Entity {
	return &Entity{
		Orientation: vmath.QuatIdentity(),
		Scale:       1,
		identity:    identity,
		saveIndex:   -1,
	}
}

// Identity returns the current instantiation counter. It changes exactly
// once per recycle and never decreases.
func (e *Entity) Identity() int32 {
	return e.identity
}

// Dead reports that a behavior has marked the entity for removal; the world
// recycles dead entities at the end of the tick.
func (e *Entity) Dead() bool {
	return e.dead
}

// Behaviors returns the live behavior list. Callers must not retain it
// across an Update or Recycle.
func (e *Entity) Behaviors() []Behavior {
	return e.behaviors
}

// Update advances the entity by one tick. Behaviors returning false are
// recycled and swap-removed, which may reorder the remainder of the list.
func (e *Entity) Update(dt float32) {
	e.Age += dt
	for i := 0; i < len(e.behaviors); {
		if e.behaviors[i].Update(e, dt) {
			i++
			continue
		}
		b := e.behaviors[i]
		last := len(e.behaviors) - 1
		e.behaviors[i] = e.behaviors[last]
		e.behaviors[last] = nil
		e.behaviors = e.behaviors[:last]
		b.Recycle()
	}
}

// The Add* methods pull a variant from its pool, append it, and hand it back
// for configuration by the caller.

func (e *Entity) AddMovement() *Movement {
	m := movementPool.get()
	e.behaviors = append(e.behaviors, m)
	return m
}

func (e *Entity) AddRotation() *Rotation {
	ro := rotationPool.get()
	e.behaviors = append(e.behaviors, ro)
	return ro
}

func (e *Entity) AddOscillation() *Oscillation {
	o := oscillationPool.get()
	e.behaviors = append(e.behaviors, o)
	return o
}

func (e *Entity) AddSatellite() *Satellite {
	s := satellitePool.get()
	e.behaviors = append(e.behaviors, s)
	return s
}

func (e *Entity) AddGrowing() *Growing {
	g := growingPool.get()
	e.behaviors = append(e.behaviors, g)
	return g
}

func (e *Entity) AddDying() *Dying {
	d := dyingPool.get()
	e.behaviors = append(e.behaviors, d)
	return d
}

// ResolveReferences fans out to every behavior. Runs only during the global
// post-load pass, once all entities of the batch exist.
func (e *Entity) ResolveReferences(reg *Registry) {
	for _, b := range e.behaviors {
		b.ResolveReferences(reg)
	}
}

// assignSaveIndex pins the entity's position in the current save/load batch.
// Reassigning while set is a caller bug, not bad data.
func (e *Entity) assignSaveIndex(idx int32) {
	if e.saveIndex >= 0 {
		panic(fmt.Sprintf("world: entity save index already assigned (%d, new %d)", e.saveIndex, idx))
	}
	e.saveIndex = idx
}

func (e *Entity) clearSaveIndex() {
	e.saveIndex = -1
}

// Save writes the entity record at the current format version: base
// transform, color block, age, then the tagged behavior list. The caller
// must have assigned save indexes to the whole batch first, or references
// cannot encode.
func (e *Entity) Save(w *codec.Writer) {
	w.Vec3(e.Position)
	w.Quat(e.Orientation)
	w.Float32(e.Scale)
	w.Int32(int32(len(e.Colors)))
	for _, c := range e.Colors {
		w.Color(c)
	}
	w.Float32(e.Age)
	w.Int32(int32(len(e.behaviors)))
	for _, b := range e.behaviors {
		w.Int32(int32(b.Tag()))
		b.Save(w)
	}
}

// Load reads one entity record at the reader's format version. Older
// versions only ever lose trailing fields, never reorder them, so each gate
// appends to the previous layout:
//
//	< 2  transform only
//	≥ 2  scale and color block
//	≥ 6  age and the tagged behavior list
//	4–5  no list; a fixed angular-velocity/velocity pair instead, kept as a
//	     compatibility shim that synthesizes exactly one Rotation plus one
//	     Movement (never generalized beyond that pair)
//	< 4  no behavior data at all
func (e *Entity) Load(r *codec.Reader) error {
	ver := r.Version()

	e.Position = r.Vec3()
	e.Orientation = r.Quat()
	if ver >= versionScaleColors {
		e.Scale = r.Float32()
		n := r.Int32()
		if err := r.Err(); err != nil {
			return err
		}
		if n < 0 || n > maxColors {
			return fmt.Errorf("world: bad color count %d", n)
		}
		for i := int32(0); i < n; i++ {
			e.Colors = append(e.Colors, r.Color())
		}
	}

	switch {
	case ver >= versionBehaviorList:
		e.Age = r.Float32()
		n := r.Int32()
		if err := r.Err(); err != nil {
			return err
		}
		if n < 0 || n > maxBehaviors {
			return fmt.Errorf("world: bad behavior count %d", n)
		}
		for i := int32(0); i < n; i++ {
			tag := Tag(r.Int32())
			if err := r.Err(); err != nil {
				return err
			}
			b, err := e.addByTag(tag)
			if err != nil {
				return err
			}
			b.Load(r)
		}
	case ver >= versionLegacyPair:
		ro := e.AddRotation()
		ro.AngularVelocity = r.Vec3()
		m := e.AddMovement()
		m.Velocity = r.Vec3()
	}

	return r.Err()
}

// Recycle resets the entity for its next instantiation: age back to zero,
// identity bumped so captured references go stale, behaviors returned to
// their pools. The world puts the entity itself back on its free pool.
func (e *Entity) Recycle() {
	e.Age = 0
	e.identity++
	for _, b := range e.behaviors {
		b.Recycle()
	}
	for i := range e.behaviors {
		e.behaviors[i] = nil
	}
	e.behaviors = e.behaviors[:0]
	e.Colors = e.Colors[:0]
	e.Position = vmath.Vec3{}
	e.Orientation = vmath.QuatIdentity()
	e.Scale = 1
	e.dead = false
	e.saveIndex = -1
}
