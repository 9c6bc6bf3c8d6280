package world

import "orbitfield/internal/persistence/codec"

// EntityReference is a serializable pointer from one entity to another. It
// decouples what goes on the wire (the target's index in a flat save batch)
// from what the reference means live (a pointer plus the identity it had
// when captured). A load batch may reference an entity that has not been
// reconstructed yet, so a persisted reference stays index-only until the
// global resolution pass.
//
// The identity copy doubles as a staleness check: once the target entity is
// recycled its identity moves on and IsValid goes false, without this
// reference ever touching freed state.
type EntityReference struct {
	target *Entity

	// indexOrIdentity is a save-index before resolution and the target's
	// captured identity after. Negative means "no reference".
	indexOrIdentity int32
}

// RefTo captures a reference to a live entity.
func RefTo(e *Entity) EntityReference {
	return EntityReference{target: e, indexOrIdentity: e.identity}
}

// RefFromSaveIndex restores a persisted reference. idx may be -1 for
// "absent"; such a reference never resolves and is never valid.
func RefFromSaveIndex(idx int32) EntityReference {
	return EntityReference{indexOrIdentity: idx}
}

// IsValid reports whether the referenced entity still exists as the same
// instantiation that was captured.
func (ref *EntityReference) IsValid() bool {
	return ref.target != nil && ref.target.identity == ref.indexOrIdentity
}

// Target returns the referenced entity. Check IsValid first; a stale target
// pointer may refer to a recycled entity.
func (ref *EntityReference) Target() *Entity {
	return ref.target
}

// Resolve rewrites a persisted save-index into a live pointer using the
// load-batch registry, and replaces the index with the target's current
// identity. No-op when already resolved or when the index is negative.
// Must run only after the entire batch has been reconstructed.
func (ref *EntityReference) Resolve(reg *Registry) {
	if ref.target != nil || ref.indexOrIdentity < 0 {
		return
	}
	e := reg.LookupBySaveIndex(ref.indexOrIdentity)
	if e == nil {
		// Out-of-range index in the save. Leave the reference dangling;
		// IsValid stays false.
		return
	}
	ref.target = e
	ref.indexOrIdentity = e.identity
}

// Save encodes the reference as a single int32: the target's position in the
// current save batch, or -1 when the reference is stale or absent.
func (ref *EntityReference) Save(w *codec.Writer) {
	if ref.IsValid() {
		w.Int32(ref.target.saveIndex)
		return
	}
	w.Int32(-1)
}

func (ref *EntityReference) Load(r *codec.Reader) {
	*ref = RefFromSaveIndex(r.Int32())
}

// Registry is the per-batch lookup table from save-index to reconstructed
// entity. It exists only for the duration of one load (plus the resolution
// pass) and is passed explicitly to whoever resolves references.
type Registry struct {
	entities []*Entity
}

func (reg *Registry) LookupBySaveIndex(idx int32) *Entity {
	if idx < 0 || int(idx) >= len(reg.entities) {
		return nil
	}
	return reg.entities[idx]
}
