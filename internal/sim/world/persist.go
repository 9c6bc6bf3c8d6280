package world

import (
	"fmt"

	"orbitfield/internal/persistence/codec"
	"orbitfield/internal/persistence/savefile"
	"orbitfield/internal/sim/rng"
)

// FormatVersion is the binary body version written by this build. The gates
// below record where each version's fields begin; loads of every older
// version must keep working forever, so gates are only ever added.
const (
	FormatVersion int32 = 6

	versionScaleColors  int32 = 2 // scale + color block
	versionLegacyPair   int32 = 4 // fixed angular-velocity/velocity pair (4-5 only)
	versionWorldRNG     int32 = 5 // world RNG snapshot in the header
	versionBehaviorList int32 = 6 // age + tagged behavior list

	maxColors    = 64
	maxBehaviors = 256
	maxEntities  = 1 << 20
)

// beginBatch assigns every live entity its position in the save batch;
// references encode against these indexes.
func (w *World) beginBatch() {
	for i, e := range w.entities {
		e.assignSaveIndex(int32(i))
	}
}

func (w *World) endBatch() {
	for _, e := range w.entities {
		e.clearSaveIndex()
	}
}

// writeBody streams the versioned body: version, world RNG snapshot, entity
// count, then each entity record. Callers must hold batch indexes.
func (w *World) writeBody(cw *codec.Writer) error {
	cw.Int32(FormatVersion)
	st, err := w.rng.MarshalText()
	if err != nil {
		return err
	}
	cw.Text(string(st))
	cw.Int32(int32(len(w.entities)))
	for _, e := range w.entities {
		e.Save(cw)
	}
	return cw.Err()
}

// Save writes the current population to path. Runs between ticks only.
func (w *World) Save(path string) error {
	return w.SaveSlot("", path)
}

// SaveSlot is Save plus an index record under the given slot name.
func (w *World) SaveSlot(slot, path string) error {
	w.beginBatch()
	defer w.endBatch()

	digest := w.digestWithBatch()
	m := savefile.Manifest{
		Format:   FormatVersion,
		WorldID:  w.cfg.ID,
		Tick:     w.tick.Load(),
		Entities: len(w.entities),
		Digest:   digest,
	}
	if err := savefile.Write(path, m, w.writeBody); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if w.index != nil && slot != "" {
		w.index.RecordSave(slot, path, w.tick.Load(), len(w.entities), digest)
	}
	w.logf("saved %d entities to %s (tick %d)", len(w.entities), path, w.tick.Load())
	return nil
}

// Load replaces the population with the batch stored at path. The load is
// all-or-nothing: records are reconstructed into a staging batch first, and
// only a fully decoded batch replaces the live population. References
// resolve in a second pass after the whole batch exists; an entity may
// orbit one with a higher save-index.
func (w *World) Load(path string) error {
	var batch []*Entity
	loadedRNG := rng.New(0)
	haveRNG := false

	m, err := savefile.Read(path, func(m savefile.Manifest, r *codec.Reader) error {
		ver := r.ReadVersion()
		if err := r.Err(); err != nil {
			return err
		}
		if ver > FormatVersion {
			return fmt.Errorf("world: save format %d newer than supported %d", ver, FormatVersion)
		}
		if ver >= versionWorldRNG {
			st := r.Text()
			if err := r.Err(); err != nil {
				return err
			}
			if err := loadedRNG.UnmarshalText([]byte(st)); err != nil {
				return err
			}
			haveRNG = true
		}
		n := r.Int32()
		if err := r.Err(); err != nil {
			return err
		}
		if n < 0 || n > maxEntities {
			return fmt.Errorf("world: bad entity count %d", n)
		}
		for i := int32(0); i < n; i++ {
			e := w.acquireEntity()
			batch = append(batch, e)
			e.assignSaveIndex(i)
			if err := e.Load(r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Nothing committed: staged entities go straight back to the pool.
		for _, e := range batch {
			w.recycleEntity(e)
		}
		return fmt.Errorf("load %s: %w", path, err)
	}

	for _, e := range w.entities {
		w.recycleEntity(e)
	}
	w.entities = batch

	reg := &Registry{entities: batch}
	for _, e := range batch {
		e.ResolveReferences(reg)
	}
	for _, e := range batch {
		e.clearSaveIndex()
	}

	if haveRNG {
		w.rng = loadedRNG
	}
	w.tick.Store(m.Tick)
	w.logf("loaded %d entities from %s (tick %d, format %d)", len(batch), path, m.Tick, m.Format)
	return nil
}
