package world

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"orbitfield/internal/persistence/codec"
	"orbitfield/internal/persistence/savefile"
	"orbitfield/internal/sim/vmath"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	w := testWorld(t, 42, 24)
	dt := w.TickDelta()
	for i := 0; i < 50; i++ {
		w.Step(dt)
	}

	path := filepath.Join(t.TempDir(), "round.sav.zst")
	want := w.StateDigest()
	if err := w.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w2 := testWorld(t, 7, 0)
	if err := w2.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := w2.StateDigest(); got != want {
		t.Fatalf("digest after load = %s, want %s", got, want)
	}
	if w2.CurrentTick() != w.CurrentTick() {
		t.Fatalf("tick after load = %d, want %d", w2.CurrentTick(), w.CurrentTick())
	}

	// Both worlds restored the same RNG state, so they stay in lockstep.
	for i := 0; i < 25; i++ {
		w.Step(dt)
		w2.Step(dt)
	}
	if w.StateDigest() != w2.StateDigest() {
		t.Fatal("worlds diverged after load")
	}
}

func TestDeferredResolutionOrdering(t *testing.T) {
	w := testWorld(t, 1, 0)

	// Entity 0 orbits entity 2: its persisted focal index points past the
	// entities reconstructed so far during the load.
	e0 := w.Spawn()
	w.Spawn()
	e2 := w.Spawn()
	e2.Position = vmath.Vec3{X: 20}

	s := e0.AddSatellite()
	s.Focal = RefTo(e2)
	s.Frequency = 0.1
	s.BasisA = vmath.Vec3{X: 5}
	s.BasisB = vmath.Vec3{Y: 5}

	path := filepath.Join(t.TempDir(), "orbit.sav.zst")
	if err := w.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w2 := testWorld(t, 2, 0)
	if err := w2.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	loaded := w2.entities[0]
	if len(loaded.Behaviors()) != 1 {
		t.Fatalf("entity 0 behaviors = %d, want 1", len(loaded.Behaviors()))
	}
	ls, ok := loaded.Behaviors()[0].(*Satellite)
	if !ok {
		t.Fatalf("entity 0 behavior is %T, want *Satellite", loaded.Behaviors()[0])
	}
	if !ls.Focal.IsValid() {
		t.Fatal("focal reference unresolved after load")
	}
	if ls.Focal.Target() != w2.entities[2] {
		t.Fatal("focal reference bound to the wrong entity")
	}
}

func TestStaleReferenceSavesAsAbsent(t *testing.T) {
	w := testWorld(t, 1, 0)
	focal := w.Spawn()
	sat := w.Spawn()
	s := sat.AddSatellite()
	s.Focal = RefTo(focal)

	w.despawnAt(0) // focal recycled, reference now stale

	path := filepath.Join(t.TempDir(), "stale.sav.zst")
	if err := w.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w2 := testWorld(t, 2, 0)
	if err := w2.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	ls := w2.entities[0].Behaviors()[0].(*Satellite)
	if ls.Focal.IsValid() {
		t.Fatal("stale reference came back valid")
	}
}

// writeLegacySave hand-crafts a save body at an old format version.
func writeLegacySave(t *testing.T, path string, version int32, body func(cw *codec.Writer)) {
	t.Helper()
	m := savefile.Manifest{Format: version, WorldID: "legacy", Tick: 9, Entities: 1}
	err := savefile.Write(path, m, func(cw *codec.Writer) error {
		cw.Int32(version)
		body(cw)
		return cw.Err()
	})
	if err != nil {
		t.Fatalf("write legacy save: %v", err)
	}
}

func TestLoadLegacyPairVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v4.sav.zst")
	writeLegacySave(t, path, 4, func(cw *codec.Writer) {
		cw.Int32(1) // entity count
		cw.Vec3(vmath.Vec3{X: 1, Y: 2, Z: 3})
		cw.Quat(vmath.QuatIdentity())
		cw.Float32(1.5)  // scale
		cw.Int32(1)      // color count
		cw.Color(vmath.Color{R: 1, A: 1})
		cw.Vec3(vmath.Vec3{Y: 45})     // angular velocity
		cw.Vec3(vmath.Vec3{X: 2, Z: 1}) // velocity
	})

	w := testWorld(t, 1, 0)
	if err := w.Load(path); err != nil {
		t.Fatalf("load v4: %v", err)
	}
	if w.EntityCount() != 1 {
		t.Fatalf("entities = %d, want 1", w.EntityCount())
	}

	// The pre-list format always synthesizes exactly one rotation plus one
	// movement, in that order.
	e := w.entities[0]
	bs := e.Behaviors()
	if len(bs) != 2 {
		t.Fatalf("behaviors = %d, want 2", len(bs))
	}
	ro, ok := bs[0].(*Rotation)
	if !ok || ro.AngularVelocity != (vmath.Vec3{Y: 45}) {
		t.Fatalf("first behavior = %+v, want rotation {Y:45}", bs[0])
	}
	m, ok := bs[1].(*Movement)
	if !ok || m.Velocity != (vmath.Vec3{X: 2, Z: 1}) {
		t.Fatalf("second behavior = %+v, want movement {X:2 Z:1}", bs[1])
	}
	if e.Scale != 1.5 || len(e.Colors) != 1 {
		t.Fatalf("base fields lost: scale=%v colors=%d", e.Scale, len(e.Colors))
	}
	if e.Age != 0 {
		t.Fatalf("age = %v, want default 0 for pre-age formats", e.Age)
	}
}

func TestLoadPreBehaviorVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.sav.zst")
	writeLegacySave(t, path, 1, func(cw *codec.Writer) {
		cw.Int32(1)
		cw.Vec3(vmath.Vec3{X: 4})
		cw.Quat(vmath.QuatIdentity())
		// Version 1 records end here: no scale, colors, or behaviors.
	})

	w := testWorld(t, 1, 0)
	if err := w.Load(path); err != nil {
		t.Fatalf("load v1: %v", err)
	}
	e := w.entities[0]
	if e.Position != (vmath.Vec3{X: 4}) {
		t.Fatalf("position = %+v", e.Position)
	}
	if e.Scale != 1 {
		t.Fatalf("scale = %v, want default 1", e.Scale)
	}
	if len(e.Behaviors()) != 0 {
		t.Fatal("behaviors synthesized for a pre-behavior version")
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.sav.zst")
	writeLegacySave(t, path, FormatVersion+1, func(cw *codec.Writer) {})

	w := testWorld(t, 1, 0)
	err := w.Load(path)
	if err == nil || !strings.Contains(err.Error(), "newer") {
		t.Fatalf("err = %v, want newer-version rejection", err)
	}
}

func TestLoadRejectsUnknownTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badtag.sav.zst")
	writeLegacySave(t, path, FormatVersion, func(cw *codec.Writer) {
		cw.Text("splitmix64:1")
		cw.Int32(1)
		cw.Vec3(vmath.Vec3{})
		cw.Quat(vmath.QuatIdentity())
		cw.Float32(1)
		cw.Int32(0) // colors
		cw.Float32(0) // age
		cw.Int32(1) // behavior count
		cw.Int32(99) // no such variant
	})

	w := testWorld(t, 1, 3)
	before := w.EntityCount()
	err := w.Load(path)
	if !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("err = %v, want ErrUnknownTag", err)
	}
	if w.EntityCount() != before {
		t.Fatalf("population changed on failed load: %d -> %d", before, w.EntityCount())
	}
}

func TestLoadTruncatedAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.sav.zst")
	writeLegacySave(t, path, FormatVersion, func(cw *codec.Writer) {
		cw.Text("splitmix64:1")
		cw.Int32(5) // five entities promised, none present
	})

	w := testWorld(t, 1, 2)
	before := w.EntityCount()
	err := w.Load(path)
	if !errors.Is(err, codec.ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
	if w.EntityCount() != before {
		t.Fatalf("population changed on failed load: %d -> %d", before, w.EntityCount())
	}
}

func TestSaveIndexesClearedAfterBatch(t *testing.T) {
	w := testWorld(t, 1, 3)
	path := filepath.Join(t.TempDir(), "clear.sav.zst")
	if err := w.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A second save must not trip the double-assignment guard.
	if err := w.Save(path); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if err := w.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := w.Save(path); err != nil {
		t.Fatalf("save after load: %v", err)
	}
}
