package world

import (
	"context"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"orbitfield/internal/protocol"
	"orbitfield/internal/sim/rng"
	"orbitfield/internal/sim/vmath"
)

type Config struct {
	ID              string
	TickRateHz      int
	Seed            int64
	SpawnRadius     float32
	InitialEntities int
	SaveEveryTicks  int

	// DigestEveryTicks controls how often the tick index gets a state
	// digest; 0 disables digesting outside saves.
	DigestEveryTicks int

	SaveDir string
}

// Index receives tick digests and save records. Implemented in
// internal/persistence/indexdb; may be nil.
type Index interface {
	RecordTick(tick uint64, digest string, entities int)
	RecordSave(slot, path string, tick uint64, entities int, digest string)
}

// Command is an external control request. Commands are processed between
// ticks only, never concurrently with stepping.
type Command struct {
	Kind  string // protocol.Cmd*
	Count int
	Slot  string
	Resp  chan CommandResult
}

type CommandResult struct {
	Err  error
	Tick uint64
}

// World is a single-threaded authoritative simulation. All state must be
// accessed only from the world loop goroutine; tests and the replay tool
// drive Step directly instead of running the loop.
type World struct {
	cfg Config
	log *log.Logger
	rng *rng.Source

	tick         atomic.Uint64
	entities     []*Entity
	freeEntities []*Entity
	nextIdentity int32

	inbox       chan Command
	subscribe   chan chan []byte
	unsubscribe chan chan []byte
	subs        map[chan []byte]struct{}
	stop        chan struct{}
	done        chan struct{}

	index Index
}

func New(cfg Config, logger *log.Logger) *World {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.SpawnRadius <= 0 {
		cfg.SpawnRadius = 100
	}
	w := &World{
		cfg:          cfg,
		log:          logger,
		rng:          rng.New(cfg.Seed),
		nextIdentity: 1,
		inbox:        make(chan Command, 64),
		subscribe:    make(chan chan []byte),
		unsubscribe:  make(chan chan []byte),
		subs:         make(map[chan []byte]struct{}),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for i := 0; i < cfg.InitialEntities; i++ {
		w.SpawnRandom()
	}
	return w
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) EntityCount() int    { return len(w.entities) }
func (w *World) SetIndex(idx Index)  { w.index = idx }

// Describe returns the immutable world configuration.
func (w *World) Describe() Config { return w.cfg }

// TickDelta is the fixed per-tick time step. The step is fixed rather than
// wall-clock so two worlds with the same seed and command stream stay
// bit-identical.
func (w *World) TickDelta() float32 {
	return 1 / float32(w.cfg.TickRateHz)
}

// Submit delivers a command to the loop and waits for the result. Reports
// ok=false, without blocking forever, when the loop has already exited or
// exits before answering.
func (w *World) Submit(cmd Command) (CommandResult, bool) {
	if cmd.Resp == nil {
		cmd.Resp = make(chan CommandResult, 1)
	}
	select {
	case w.inbox <- cmd:
	case <-w.done:
		return CommandResult{}, false
	}
	select {
	case res := <-cmd.Resp:
		return res, true
	case <-w.done:
		return CommandResult{}, false
	}
}

// Subscribe registers out to receive per-tick state frames. Reports false
// when the loop has already exited.
func (w *World) Subscribe(out chan []byte) bool {
	select {
	case w.subscribe <- out:
		return true
	case <-w.done:
		return false
	}
}

func (w *World) Unsubscribe(out chan []byte) {
	select {
	case w.unsubscribe <- out:
	case <-w.done:
	}
}

func (w *World) Stop() { close(w.stop) }

// Run drives the simulation until the context is canceled or Stop is
// called. Everything the loop touches stays on this goroutine; the done
// channel releases Submit and Subscribe callers once the loop is gone.
func (w *World) Run(ctx context.Context) error {
	defer close(w.done)
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case cmd := <-w.inbox:
			w.handleCommand(cmd)
		case out := <-w.subscribe:
			w.subs[out] = struct{}{}
		case out := <-w.unsubscribe:
			delete(w.subs, out)
		case <-ticker.C:
			w.Step(w.TickDelta())
			w.afterTick()
		}
	}
}

// Step advances the whole population by one tick and recycles entities that
// died during it.
func (w *World) Step(dt float32) {
	w.tick.Add(1)
	for _, e := range w.entities {
		e.Update(dt)
	}
	for i := 0; i < len(w.entities); {
		if !w.entities[i].Dead() {
			i++
			continue
		}
		e := w.entities[i]
		last := len(w.entities) - 1
		w.entities[i] = w.entities[last]
		w.entities[last] = nil
		w.entities = w.entities[:last]
		w.recycleEntity(e)
	}
}

func (w *World) afterTick() {
	if len(w.subs) > 0 {
		frame := w.stateFrame()
		for out := range w.subs {
			select {
			case out <- frame:
			default:
				// Slow observer; drop the frame rather than stall the sim.
			}
		}
	}
	if w.index != nil && w.cfg.DigestEveryTicks > 0 && w.tick.Load()%uint64(w.cfg.DigestEveryTicks) == 0 {
		w.index.RecordTick(w.tick.Load(), w.StateDigest(), len(w.entities))
	}
	if w.cfg.SaveEveryTicks > 0 && w.tick.Load()%uint64(w.cfg.SaveEveryTicks) == 0 {
		slot := "autosave"
		path := w.SlotPath(slot)
		if err := w.SaveSlot(slot, path); err != nil {
			w.logf("autosave: %v", err)
		}
	}
}

// SlotPath maps a save-slot name to its file under the save directory.
func (w *World) SlotPath(slot string) string {
	return filepath.Join(w.cfg.SaveDir, slot+".sav.zst")
}

func (w *World) handleCommand(cmd Command) {
	var err error
	switch cmd.Kind {
	case protocol.CmdSpawn:
		n := cmd.Count
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			w.SpawnRandom()
		}
	case protocol.CmdKill:
		n := cmd.Count
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n && len(w.entities) > 0; i++ {
			w.despawnAt(w.rng.Intn(len(w.entities)))
		}
	case protocol.CmdSave:
		err = w.SaveSlot(cmd.Slot, w.SlotPath(cmd.Slot))
	case protocol.CmdLoad:
		err = w.Load(w.SlotPath(cmd.Slot))
	default:
		err = protocol.ErrBadCommand
	}
	if cmd.Resp != nil {
		cmd.Resp <- CommandResult{Err: err, Tick: w.tick.Load()}
	}
}

func (w *World) acquireEntity() *Entity {
	n := len(w.freeEntities)
	if n > 0 {
		e := w.freeEntities[n-1]
		w.freeEntities = w.freeEntities[:n-1]
		return e
	}
	e := newEntity(w.nextIdentity)
	w.nextIdentity++
	return e
}

func (w *World) recycleEntity(e *Entity) {
	e.Recycle()
	w.freeEntities = append(w.freeEntities, e)
}

// despawnAt removes and recycles the entity at index i. Satellites orbiting
// it notice the identity bump on their next update.
func (w *World) despawnAt(i int) {
	e := w.entities[i]
	last := len(w.entities) - 1
	w.entities[i] = w.entities[last]
	w.entities[last] = nil
	w.entities = w.entities[:last]
	w.recycleEntity(e)
}

// Spawn adds a bare entity at the origin for the caller to configure.
func (w *World) Spawn() *Entity {
	e := w.acquireEntity()
	w.entities = append(w.entities, e)
	return e
}

// SpawnRandom populates an entity from the world RNG: a position inside the
// spawn radius, a couple of colors, and a random mix of behaviors. Satellites
// orbit an already-present entity when one exists.
func (w *World) SpawnRandom() *Entity {
	r := w.cfg.SpawnRadius
	canOrbit := len(w.entities) > 0
	focalIdx := 0
	if canOrbit {
		focalIdx = w.rng.Intn(len(w.entities))
	}

	e := w.Spawn()
	e.Position = vmath.Vec3{
		X: w.rng.Range(-r, r),
		Y: w.rng.Range(-r, r),
		Z: w.rng.Range(-r, r),
	}
	for i, n := 0, 1+w.rng.Intn(3); i < n; i++ {
		e.Colors = append(e.Colors, vmath.Color{
			R: w.rng.Float32(),
			G: w.rng.Float32(),
			B: w.rng.Float32(),
			A: 1,
		})
	}

	roll := w.rng.Float32()
	switch {
	case canOrbit && roll < 0.25:
		s := e.AddSatellite()
		s.Focal = RefTo(w.entities[focalIdx])
		s.Frequency = w.rng.Range(0.05, 0.5)
		axis := vmath.Vec3{X: w.rng.Range(-1, 1), Y: w.rng.Range(-1, 1), Z: w.rng.Range(-1, 1)}
		if axis.LenSq() == 0 {
			axis = vmath.Vec3{Y: 1}
		}
		a, b := axis.OrthoBasis()
		radius := w.rng.Range(2, r/4)
		s.BasisA = a.Scale(radius)
		s.BasisB = b.Scale(radius)
		s.prevPos = e.Position
	case roll < 0.6:
		m := e.AddMovement()
		m.Velocity = vmath.Vec3{
			X: w.rng.Range(-5, 5),
			Y: w.rng.Range(-5, 5),
			Z: w.rng.Range(-5, 5),
		}
	default:
		o := e.AddOscillation()
		o.Offset = vmath.Vec3{Y: w.rng.Range(0.5, 4)}
		o.Frequency = w.rng.Range(0.1, 1)
	}

	if w.rng.Float32() < 0.5 {
		ro := e.AddRotation()
		ro.AngularVelocity = vmath.Vec3{
			X: w.rng.Range(-90, 90),
			Y: w.rng.Range(-90, 90),
			Z: w.rng.Range(-90, 90),
		}
	}
	if w.rng.Float32() < 0.15 {
		e.Scale = 0.1
		g := e.AddGrowing()
		g.Rate = w.rng.Range(0.2, 1)
		g.Target = w.rng.Range(1, 3)
	} else if w.rng.Float32() < 0.1 {
		d := e.AddDying()
		d.Rate = w.rng.Range(0.01, 0.1)
	}
	return e
}

func (w *World) stateFrame() []byte {
	msg := protocol.StateMsg{
		Type:     protocol.TypeState,
		Tick:     w.tick.Load(),
		Entities: make([]protocol.EntityState, 0, len(w.entities)),
	}
	for i, e := range w.entities {
		tags := make([]string, 0, len(e.behaviors))
		for _, b := range e.behaviors {
			tags = append(tags, b.Tag().String())
		}
		msg.Entities = append(msg.Entities, protocol.EntityState{
			Index:     i,
			Identity:  e.identity,
			Pos:       [3]float32{e.Position.X, e.Position.Y, e.Position.Z},
			Scale:     e.Scale,
			Age:       e.Age,
			Behaviors: tags,
		})
	}
	return protocol.Encode(msg)
}

func (w *World) logf(format string, args ...any) {
	if w.log != nil {
		w.log.Printf(format, args...)
	}
}
