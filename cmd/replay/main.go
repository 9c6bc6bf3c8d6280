package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"orbitfield/internal/persistence/savefile"
	"orbitfield/internal/sim/world"
)

// replay inspects a save file and optionally ticks it forward. Because the
// sim is a fixed-step deterministic system, two runs of the same save
// produce identical digests; -verify exploits that to check a later save
// against an earlier one.
func main() {
	var (
		savePath   = flag.String("save", "", "path to .sav.zst")
		ticks      = flag.Uint64("ticks", 0, "number of ticks to simulate forward")
		digestEach = flag.Uint64("digest_every", 0, "print a state digest every N ticks (0: only at the end)")
		verifyPath = flag.String("verify", "", "later save to verify against (its tick must be reachable from -save)")
		tickRate   = flag.Int("tick_rate", 20, "tick rate of the original run; the step size must match for digests to line up")
	)
	flag.Parse()

	if *savePath == "" {
		fmt.Fprintln(os.Stderr, "missing -save")
		os.Exit(2)
	}

	m, err := savefile.ReadManifest(*savePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read save:", err)
		os.Exit(1)
	}
	fmt.Printf("save format=%d world=%s tick=%d entities=%d digest=%s\n",
		m.Format, m.WorldID, m.Tick, m.Entities, m.Digest)

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)
	w := world.New(world.Config{ID: m.WorldID, TickRateHz: *tickRate}, logger)
	if err := w.Load(*savePath); err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}

	target := w.CurrentTick() + *ticks
	var verify savefile.Manifest
	if *verifyPath != "" {
		verify, err = savefile.ReadManifest(*verifyPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read verify save:", err)
			os.Exit(1)
		}
		if verify.Tick < w.CurrentTick() {
			fmt.Fprintf(os.Stderr, "verify tick %d is before save tick %d\n", verify.Tick, w.CurrentTick())
			os.Exit(1)
		}
		if verify.Tick > target {
			target = verify.Tick
		}
	}

	dt := w.TickDelta()
	for w.CurrentTick() < target {
		w.Step(dt)
		if *digestEach > 0 && w.CurrentTick()%*digestEach == 0 {
			fmt.Printf("tick %d digest=%s entities=%d\n", w.CurrentTick(), w.StateDigest(), w.EntityCount())
		}
		if *verifyPath != "" && w.CurrentTick() == verify.Tick {
			got := w.StateDigest()
			if got == verify.Digest {
				fmt.Printf("verify OK at tick %d\n", verify.Tick)
			} else {
				fmt.Printf("verify MISMATCH at tick %d:\n  recorded %s\n  replayed %s\n", verify.Tick, verify.Digest, got)
				os.Exit(1)
			}
		}
	}
	fmt.Printf("final tick %d digest=%s entities=%d\n", w.CurrentTick(), w.StateDigest(), w.EntityCount())
}
