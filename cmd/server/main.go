package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"orbitfield/internal/persistence/indexdb"
	"orbitfield/internal/sim/tuning"
	"orbitfield/internal/sim/world"
	"orbitfield/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB  = flag.Bool("disable_db", false, "disable the SQLite tick/save index")

		savePath   = flag.String("save", "", "path to a save file to load at startup (optional)")
		loadLatest = flag.Bool("load_latest_save", true, "load the latest indexed save if present (when -save is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
		logger.Printf("no tuning file at %s, using defaults", *tuningPath)
	}

	worldDir := filepath.Join(*dataDir, "worlds", tune.WorldID)
	saveDir := filepath.Join(worldDir, "saves")
	_ = os.MkdirAll(saveDir, 0o755)

	var index *indexdb.SQLiteIndex
	if !*disableDB {
		index, err = indexdb.Open(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer index.Close()
	}

	w := world.New(world.Config{
		ID:               tune.WorldID,
		TickRateHz:       tune.TickRateHz,
		Seed:             tune.Seed,
		SpawnRadius:      tune.SpawnRadius,
		InitialEntities:  tune.InitialEntities,
		SaveEveryTicks:   tune.SaveEveryTicks,
		DigestEveryTicks: tune.DigestEveryTicks,
		SaveDir:          saveDir,
	}, logger)
	if index != nil {
		w.SetIndex(index)
	}

	startPath := strings.TrimSpace(*savePath)
	if startPath == "" && *loadLatest && index != nil {
		if row, ok, err := index.LatestSave(); err != nil {
			logger.Printf("latest save lookup: %v", err)
		} else if ok {
			startPath = row.Path
		}
	}
	if startPath != "" {
		if err := w.Load(startPath); err != nil {
			logger.Fatalf("load save: %v", err)
		}
		logger.Printf("resumed %s at tick %d with %d entities", tune.WorldID, w.CurrentTick(), w.EntityCount())
	} else {
		logger.Printf("fresh world %s: seed=%d entities=%d", tune.WorldID, tune.Seed, w.EntityCount())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	wsServer := ws.NewServer(w, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	httpServer := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	err = w.Run(ctx)
	if err != nil && err != context.Canceled {
		logger.Printf("world loop: %v", err)
	}

	// Final save so a restart resumes where the loop stopped.
	if err := w.SaveSlot("shutdown", w.SlotPath("shutdown")); err != nil {
		logger.Printf("shutdown save: %v", err)
	}
	_ = httpServer.Shutdown(context.Background())
	logger.Printf("stopped at tick %d", w.CurrentTick())
}
