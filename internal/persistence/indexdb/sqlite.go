// Package indexdb keeps a SQLite side-index of a running world: per-tick
// state digests and the save files written, so operators can line a save up
// against the tick history without opening the saves themselves. The index
// is advisory; the save files remain the source of truth.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSave
)

type req struct {
	kind reqKind

	tick tickRow
	save SaveRow
}

type tickRow struct {
	Tick     uint64
	Digest   string
	Entities int
}

type SaveRow struct {
	Slot     string
	Path     string
	Tick     uint64
	Entities int
	Digest   string
	SavedAt  string
}

func Open(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			entities INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			entities INTEGER NOT NULL,
			digest TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (slot, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordTick indexes one tick's digest. Non-blocking: under backpressure the
// entry is dropped rather than stalling the sim.
func (s *SQLiteIndex) RecordTick(tick uint64, digest string, entities int) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTick, tick: tickRow{Tick: tick, Digest: digest, Entities: entities}}:
	default:
	}
}

// RecordSave indexes a written save file.
func (s *SQLiteIndex) RecordSave(slot, path string, tick uint64, entities int, digest string) {
	if s.closed.Load() {
		return
	}
	row := SaveRow{
		Slot:     slot,
		Path:     path,
		Tick:     tick,
		Entities: entities,
		Digest:   digest,
		SavedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	select {
	case s.ch <- req{kind: reqSave, save: row}:
	default:
	}
}

// LatestSave returns the most recently recorded save row, or ok=false when
// the index holds none. Safe to call from any goroutine.
func (s *SQLiteIndex) LatestSave() (SaveRow, bool, error) {
	var row SaveRow
	err := s.db.QueryRow(
		`SELECT slot, tick, path, entities, digest, saved_at
		 FROM saves ORDER BY saved_at DESC, tick DESC LIMIT 1`,
	).Scan(&row.Slot, &row.Tick, &row.Path, &row.Entities, &row.Digest, &row.SavedAt)
	if err == sql.ErrNoRows {
		return row, false, nil
	}
	if err != nil {
		return row, false, err
	}
	return row, true, nil
}

func (s *SQLiteIndex) loop() {
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,entities) VALUES(?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(slot,tick,path,entities,digest,saved_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertSave != nil {
			_ = insertSave.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		tx, _ = s.db.Begin()
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		lastCommit = time.Now()
	}

	flushTimer := time.NewTicker(time.Second)
	defer flushTimer.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil {
				// Begin failed (closed or errored DB). The index is
				// advisory; drop the entry rather than crash the writer.
				continue
			}
			switch r.kind {
			case reqTick:
				if insertTick != nil {
					_, _ = tx.Stmt(insertTick).Exec(r.tick.Tick, r.tick.Digest, r.tick.Entities)
				}
			case reqSave:
				if insertSave != nil {
					_, _ = tx.Stmt(insertSave).Exec(r.save.Slot, r.save.Tick, r.save.Path, r.save.Entities, r.save.Digest, r.save.SavedAt)
				}
			}
			opCount++
			if opCount >= commitEvery {
				commit()
			}
		case <-flushTimer.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}
