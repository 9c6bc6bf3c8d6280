// Package savefile implements the on-disk container for world saves: a
// zstd-compressed stream holding one JSON manifest line followed by the
// binary codec body. The manifest duplicates a few body facts (format
// version, tick, entity count) so tooling can inspect a save without
// decoding the body.
package savefile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"orbitfield/internal/persistence/codec"
)

type Manifest struct {
	Format   int32  `json:"format"`
	WorldID  string `json:"world_id"`
	Tick     uint64 `json:"tick"`
	Entities int    `json:"entities"`
	Digest   string `json:"digest,omitempty"`
	SavedAt  string `json:"saved_at,omitempty"`
}

// Write creates (or truncates) the save at path and streams the body through
// the supplied callback. Any codec error inside the body fails the write.
func Write(path string, m Manifest, body func(w *codec.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)

	if m.SavedAt == "" {
		m.SavedAt = time.Now().UTC().Format(time.RFC3339)
	}
	hb, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	cw := codec.NewWriter(bw)
	if err := body(cw); err != nil {
		return err
	}
	if err := cw.Err(); err != nil {
		return fmt.Errorf("savefile body: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

// Read opens the save at path, decodes the manifest line, and hands the body
// reader to the callback. The body's own version field, not the manifest, is
// authoritative for decoding.
func Read(path string, body func(m Manifest, r *codec.Reader) error) (Manifest, error) {
	var m Manifest

	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return m, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return m, fmt.Errorf("savefile manifest: %w", err)
	}
	if err := json.Unmarshal(line, &m); err != nil {
		return m, fmt.Errorf("savefile manifest: %w", err)
	}

	if body == nil {
		return m, nil
	}
	return m, body(m, codec.NewReader(br))
}

// ReadManifest inspects a save without touching the body.
func ReadManifest(path string) (Manifest, error) {
	return Read(path, nil)
}
