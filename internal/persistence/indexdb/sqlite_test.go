package indexdb

import (
	"path/filepath"
	"testing"
)

func TestRecordSaveAndLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	idx.RecordSave("autosave", "/tmp/a.sav.zst", 100, 8, "aaaa")
	idx.RecordSave("manual", "/tmp/b.sav.zst", 250, 9, "bbbb")
	idx.RecordTick(100, "aaaa", 8)

	// Close drains the writer goroutine, so the rows are durable after it.
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	row, ok, err := idx2.LatestSave()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !ok {
		t.Fatal("no save rows after reopen")
	}
	if row.Slot != "manual" || row.Tick != 250 || row.Path != "/tmp/b.sav.zst" || row.Digest != "bbbb" {
		t.Fatalf("wrong latest row: %+v", row)
	}
}

func TestLatestSaveEmpty(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	_, ok, err := idx.LatestSave()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if ok {
		t.Fatal("latest reported a row in an empty index")
	}
}

func TestRecordAfterCloseIsNoop(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Must not panic on the closed channel.
	idx.RecordTick(1, "cccc", 1)
	idx.RecordSave("slot", "p", 1, 1, "cccc")
	if err := idx.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}

func TestWriterSurvivesFailedBegin(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Kill the connection out from under the writer so Begin fails inside
	// the loop. The entries must be dropped, not panic the goroutine.
	if err := idx.db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}
	idx.RecordTick(1, "dddd", 1)
	idx.RecordSave("slot", "p", 1, 1, "dddd")

	// Close drains the queue through the loop before returning, so it only
	// comes back if the writer processed both entries without crashing.
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("empty path accepted")
	}
}
