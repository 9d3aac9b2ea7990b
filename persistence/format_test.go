package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"flashfind/index"
)

// TestRoundTrip covers spec §8 property 1: save → load preserves the live
// set and Stats.Insertions.
func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	p := index.New(0)
	var want []string
	for i := 0; i < 50; i++ {
		path := fmt.Sprintf("/tmp/ff/file%d.txt", i)
		if _, err := p.Insert(path); err != nil {
			t.Fatalf("insert: %v", err)
		}
		want = append(want, path)
	}

	if err := Save(dir, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := index.New(0)
	Load(dir, loaded)

	got := loaded.AllLivePaths()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("loaded %d paths, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("path %d: got %q, want %q", i, got[i], want[i])
		}
	}

	if loaded.Stats().Insertions != p.Stats().Insertions {
		t.Fatalf("Insertions not preserved: got %d, want %d", loaded.Stats().Insertions, p.Stats().Insertions)
	}
}

func TestSaveSkipsTombstones(t *testing.T) {
	dir := t.TempDir()

	p := index.New(0)
	p.Insert("/tmp/ff/keep.txt")
	p.Insert("/tmp/ff/drop.txt")
	p.Remove("/tmp/ff/drop.txt")

	if err := Save(dir, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := index.New(0)
	Load(dir, loaded)

	if loaded.Len() != 1 {
		t.Fatalf("loaded pool has %d entries, want 1 (tombstone should not be persisted)", loaded.Len())
	}
}

func TestLoadMissingFileYieldsEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	p := index.New(0)
	Load(dir, p) // no index.bin present
	if p.Len() != 0 {
		t.Fatalf("expected empty pool, got %d entries", p.Len())
	}
}

// TestVersionMismatch covers spec §8 scenario S7: a version mismatch yields
// an empty index without panicking.
func TestVersionMismatch(t *testing.T) {
	dir := t.TempDir()

	p := index.New(0)
	p.Insert("/tmp/ff/a.txt")
	if err := Save(dir, p); err != nil {
		t.Fatal(err)
	}

	// Corrupt the version field in place.
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[4] = 0xFF // version is bytes [4:8]
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded := index.New(0)
	Load(dir, loaded) // must not panic
	if loaded.Len() != 0 {
		t.Fatalf("expected empty index after version mismatch, got %d entries", loaded.Len())
	}
}

func TestReadIndexCorruptMagic(t *testing.T) {
	_, _, err := readIndex(bytes.NewReader([]byte("BAD!")))
	if !errors.Is(err, index.ErrCorruption) {
		t.Fatalf("want ErrCorruption, got %v", err)
	}
}
