// Package persistence implements the versioned, atomic on-disk index format
// (spec component B, §4.2, §6) plus a best-effort diagnostic mutation
// journal (journal.go) that sits alongside it.
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"flashfind/index"
	"flashfind/models"
)

// magic is the fixed 4-byte file header (spec §6).
var magic = [4]byte{'F', 'F', 'I', 'X'}

// IndexVersion is the current on-disk format version. A mismatch causes
// Load to reject the file and the caller to start from an empty index.
const IndexVersion uint32 = 3

// fileName is the default on-disk index file name, stored directly under
// the application data / stats directory.
const fileName = "index.bin"

// Save writes pool's live entries and stats to <dir>/index.bin atomically:
// write to a temp file in the same directory, fsync, then rename over the
// previous good file. A failure at any step leaves the previous file
// untouched (spec §4.2 "Save path").
func Save(dir string, pool *index.Pool) error {
	entries, stats := pool.Snapshot()

	target := filepath.Join(dir, fileName)
	tmp, err := os.CreateTemp(dir, ".flashfind-index-*.tmp")
	if err != nil {
		return fmt.Errorf("persistence: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeIndex(tmp, entries, stats); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persistence: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persistence: fsync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persistence: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persistence: rename %s to %s: %w", tmpName, target, err)
	}
	return nil
}

func writeIndex(w io.Writer, entries []models.PathEntry, stats models.Stats) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, IndexVersion); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		b := []byte(e.Path)
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(b))); err != nil {
			return err
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint64(stats.Insertions)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(stats.DuplicatesSkipped)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(stats.SearchesPerformed)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, stats.LastCompactionAt.UnixMilli()); err != nil {
		return err
	}

	return bw.Flush()
}

// Load reads <dir>/index.bin into pool. On any I/O, deserialisation, or
// version error it logs the reason and leaves pool untouched — the caller
// proceeds with whatever pool already holds (normally a freshly constructed
// empty one), matching spec §4.2's "Load path": "returns NewIndex; the
// caller proceeds with an empty index."
func Load(dir string, pool *index.Pool) {
	path := filepath.Join(dir, fileName)
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("persist: could not open %s: %v", path, err)
		}
		return
	}
	defer f.Close()

	entries, stats, err := readIndex(f)
	if err != nil {
		log.Printf("persist: %s: %v — starting from an empty index", path, err)
		return
	}

	pool.LoadSnapshot(entries, stats)
	log.Printf("persist: loaded %d paths from %s", len(entries), path)
}

func readIndex(r io.Reader) ([]models.PathEntry, models.Stats, error) {
	br := bufio.NewReader(r)

	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return nil, models.Stats{}, fmt.Errorf("%w: reading magic: %v", index.ErrCorruption, err)
	}
	if gotMagic != magic {
		return nil, models.Stats{}, fmt.Errorf("%w: bad magic %q", index.ErrCorruption, gotMagic)
	}

	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, models.Stats{}, fmt.Errorf("%w: reading version: %v", index.ErrCorruption, err)
	}
	if version != IndexVersion {
		return nil, models.Stats{}, fmt.Errorf("%w: file version %d, want %d", index.ErrVersionMismatch, version, IndexVersion)
	}

	var poolLen uint64
	if err := binary.Read(br, binary.LittleEndian, &poolLen); err != nil {
		return nil, models.Stats{}, fmt.Errorf("%w: reading pool length: %v", index.ErrCorruption, err)
	}

	// Guard against a corrupt length field causing an enormous allocation.
	const maxSaneLen = 50_000_000
	if poolLen > maxSaneLen {
		return nil, models.Stats{}, fmt.Errorf("%w: implausible pool length %d", index.ErrCorruption, poolLen)
	}

	entries := make([]models.PathEntry, 0, poolLen)
	for i := uint64(0); i < poolLen; i++ {
		var strLen uint32
		if err := binary.Read(br, binary.LittleEndian, &strLen); err != nil {
			return nil, models.Stats{}, fmt.Errorf("%w: reading entry %d length: %v", index.ErrCorruption, i, err)
		}
		buf := make([]byte, strLen)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, models.Stats{}, fmt.Errorf("%w: reading entry %d bytes: %v", index.ErrCorruption, i, err)
		}
		entries = append(entries, models.PathEntry{Path: string(buf)})
	}

	var stats models.Stats
	var insertions, dupes, searches uint64
	var lastCompactMs int64
	if err := binary.Read(br, binary.LittleEndian, &insertions); err != nil {
		return nil, models.Stats{}, fmt.Errorf("%w: reading stats.insertions: %v", index.ErrCorruption, err)
	}
	if err := binary.Read(br, binary.LittleEndian, &dupes); err != nil {
		return nil, models.Stats{}, fmt.Errorf("%w: reading stats.duplicates_skipped: %v", index.ErrCorruption, err)
	}
	if err := binary.Read(br, binary.LittleEndian, &searches); err != nil {
		return nil, models.Stats{}, fmt.Errorf("%w: reading stats.searches_performed: %v", index.ErrCorruption, err)
	}
	if err := binary.Read(br, binary.LittleEndian, &lastCompactMs); err != nil {
		return nil, models.Stats{}, fmt.Errorf("%w: reading stats.last_compaction: %v", index.ErrCorruption, err)
	}

	stats.Insertions = int64(insertions)
	stats.DuplicatesSkipped = int64(dupes)
	stats.SearchesPerformed = int64(searches)
	if lastCompactMs != 0 {
		stats.LastCompactionAt = unixMilliToTime(lastCompactMs)
	}

	return entries, stats, nil
}
