// Package index implements the string pool and the two inverted maps that
// back FlashFind's in-memory search index (spec component A).
package index

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"flashfind/models"
)

// MaxIndexSize is the default ceiling on the number of entries the pool may
// hold (including tombstones). Config.max_index_size may override this.
const MaxIndexSize = 10_000_000

// Pool owns the string pool and both inverted maps under a single
// reader-writer lock, per spec §3 "Ownership". It is safe for concurrent use.
type Pool struct {
	mu sync.RWMutex

	entries []models.PathEntry       // append-only; index is the PathID
	live    map[string]models.PathID // normalised path -> current id
	byName  map[string][]models.PathID
	byExt   map[string][]models.PathID

	maxSize int
	stats   models.Stats
}

// New returns an empty Pool. maxSize of 0 uses MaxIndexSize.
func New(maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = MaxIndexSize
	}
	return &Pool{
		live:    make(map[string]models.PathID),
		byName:  make(map[string][]models.PathID),
		byExt:   make(map[string][]models.PathID),
		maxSize: maxSize,
	}
}

// normalize canonicalises a path for use as a pool/map key. Callers that
// already hold an OS-canonical absolute path (e.g. from filepath.Abs or
// filepath.EvalSymlinks) may pass it through unchanged; normalize only
// cleans separators and trailing slashes so the same file is never keyed
// two different ways.
func normalize(path string) string {
	return filepath.Clean(path)
}

// Insert adds path to the pool. If the path is already live it returns the
// existing id and ErrDuplicate (spec §4.1: "Duplicate inserts bump
// duplicates_skipped and return the existing id" — this is not treated as a
// failure by callers, just a cheap idempotency signal).
func (p *Pool) Insert(path string) (models.PathID, error) {
	norm := normalize(path)

	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.live[norm]; ok {
		p.stats.DuplicatesSkipped++
		return id, ErrDuplicate
	}

	if len(p.entries) >= p.maxSize {
		return 0, ErrIndexFull
	}

	id := models.PathID(len(p.entries))
	p.entries = append(p.entries, models.PathEntry{Path: norm})
	p.live[norm] = id

	base := strings.ToLower(filepath.Base(norm))
	p.byName[base] = append(p.byName[base], id)
	for _, ext := range dotSuffixes(base) {
		p.byExt[ext] = append(p.byExt[ext], id)
	}

	p.stats.Insertions++
	p.stats.FileCount++
	return id, nil
}

// dotSuffixes returns every suffix of base after each '.', lowercased, so
// that "report.tar.gz" yields ["tar.gz", "gz"]. A basename with no dot
// contributes no extension tokens; a leading-dot basename like ".gitignore"
// still yields "gitignore", per spec §4.1's rule of splitting on every dot.
func dotSuffixes(base string) []string {
	var out []string
	for i := 0; i < len(base); i++ {
		if base[i] == '.' && i+1 < len(base) {
			out = append(out, base[i+1:])
		}
	}
	return out
}

// Remove logically deletes path: it is dropped from the live set but its
// pool slot and map entries are left untouched (tombstone strategy, spec
// §9). Returns ErrNotPresent if path is not currently live.
func (p *Pool) Remove(path string) error {
	norm := normalize(path)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.live[norm]; !ok {
		return ErrNotPresent
	}
	delete(p.live, norm)
	p.stats.FileCount--
	return nil
}

// Rename is Remove(oldPath) followed by Insert(newPath) under a single lock
// acquisition, so a concurrent reader never observes both or neither (spec
// §4.4 step 5, §8 property 5). Like Remove, the oldPath half is a no-op if
// oldPath was never live — the watcher's temp-file-then-rename-into-place
// pattern renames a path that was never inserted.
func (p *Pool) Rename(oldPath, newPath string) (models.PathID, error) {
	oldNorm := normalize(oldPath)
	newNorm := normalize(newPath)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.live[oldNorm]; ok {
		delete(p.live, oldNorm)
		p.stats.FileCount--
	}

	if id, ok := p.live[newNorm]; ok {
		p.stats.DuplicatesSkipped++
		return id, ErrDuplicate
	}
	if len(p.entries) >= p.maxSize {
		return 0, ErrIndexFull
	}

	id := models.PathID(len(p.entries))
	p.entries = append(p.entries, models.PathEntry{Path: newNorm})
	p.live[newNorm] = id

	base := strings.ToLower(filepath.Base(newNorm))
	p.byName[base] = append(p.byName[base], id)
	for _, ext := range dotSuffixes(base) {
		p.byExt[ext] = append(p.byExt[ext], id)
	}

	p.stats.Insertions++
	p.stats.FileCount++
	return id, nil
}

// InsertBatch applies every path in paths under a single write-lock
// acquisition (spec §4.3: "the crawler accumulates up to BATCH_SIZE paths,
// then takes one write lock and applies them, then releases"). Duplicates
// within the batch, or against the existing live set, are counted and
// skipped exactly as a standalone Insert would; InsertBatch itself never
// fails the whole batch over one bad path. It returns the number of paths
// actually inserted.
func (p *Pool) InsertBatch(paths []string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	inserted := 0
	for _, path := range paths {
		norm := normalize(path)
		if _, ok := p.live[norm]; ok {
			p.stats.DuplicatesSkipped++
			continue
		}
		if len(p.entries) >= p.maxSize {
			break
		}

		id := models.PathID(len(p.entries))
		p.entries = append(p.entries, models.PathEntry{Path: norm})
		p.live[norm] = id

		base := strings.ToLower(filepath.Base(norm))
		p.byName[base] = append(p.byName[base], id)
		for _, ext := range dotSuffixes(base) {
			p.byExt[ext] = append(p.byExt[ext], id)
		}

		p.stats.Insertions++
		p.stats.FileCount++
		inserted++
	}
	return inserted
}

// Compact rebuilds the pool and both maps from exactly the current live set,
// reassigning ids, and returns the number of tombstones reclaimed (spec
// invariant 3, property 4).
func (p *Pool) Compact() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	newEntries := make([]models.PathEntry, 0, len(p.live))
	newLive := make(map[string]models.PathID, len(p.live))
	newByName := make(map[string][]models.PathID, len(p.byName))
	newByExt := make(map[string][]models.PathID, len(p.byExt))

	for id, e := range p.entries {
		// An entry survives only if its path is still live AND the live
		// map's current id for that path is this exact id — a path that
		// was removed and later re-inserted gets a fresh id, and the old
		// tombstone sharing the same path string must not be resurrected.
		if liveID, ok := p.live[e.Path]; !ok || liveID != models.PathID(id) {
			continue
		}

		newID := models.PathID(len(newEntries))
		newEntries = append(newEntries, e)
		newLive[e.Path] = newID

		base := strings.ToLower(filepath.Base(e.Path))
		newByName[base] = append(newByName[base], newID)
		for _, ext := range dotSuffixes(base) {
			newByExt[ext] = append(newByExt[ext], newID)
		}
	}

	dropped := len(p.entries) - len(newEntries)

	p.entries = newEntries
	p.live = newLive
	p.byName = newByName
	p.byExt = newByExt
	p.stats.LastCompactionAt = time.Now()

	return dropped
}

// Stats returns a point-in-time copy of the running counters.
func (p *Pool) Stats() models.Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// RecordSearch bumps SearchesPerformed. Called by the query engine after a
// search completes (spec §4.5 step 7); kept as a brief, separate write-lock
// acquisition so the read-mostly search path itself never blocks a writer
// for longer than the counter update.
func (p *Pool) RecordSearch() {
	p.mu.Lock()
	p.stats.SearchesPerformed++
	p.mu.Unlock()
}

// Len returns the current pool size, tombstones included.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// LiveCount returns the current live-set size.
func (p *Pool) LiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.live)
}

// View exposes read-only access to the pool's internal maps to fn while
// holding the read lock for fn's entire duration. This lets a consumer (the
// query engine) fan work out across goroutines that read the same snapshot
// without copying the maps, matching spec §4.5's "take a read lock snapshot,
// then scan in parallel chunks" execution model.
func (p *Pool) View(fn func(v *View)) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.byName))
	for k := range p.byName {
		keys = append(keys, k)
	}

	fn(&View{
		filenameKeys: keys,
		byName:       p.byName,
		byExt:        p.byExt,
		live:         p.live,
		entries:      p.entries,
	})
}

// View is a read-only snapshot handle into a Pool, valid only for the
// duration of the View callback that produced it.
type View struct {
	filenameKeys []string
	byName       map[string][]models.PathID
	byExt        map[string][]models.PathID
	live         map[string]models.PathID
	entries      []models.PathEntry
}

// FilenameKeys returns every distinct lowercased basename currently in
// FilenameMap, in no particular order.
func (v *View) FilenameKeys() []string { return v.filenameKeys }

// LookupFilename returns the (possibly tombstoned) ids registered under a
// lowercased basename.
func (v *View) LookupFilename(key string) []models.PathID { return v.byName[key] }

// LookupExtension returns the (possibly tombstoned) ids registered under a
// lowercased extension token.
func (v *View) LookupExtension(ext string) []models.PathID { return v.byExt[ext] }

// IsLive reports whether id's path is currently in the live set — this is
// what makes a tombstone invisible to search without touching the maps
// (spec §4.5 step 4).
func (v *View) IsLive(id models.PathID) bool {
	if int(id) >= len(v.entries) {
		return false
	}
	liveID, ok := v.live[v.entries[id].Path]
	return ok && liveID == id
}

// Entry returns the PathEntry for id. Safe to call for a tombstoned id; the
// caller is expected to have already checked IsLive if liveness matters.
func (v *View) Entry(id models.PathID) models.PathEntry { return v.entries[id] }

// AllLivePaths returns every path currently in the live set, snapshotted
// under a read lock. Used by persistence's round-trip tests and by Compact
// callers that want the equivalence check of spec §8 property 4.
func (p *Pool) AllLivePaths() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.live))
	for path := range p.live {
		out = append(out, path)
	}
	return out
}

// LoadSnapshot replaces the pool's contents wholesale with entries that are
// all assumed live (used by persistence.Load, which rebuilds LiveSet and
// both maps from the on-disk pool exactly as spec §4.2 describes). stats is
// adopted as-is.
func (p *Pool) LoadSnapshot(entries []models.PathEntry, stats models.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = entries
	p.live = make(map[string]models.PathID, len(entries))
	p.byName = make(map[string][]models.PathID, len(entries))
	p.byExt = make(map[string][]models.PathID, len(entries))

	for i, e := range entries {
		id := models.PathID(i)
		p.live[e.Path] = id
		base := strings.ToLower(filepath.Base(e.Path))
		p.byName[base] = append(p.byName[base], id)
		for _, ext := range dotSuffixes(base) {
			p.byExt[ext] = append(p.byExt[ext], id)
		}
	}

	p.stats = stats
	p.stats.FileCount = int64(len(entries))
}

// Snapshot returns every pool entry whose path is currently live, in pool
// order, for use by persistence.Save (spec §4.2: "an in-memory
// compaction-equivalent"). It does not mutate the pool — unlike Compact, ids
// are not reassigned in memory, only in the snapshot returned here.
func (p *Pool) Snapshot() ([]models.PathEntry, models.Stats) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.PathEntry, 0, len(p.live))
	for id, e := range p.entries {
		if liveID, ok := p.live[e.Path]; ok && liveID == models.PathID(id) {
			out = append(out, e)
		}
	}
	return out, p.stats
}
