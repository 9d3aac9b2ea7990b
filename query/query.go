// Package query implements the read-only, parallel query layer described in
// spec §4.5 (component E): grammar parsing, substring/extension matching,
// optional category filtering, and result capping.
package query

import (
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"flashfind/index"
	"flashfind/models"
)

// DefaultLimit is the UI-facing default result cap (spec §4.5 step 6).
const DefaultLimit = 10_000

// Request describes a single search. Query follows the grammar:
//
//	"*.<ext>" or "*.<ext1>.<ext2>" -> extension query (leading "*." stripped, lowercased)
//	any other token                -> case-insensitive substring match against FilenameMap keys
//
// Category optionally narrows results to one of the named categories
// (see categories.go); empty means no category filter. Limit <= 0 means
// unbounded — callers wanting the UI default pass query.DefaultLimit
// explicitly.
type Request struct {
	Query    string
	Category string
	Limit    int
}

// Execute runs req against pool and returns matching, live PathEntry values.
// Order is unspecified but stable for a given pool state and request (spec
// §4.5 step 6). It never returns an error: an empty query matches every live
// entry, and a query that matches nothing yields an empty result (spec §4.5
// "Failure modes").
func Execute(pool *index.Pool, req Request) []models.PathEntry {
	isExt, ext, term := parse(req.Query)

	var catExts map[string]struct{}
	hasCategory := false
	if req.Category != "" {
		if exts, ok := CategoryExtensions(req.Category); ok {
			catExts, hasCategory = exts, true
		}
	}

	var results []models.PathEntry
	pool.View(func(v *index.View) {
		var ids []models.PathID
		if isExt {
			ids = v.LookupExtension(ext)
		} else {
			ids = substringMatch(v, term)
		}

		for _, id := range ids {
			if !v.IsLive(id) {
				continue
			}
			entry := v.Entry(id)
			if hasCategory {
				base := strings.ToLower(filepath.Base(entry.Path))
				if !matchesCategory(base, catExts) {
					continue
				}
			}
			results = append(results, entry)
			if req.Limit > 0 && len(results) >= req.Limit {
				return
			}
		}
	})

	pool.RecordSearch()
	return results
}

// parse splits a raw query string into either an extension lookup key or a
// lowercased substring term.
func parse(raw string) (isExt bool, ext string, term string) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(trimmed, "*.") {
		return true, strings.TrimPrefix(trimmed, "*."), ""
	}
	return false, "", trimmed
}

// substringMatch scans v's FilenameMap keys in parallel chunks, each worker
// appending matches to its own local slice (mirroring the
// goroutine-per-chunk / own-slot idiom FlashFind's crawler teacher uses for
// concurrent directory-size computation), then merges the per-worker
// buffers. An empty term matches every key — this is what lets
// spec §8 property 1's "search('') over live set equals P" hold.
func substringMatch(v *index.View, term string) []models.PathID {
	keys := v.FilenameKeys()
	if len(keys) == 0 {
		return nil
	}
	// FilenameKeys comes from map iteration; sorting keeps the merged order
	// the same from one call to the next for an unchanged pool.
	sort.Strings(keys)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(keys) {
		workers = len(keys)
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (len(keys) + workers - 1) / workers

	buffers := make([][]models.PathID, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= len(keys) {
			break
		}
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			var local []models.PathID
			for _, k := range keys[start:end] {
				if term == "" || strings.Contains(k, term) {
					local = append(local, v.LookupFilename(k)...)
				}
			}
			buffers[w] = local
		}(w, start, end)
	}
	wg.Wait()

	var merged []models.PathID
	for _, b := range buffers {
		merged = append(merged, b...)
	}
	return merged
}
