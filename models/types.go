// Package models defines the data structures shared across the indexing and
// search engine.
package models

import "time"

// PathID is a compact handle into the string pool. Stable for the lifetime
// of a file entry; reused only after compaction reassigns ids.
type PathID uint32

// PathEntry is the canonical absolute path of a filesystem object. Only
// files are indexed as entries; directories are traversed but never
// inserted.
type PathEntry struct {
	Path string
}

// Stats holds the running counters exposed by the index and persisted
// alongside the pool.
type Stats struct {
	FileCount         int64
	Insertions        int64
	DuplicatesSkipped int64
	SearchesPerformed int64
	LastCompactionAt  time.Time
}
