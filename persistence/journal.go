package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Journal is a best-effort, append-only diagnostic log of applied
// mutations, kept entirely separate from the mandated index.bin format
// (see SPEC_FULL.md "Domain Stack" and DESIGN.md "persistence"). It is
// never read back to reconstruct index state — index.bin alone is
// authoritative on load — so any failure here is logged and otherwise
// ignored; a missing or corrupt journal never blocks startup or a save.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (creating if necessary) the mutation journal at
// <dir>/journal.db. A nil *Journal with a non-nil error is returned when dir
// cannot be created, the database cannot be opened, or the schema cannot be
// applied; callers should treat any error here as
// non-fatal and continue without a journal (NewJournalOrNil does this for
// them).
func OpenJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persistence: journal dir: %w", err)
	}
	path := filepath.Join(dir, "journal.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open journal: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS mutations (
	id          TEXT PRIMARY KEY,
	batch_id    TEXT NOT NULL,
	op          TEXT NOT NULL,
	path        TEXT NOT NULL,
	new_path    TEXT,
	applied_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS mutations_batch ON mutations(batch_id);
`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// NewJournalOrNil opens a journal at dir, logging and returning nil on any
// failure instead of propagating the error — the journal is diagnostic
// infrastructure, never load-bearing for correctness.
func NewJournalOrNil(dir string) *Journal {
	j, err := OpenJournal(dir)
	if err != nil {
		log.Printf("persist: journal unavailable, continuing without it: %v", err)
		return nil
	}
	return j
}

// Op identifies the kind of mutation recorded in a journal row.
type Op string

const (
	OpInsert  Op = "insert"
	OpRemove  Op = "remove"
	OpRename  Op = "rename"
	OpCompact Op = "compact"
)

// Record appends one mutation row tagged with batchID (engine gives each
// single Insert/Remove/Rename/Compact command its own google/uuid id).
// Crawl batches applied through InsertBatch are not recorded. newPath is
// only meaningful for OpRename. Failures are logged and swallowed.
func (j *Journal) Record(batchID string, op Op, path, newPath string) {
	if j == nil {
		return
	}
	id := uuid.NewString()
	_, err := j.db.Exec(
		`INSERT INTO mutations (id, batch_id, op, path, new_path, applied_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, batchID, string(op), path, newPath, time.Now().UnixMilli(),
	)
	if err != nil {
		log.Printf("persist: journal write failed (op=%s path=%s): %v", op, path, err)
	}
}

// RecentBatches returns the batch ids for the most recent n batches
// recorded, most recent first — used only for diagnostics (e.g. a future
// admin command correlating a crash with the last crawl/watcher batch
// applied before it).
func (j *Journal) RecentBatches(n int) ([]string, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.Query(
		`SELECT batch_id FROM mutations GROUP BY batch_id ORDER BY MAX(rowid) DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle. Safe to call on a nil
// Journal.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
