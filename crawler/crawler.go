// Package crawler implements the parallel recursive directory traversal
// described in spec §4.3 (component C): batched inserts, visited-inode
// cycle detection across followed symlinks, and a cooperative cancellation
// flag.
package crawler

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"flashfind/watcher"
)

// BatchSize bounds how many discovered paths accumulate before the crawler
// takes one write-lock acquisition and applies them (spec §4.3).
const BatchSize = 1000

// Inserter is the index-mutating surface the crawler drives. index.Pool
// satisfies it directly.
type Inserter interface {
	InsertBatch(paths []string) int
}

// Result summarises one Crawl call.
type Result struct {
	Inserted  int
	Cancelled bool
}

// Crawler walks a fixed set of root directories, applying the shared
// exclusion/temp-file filter and batching inserts into pool.
type Crawler struct {
	exclusions *watcher.ExclusionSet
	cancelled  atomic.Bool
}

// New builds a Crawler using exclusionPatterns for both directory-name and
// path-prefix exclusion (spec §4.4 step 1, shared with the watcher).
// hideHidden, when true, also skips every leading-dot path (spec §6
// show_hidden_files=false).
func New(exclusionPatterns []string, hideHidden bool) *Crawler {
	return &Crawler{exclusions: watcher.NewExclusionSet(exclusionPatterns, hideHidden)}
}

// Cancel requests that any in-progress or future Crawl call finish its
// current batch and return early with Result.Cancelled set.
func (c *Crawler) Cancel() {
	c.cancelled.Store(true)
}

// Reset clears a prior Cancel, allowing the Crawler to be reused.
func (c *Crawler) Reset() {
	c.cancelled.Store(false)
}

// Crawl walks every root in roots concurrently (one goroutine per root,
// mirroring the teacher's per-subtree concurrent size computation) and
// inserts discovered regular files into pool in batches of BatchSize.
func (c *Crawler) Crawl(ctx context.Context, roots []string, pool Inserter) Result {
	var (
		mu       sync.Mutex
		inserted int
		wg       sync.WaitGroup
	)

	for _, root := range roots {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			n := c.crawlRoot(ctx, root, pool)
			mu.Lock()
			inserted += n
			mu.Unlock()
		}(root)
	}
	wg.Wait()

	return Result{Inserted: inserted, Cancelled: c.cancelled.Load()}
}

// crawlRoot walks a single root, maintaining its own visited-inode set
// (symlink cycles are a per-root concern: two roots may legitimately share
// a symlink target) and its own batch buffer.
func (c *Crawler) crawlRoot(ctx context.Context, root string, pool Inserter) int {
	visited := make(map[uint64]struct{})
	batch := make([]string, 0, BatchSize)
	total := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		total += pool.InsertBatch(batch)
		batch = batch[:0]
	}

	var walk func(dir string)
	walk = func(dir string) {
		if c.cancelled.Load() || ctx.Err() != nil {
			return
		}
		if c.exclusions.Excluded(dir) {
			return
		}
		if info, err := os.Stat(dir); err == nil && !markVisited(visited, info) {
			return // cycle: this directory was already walked
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Printf("crawler: skipping %s: %v", dir, err)
			return
		}

		for _, entry := range entries {
			if c.cancelled.Load() || ctx.Err() != nil {
				return
			}

			full := filepath.Join(dir, entry.Name())
			info, err := os.Lstat(full)
			if err != nil {
				log.Printf("crawler: stat %s: %v", full, err)
				continue
			}

			if info.Mode()&os.ModeSymlink != 0 {
				target, err := filepath.EvalSymlinks(full)
				if err != nil {
					log.Printf("crawler: unresolved symlink %s: %v", full, err)
					continue
				}
				targetInfo, err := os.Stat(target)
				if err != nil {
					log.Printf("crawler: stat symlink target %s: %v", target, err)
					continue
				}
				if targetInfo.IsDir() {
					walk(target)
					continue
				}
				if !markVisited(visited, targetInfo) {
					continue // already visited this inode
				}
				if !c.exclusions.Excluded(full) && !watcher.IsTempFile(entry.Name()) {
					batch = append(batch, full)
					if len(batch) >= BatchSize {
						flush()
					}
				}
				continue
			}

			if entry.IsDir() {
				walk(full)
				continue
			}

			if c.exclusions.Excluded(full) || watcher.IsTempFile(entry.Name()) {
				continue
			}
			batch = append(batch, full)
			if len(batch) >= BatchSize {
				flush()
			}
		}
	}

	walk(root)
	flush()
	return total
}
