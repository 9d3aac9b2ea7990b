// Package engine implements the Engine Facade described in spec §4.6
// (component F): the single owner of the indexed state, driven by a
// bounded command channel and a single worker goroutine that serialises
// every write. Readers (the query package) never go through the facade —
// they take index.Pool's read lock directly via Pool.View.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"flashfind/config"
	"flashfind/crawler"
	"flashfind/index"
	"flashfind/persistence"
	"flashfind/watcher"
)

type commandKind int

const (
	cmdInsert commandKind = iota
	cmdInsertBatch
	cmdRemove
	cmdRename
	cmdCompact
	cmdPersist
	cmdShutdown
)

// commandQueueSize bounds the command channel; producers (Crawler, Watcher)
// block once it fills, capping memory under an event storm (spec §5
// "Backpressure").
const commandQueueSize = 4096

type command struct {
	kind          commandKind
	path, newPath string
	paths         []string
	batchID       string
	err           error
	n             int
	done          chan struct{}
}

// Facade owns the Pool and drives every write through a single worker
// goroutine, per spec §4.6.
type Facade struct {
	pool    *index.Pool
	journal *persistence.Journal
	cfg     *config.Config

	cmds chan command

	cancelled atomic.Bool

	watcher *watcher.Watcher
	crawler *crawler.Crawler

	wg       sync.WaitGroup
	crawlWG  sync.WaitGroup
	stopOnce sync.Once
	stopAuto chan struct{}
}

// New builds a Facade from a resolved Config. It does not load the index,
// start the watcher, or start crawling — call Start for that.
func New(cfg *config.Config) *Facade {
	return &Facade{
		pool:     index.New(cfg.MaxIndexSize),
		journal:  persistence.NewJournalOrNil(cfg.DataDir),
		cfg:      cfg,
		cmds:     make(chan command, commandQueueSize),
		crawler:  crawler.New(append(watcher.DefaultExclusions(), cfg.CustomExclusions...), !cfg.ShowHiddenFiles),
		stopAuto: make(chan struct{}),
	}
}

// Pool exposes the underlying index for the query layer (spec §4.5:
// readers bypass the command channel entirely).
func (f *Facade) Pool() *index.Pool { return f.pool }

// Start runs the startup sequence from spec §5: load the persisted index,
// start the worker, start the watcher, then crawl any configured root that
// the loaded index has no coverage for.
func (f *Facade) Start(ctx context.Context) error {
	persistence.Load(f.cfg.DataDir, f.pool)

	f.wg.Add(1)
	go f.run()

	w, err := watcher.Start(watcher.Config{
		Roots:           f.cfg.WatchedDirectories,
		Exclusions:      append(watcher.DefaultExclusions(), f.cfg.CustomExclusions...),
		ShowHiddenFiles: f.cfg.ShowHiddenFiles,
		Limiter:         watcher.NewAdmissionLimiter(watcher.DefaultEventsPerSecond, watcher.DefaultBurst),
	}, f)
	if err != nil {
		log.Printf("engine: could not start watcher: %v", err)
	} else {
		f.watcher = w
	}

	var uncovered []string
	for _, root := range f.cfg.WatchedDirectories {
		if !f.hasCoverage(root) {
			uncovered = append(uncovered, root)
		}
	}
	if len(uncovered) > 0 {
		f.crawlWG.Add(1)
		go func() {
			defer f.crawlWG.Done()
			res := f.crawler.Crawl(ctx, uncovered, f)
			log.Printf("engine: startup crawl inserted %d paths (cancelled=%v)", res.Inserted, res.Cancelled)
		}()
	}

	if f.cfg.AutoSaveInterval > 0 {
		go f.autoSaveLoop(f.cfg.AutoSaveInterval)
	}

	return nil
}

// hasCoverage reports whether the loaded index already contains at least
// one live path under root, a cheap heuristic for "needs a fresh crawl".
func (f *Facade) hasCoverage(root string) bool {
	for _, p := range f.pool.AllLivePaths() {
		if len(p) >= len(root) && p[:len(root)] == root {
			return true
		}
	}
	return false
}

func (f *Facade) autoSaveLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-f.stopAuto:
			return
		case <-t.C:
			if err := f.Persist(); err != nil {
				log.Printf("engine: auto-save failed: %v", err)
			}
		}
	}
}

// run is the single worker goroutine that serialises every write (spec
// §4.6, §5 "Write holders").
func (f *Facade) run() {
	defer f.wg.Done()
	for cmd := range f.cmds {
		f.apply(&cmd)
		if cmd.done != nil {
			close(cmd.done)
		}
		if cmd.kind == cmdShutdown {
			return
		}
	}
}

func (f *Facade) apply(cmd *command) {
	switch cmd.kind {
	case cmdInsert:
		_, err := f.pool.Insert(cmd.path)
		cmd.err = err
		if err == nil {
			f.journal.Record(cmd.batchID, persistence.OpInsert, cmd.path, "")
			f.maybeAutoCompact()
		}

	case cmdInsertBatch:
		cmd.n = f.pool.InsertBatch(cmd.paths)
		f.maybeAutoCompact()

	case cmdRemove:
		err := f.pool.Remove(cmd.path)
		cmd.err = err
		if err == nil {
			f.journal.Record(cmd.batchID, persistence.OpRemove, cmd.path, "")
		}

	case cmdRename:
		_, err := f.pool.Rename(cmd.path, cmd.newPath)
		cmd.err = err
		if err == nil {
			f.journal.Record(cmd.batchID, persistence.OpRename, cmd.path, cmd.newPath)
		}

	case cmdCompact:
		cmd.n = f.pool.Compact()
		f.journal.Record(cmd.batchID, persistence.OpCompact, "", "")

	case cmdPersist:
		cmd.err = persistence.Save(f.cfg.DataDir, f.pool)

	case cmdShutdown:
		// handled by run's loop exit
	}
}

// maybeAutoCompact triggers a Compact inline (already running on the single
// worker, so no re-submission through the channel is needed) when the
// tombstone ratio exceeds cfg.AutoCompactThreshold (see SPEC_FULL.md
// "Supplemented features"). A zero threshold disables this.
func (f *Facade) maybeAutoCompact() {
	if f.cfg.AutoCompactThreshold <= 0 {
		return
	}
	total := f.pool.Len()
	if total == 0 {
		return
	}
	live := f.pool.LiveCount()
	ratio := float64(total-live) / float64(total)
	if ratio > f.cfg.AutoCompactThreshold {
		dropped := f.pool.Compact()
		log.Printf("engine: auto-compact reclaimed %d tombstones (ratio was %.2f)", dropped, ratio)
	}
}

func (f *Facade) submit(cmd command) command {
	cmd.done = make(chan struct{})
	f.cmds <- cmd
	<-cmd.done
	return cmd
}

// Insert satisfies watcher.Mutator.
func (f *Facade) Insert(path string) error {
	res := f.submit(command{kind: cmdInsert, path: path, batchID: uuid.NewString()})
	return res.err
}

// Remove satisfies watcher.Mutator.
func (f *Facade) Remove(path string) error {
	res := f.submit(command{kind: cmdRemove, path: path, batchID: uuid.NewString()})
	return res.err
}

// Rename satisfies watcher.Mutator.
func (f *Facade) Rename(oldPath, newPath string) error {
	res := f.submit(command{kind: cmdRename, path: oldPath, newPath: newPath, batchID: uuid.NewString()})
	return res.err
}

// InsertBatch satisfies crawler.Inserter.
func (f *Facade) InsertBatch(paths []string) int {
	res := f.submit(command{kind: cmdInsertBatch, paths: paths, batchID: uuid.NewString()})
	return res.n
}

// Compact runs an explicit compaction and returns the number of tombstones
// reclaimed.
func (f *Facade) Compact() int {
	res := f.submit(command{kind: cmdCompact, batchID: uuid.NewString()})
	return res.n
}

// Persist runs an explicit save to disk.
func (f *Facade) Persist() error {
	res := f.submit(command{kind: cmdPersist})
	return res.err
}

// Close runs the shutdown sequence from spec §5: set cancelled, stop the
// watcher and crawler, run a final Persist, then join the worker. A
// persistence failure on the final save is returned so main can map it to
// exit code 1 (spec §6 "Exit codes").
func (f *Facade) Close() error {
	var persistErr error
	f.stopOnce.Do(func() {
		f.cancelled.Store(true)
		close(f.stopAuto)
		f.crawler.Cancel()
		if f.watcher != nil {
			if err := f.watcher.Close(); err != nil {
				log.Printf("engine: watcher close: %v", err)
			}
		}
		f.crawlWG.Wait()

		persistErr = f.Persist()
		if persistErr != nil {
			log.Printf("engine: final persist failed: %v", persistErr)
		}

		done := make(chan struct{})
		f.cmds <- command{kind: cmdShutdown, done: done}
		<-done
		f.wg.Wait()

		if batches, err := f.journal.RecentBatches(5); err != nil {
			log.Printf("engine: journal recent batches: %v", err)
		} else if len(batches) > 0 {
			log.Printf("engine: last %d batch(es) before shutdown: %v", len(batches), batches)
		}

		if err := f.journal.Close(); err != nil {
			log.Printf("engine: journal close: %v", err)
		}
	})
	if persistErr != nil {
		return fmt.Errorf("engine: shutdown persist: %w", persistErr)
	}
	return nil
}
