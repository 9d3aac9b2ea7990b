// Package watcher implements the filesystem watcher described in spec §4.4
// (component D): a long-running fsnotify subscriber that coalesces OS
// change notifications into Create/Modify/Delete/Rename, runs each through
// the exclusion/temp-file/permission/stability gates, and applies the
// surviving ones to a Mutator under a single worker goroutine so that
// events for any one path are never reordered.
package watcher

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"flashfind/index"
)

// renameCorrelationWindow bounds how long a bare Rename-from half is held
// waiting for a matching Create in the same directory before it is flushed
// as a plain removal. fsnotify's inotify backend reports a rename as two
// independent events (Rename on the old name, Create on the new one) with
// no shared token, so this is a best-effort heuristic, not a guarantee.
const renameCorrelationWindow = 50 * time.Millisecond

// Mutator is the index-mutating surface the watcher drives. The engine
// facade implements it; the watcher package never imports engine (it uses
// index only for the ErrDuplicate sentinel), so there is no import cycle
// between D and F.
type Mutator interface {
	Insert(path string) error
	Remove(path string) error
	Rename(oldPath, newPath string) error
}

// Config controls one Watcher instance.
type Config struct {
	Roots      []string
	Exclusions []string
	// ShowHiddenFiles false hides leading-dot paths (spec §6 show_hidden_files).
	ShowHiddenFiles bool
	// Limiter, if nil, disables admission pacing.
	Limiter *AdmissionLimiter
}

// Watcher owns the fsnotify subscription and the single processing worker.
type Watcher struct {
	fsw        *fsnotify.Watcher
	mutator    Mutator
	exclusions *ExclusionSet
	limiter    *AdmissionLimiter

	pendingMu sync.Mutex
	pending   map[string]pendingRename // directory -> most recent unmatched rename-from

	done chan struct{}
	wg   sync.WaitGroup
}

type pendingRename struct {
	oldPath string
	at      time.Time
}

// Start builds a Watcher over cfg.Roots and begins processing events in a
// background goroutine. The returned Watcher must be stopped with Close.
func Start(cfg Config, mutator Mutator) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:        fsw,
		mutator:    mutator,
		exclusions: NewExclusionSet(cfg.Exclusions, !cfg.ShowHiddenFiles),
		limiter:    cfg.Limiter,
		pending:    make(map[string]pendingRename),
		done:       make(chan struct{}),
	}

	for _, root := range cfg.Roots {
		if err := w.watchRecursive(root); err != nil {
			log.Printf("watcher: could not watch %s: %v", root, err)
		}
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops event processing and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// watchRecursive adds a watch for dir and every subdirectory beneath it,
// skipping anything excluded. On an inotify watch-limit error it logs one
// actionable message and stops walking further (spec §4.4 step 1 combined
// with the teacher's ENOSPC handling).
func (w *Watcher) watchRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Printf("watcher: skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.exclusions.Excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if errors.Is(err, syscall.ENOSPC) {
				log.Printf(
					"watcher: inotify watch limit reached (stopped at %s).\n"+
						"  Directories beyond this point will not receive live updates until the\n"+
						"  next full crawl. To enable full coverage, raise the kernel limit:\n"+
						"    echo fs.inotify.max_user_watches=524288 | sudo tee -a /etc/sysctl.conf\n"+
						"    sudo sysctl -p",
					path,
				)
				return filepath.SkipAll
			}
			log.Printf("watcher: could not add watch for %s: %v", path, err)
		}
		return nil
	})
}

// run is the single worker that drains fsnotify events (and admission
// pacing, where configured) to preserve per-path ordering.
func (w *Watcher) run() {
	defer w.wg.Done()

	sweep := time.NewTicker(renameCorrelationWindow)
	defer sweep.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.admit(event.Name)
			w.dispatch(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)

		case <-sweep.C:
			w.flushExpiredPending()
		}
	}
}

// admit applies the configured admission limiter, if any, pacing how fast
// events are handed off during a filesystem storm. Events are keyed by their
// parent directory. A wait that cannot be satisfied within 5 seconds is
// logged and the event is still processed, just without further pacing.
func (w *Watcher) admit(path string) {
	if w.limiter == nil {
		return
	}
	root := filepath.Dir(path)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.limiter.Wait(ctx, root); err != nil {
		log.Printf("watcher: admission wait for %s: %v", path, err)
	}
}

// dispatch classifies a raw fsnotify event and runs it through the
// per-event pipeline (spec §4.4).
func (w *Watcher) dispatch(event fsnotify.Event) {
	dir := filepath.Dir(event.Name)
	base := filepath.Base(event.Name)

	if event.Has(fsnotify.Create) {
		if w.tryCompleteRename(dir, event.Name) {
			return
		}
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := w.watchRecursive(event.Name); err != nil {
				log.Printf("watcher: could not watch new dir %s: %v", event.Name, err)
			}
			return
		}
		w.handleCreateOrModify(event.Name, base, false)
		return
	}

	if event.Has(fsnotify.Write) {
		w.handleCreateOrModify(event.Name, base, true)
		return
	}

	if event.Has(fsnotify.Remove) {
		w.flushPendingFor(dir)
		if err := w.mutator.Remove(event.Name); err != nil {
			log.Printf("watcher: remove %s: %v", event.Name, err)
		}
		return
	}

	if event.Has(fsnotify.Rename) {
		w.setPending(dir, event.Name)
		return
	}

	// fsnotify.Chmod and anything else: no structural change, spec §4.4 step 5.
}

// handleCreateOrModify runs the temp-file, permission and stability gates
// for a Create or a Write(=Modify) event. modify reports whether this is a
// Write event rather than a fresh Create — per spec §4.4
// step 5 a pure Modify never changes the index, so it is only worth gating
// at all because a Write on a path FlashFind has never seen behaves like a
// deferred Create (e.g. editors that write then rename into place skip the
// rename and just keep writing the final name).
func (w *Watcher) handleCreateOrModify(path, base string, modify bool) {
	if w.exclusions.Excluded(path) {
		return
	}
	if IsTempFile(base) {
		return
	}
	if !IsReadable(path) {
		log.Printf("watcher: debug: unreadable, dropping %s", path)
		return
	}
	if !IsStable(path) {
		log.Printf("watcher: debug: unstable after retries, dropping %s", path)
		return
	}
	// Insert's ErrDuplicate is expected for a Write to an already-live path
	// (the modify==true case) and is not logged; anything else is.
	if err := w.mutator.Insert(path); err != nil && !errors.Is(err, index.ErrDuplicate) {
		log.Printf("watcher: insert %s: %v", path, err)
	}
}

// setPending records a rename-from half, to be matched against a Create in
// the same directory within renameCorrelationWindow. A rename-from already
// pending for dir is displaced and applied as a plain removal.
func (w *Watcher) setPending(dir, oldPath string) {
	w.pendingMu.Lock()
	prev, had := w.pending[dir]
	w.pending[dir] = pendingRename{oldPath: oldPath, at: time.Now()}
	w.pendingMu.Unlock()

	if had {
		if err := w.mutator.Remove(prev.oldPath); err != nil {
			log.Printf("watcher: remove (displaced rename) %s: %v", prev.oldPath, err)
		}
	}
}

// tryCompleteRename pairs a Create under dir with a pending rename-from, if
// one is still within the correlation window. An expired pending
// rename-from is applied as a plain removal instead. Returns true if it
// consumed the Create as a rename.
func (w *Watcher) tryCompleteRename(dir, newPath string) bool {
	w.pendingMu.Lock()
	pr, ok := w.pending[dir]
	if ok {
		delete(w.pending, dir)
	}
	w.pendingMu.Unlock()

	if !ok {
		return false
	}
	if time.Since(pr.at) > renameCorrelationWindow {
		if err := w.mutator.Remove(pr.oldPath); err != nil {
			log.Printf("watcher: remove (expired rename) %s: %v", pr.oldPath, err)
		}
		return false
	}
	if err := w.mutator.Rename(pr.oldPath, newPath); err != nil {
		log.Printf("watcher: rename %s -> %s: %v", pr.oldPath, newPath, err)
	}
	return true
}

// flushPendingFor flushes dir's pending rename-from, if any, as a plain
// removal — used when a Remove arrives for the same directory before a
// matching Create showed up.
func (w *Watcher) flushPendingFor(dir string) {
	w.pendingMu.Lock()
	pr, ok := w.pending[dir]
	if ok {
		delete(w.pending, dir)
	}
	w.pendingMu.Unlock()

	if ok {
		if err := w.mutator.Remove(pr.oldPath); err != nil {
			log.Printf("watcher: remove (expired rename) %s: %v", pr.oldPath, err)
		}
	}
}

// flushExpiredPending drops every pending rename-from older than the
// correlation window, applying it as a plain removal — this is what lets a
// rename whose Create half never arrives (e.g. a move to an unwatched
// filesystem) still converge the index.
func (w *Watcher) flushExpiredPending() {
	w.pendingMu.Lock()
	var expired []pendingRename
	now := time.Now()
	for dir, pr := range w.pending {
		if now.Sub(pr.at) > renameCorrelationWindow {
			expired = append(expired, pr)
			delete(w.pending, dir)
		}
	}
	w.pendingMu.Unlock()

	for _, pr := range expired {
		if err := w.mutator.Remove(pr.oldPath); err != nil {
			log.Printf("watcher: remove (expired rename) %s: %v", pr.oldPath, err)
		}
	}
}
