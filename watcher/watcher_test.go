package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// recordingMutator is a Mutator that records every call it receives, for
// assertions from the test goroutine.
type recordingMutator struct {
	mu       sync.Mutex
	inserted []string
	removed  []string
	renamed  [][2]string
}

func (m *recordingMutator) Insert(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, path)
	return nil
}

func (m *recordingMutator) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, path)
	return nil
}

func (m *recordingMutator) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renamed = append(m.renamed, [2]string{oldPath, newPath})
	return nil
}

func (m *recordingMutator) snapshot() (ins, rem []string, ren [][2]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inserted...), append([]string(nil), m.removed...), append([][2]string(nil), m.renamed...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

// TestCreateStableFileIsInserted covers the Create -> PENDING_STABILITY ->
// LIVE path of the state machine (spec §4.4).
func TestCreateStableFileIsInserted(t *testing.T) {
	root := t.TempDir()
	m := &recordingMutator{}
	w, err := Start(Config{Roots: []string{root}, Exclusions: DefaultExclusions()}, m)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	target := filepath.Join(root, "report.pdf")
	if err := os.WriteFile(target, []byte("stable contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		ins, _, _ := m.snapshot()
		for _, p := range ins {
			if p == target {
				return true
			}
		}
		return false
	})
}

// TestDeleteIsApplied covers the delete transition back to IDLE.
func TestDeleteIsApplied(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "gone.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &recordingMutator{}
	w, err := Start(Config{Roots: []string{root}, Exclusions: DefaultExclusions()}, m)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		_, rem, _ := m.snapshot()
		for _, p := range rem {
			if p == target {
				return true
			}
		}
		return false
	})
}

// TestTempFileIsIgnored covers spec §4.4 step 2.
func TestTempFileIsIgnored(t *testing.T) {
	root := t.TempDir()
	m := &recordingMutator{}
	w, err := Start(Config{Roots: []string{root}, Exclusions: DefaultExclusions()}, m)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(root, "download.crdownload"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Give the worker a chance to process, then confirm nothing was inserted.
	time.Sleep(300 * time.Millisecond)
	ins, _, _ := m.snapshot()
	if len(ins) != 0 {
		t.Fatalf("temp file should not have been inserted, got %v", ins)
	}
}

// TestExcludedDirectoryIsNeverWatched covers spec §4.4 step 1.
func TestExcludedDirectoryIsNeverWatched(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.Mkdir(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}

	m := &recordingMutator{}
	w, err := Start(Config{Roots: []string{root}, Exclusions: DefaultExclusions()}, m)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(gitDir, "index"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	ins, _, _ := m.snapshot()
	if len(ins) != 0 {
		t.Fatalf("file under excluded dir should not have been inserted, got %v", ins)
	}
}

func TestExclusionSetPrefixAndName(t *testing.T) {
	es := NewExclusionSet([]string{"node_modules", "/abs/ignored"}, false)
	cases := map[string]bool{
		"/x/node_modules/pkg/a.js": true,
		"/abs/ignored/file":        true,
		"/abs/ignored":             true,
		"/x/src/a.js":              false,
	}
	for path, want := range cases {
		if got := es.Excluded(path); got != want {
			t.Errorf("Excluded(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestExclusionSetHideDotted(t *testing.T) {
	es := NewExclusionSet(nil, true)
	cases := map[string]bool{
		"/home/u/.bashrc":      true,
		"/home/u/.ssh/id_rsa":  true,
		"/home/u/visible.txt":  false,
		"/home/u/..dots/a.txt": true,
	}
	for path, want := range cases {
		if got := es.Excluded(path); got != want {
			t.Errorf("Excluded(%q) = %v, want %v", path, got, want)
		}
	}

	shown := NewExclusionSet(nil, false)
	if shown.Excluded("/home/u/.bashrc") {
		t.Error("hideDotted=false should not exclude dotfiles")
	}
}

func TestIsTempFilePatterns(t *testing.T) {
	temp := []string{"~$budget.xlsx", "movie.mp4.tmp", "x.temp", "video.crdownload", "file.part"}
	for _, name := range temp {
		if !IsTempFile(name) {
			t.Errorf("IsTempFile(%q) = false, want true", name)
		}
	}
	if IsTempFile("report.pdf") {
		t.Errorf("IsTempFile(report.pdf) = true, want false")
	}
}

func TestIsStableAfterWritesSettle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "growing.bin")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			time.Sleep(40 * time.Millisecond)
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return
			}
			f.WriteString("more data")
			f.Close()
		}
	}()
	<-done

	if !IsStable(path) {
		t.Fatalf("IsStable should eventually report true once writes stop")
	}
}
