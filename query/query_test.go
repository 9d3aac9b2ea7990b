package query

import (
	"fmt"
	"sort"
	"testing"

	"flashfind/index"
	"flashfind/models"
)

func pathsOf(entries []models.PathEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	sort.Strings(out)
	return out
}

// TestScenarioS1 covers spec §8 scenario S1.
func TestScenarioS1(t *testing.T) {
	p := index.New(0)
	for _, f := range []string{"/tmp/ff/a.txt", "/tmp/ff/b.txt", "/tmp/ff/c.pdf"} {
		if _, err := p.Insert(f); err != nil {
			t.Fatal(err)
		}
	}

	got := pathsOf(Execute(p, Request{Query: "a"}))
	if len(got) != 1 || got[0] != "/tmp/ff/a.txt" {
		t.Fatalf("search(a) = %v, want [/tmp/ff/a.txt]", got)
	}

	got = pathsOf(Execute(p, Request{Query: "*.pdf"}))
	if len(got) != 1 || got[0] != "/tmp/ff/c.pdf" {
		t.Fatalf("search(*.pdf) = %v, want [/tmp/ff/c.pdf]", got)
	}

	got = pathsOf(Execute(p, Request{Query: "*.txt"}))
	want := []string{"/tmp/ff/a.txt", "/tmp/ff/b.txt"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("search(*.txt) = %v, want %v (order-independent set)", got, want)
	}
}

// TestScenarioS2 covers spec §8 scenario S2: compound extensions.
func TestScenarioS2(t *testing.T) {
	p := index.New(0)
	if _, err := p.Insert("/tmp/ff/r.tar.gz"); err != nil {
		t.Fatal(err)
	}

	for _, q := range []string{"*.gz", "*.tar.gz"} {
		got := pathsOf(Execute(p, Request{Query: q}))
		if len(got) != 1 || got[0] != "/tmp/ff/r.tar.gz" {
			t.Fatalf("search(%s) = %v, want [/tmp/ff/r.tar.gz]", q, got)
		}
	}
}

// TestScenarioS3 covers spec §8 scenario S3: delete invisibility via the
// query layer.
func TestScenarioS3(t *testing.T) {
	p := index.New(0)
	if _, err := p.Insert("/tmp/ff/doc.txt"); err != nil {
		t.Fatal(err)
	}
	if err := p.Remove("/tmp/ff/doc.txt"); err != nil {
		t.Fatal(err)
	}

	got := Execute(p, Request{Query: "doc"})
	if len(got) != 0 {
		t.Fatalf("search(doc) after delete = %v, want []", got)
	}

	dropped := p.Compact()
	if dropped != 1 {
		t.Fatalf("Compact() = %d, want 1", dropped)
	}
	if p.Len() != 0 {
		t.Fatalf("pool size after compact = %d, want 0", p.Len())
	}
}

func TestCategoryFilter(t *testing.T) {
	p := index.New(0)
	for _, f := range []string{"/tmp/ff/report.pdf", "/tmp/ff/photo.png", "/tmp/ff/notes.txt"} {
		if _, err := p.Insert(f); err != nil {
			t.Fatal(err)
		}
	}

	got := pathsOf(Execute(p, Request{Query: "", Category: "documents"}))
	var found bool
	for _, g := range got {
		if g == "/tmp/ff/report.pdf" {
			found = true
		}
		if g == "/tmp/ff/photo.png" {
			t.Fatalf("category=documents should not include photo.png, got %v", got)
		}
	}
	if !found {
		t.Fatalf("category=documents should include report.pdf, got %v", got)
	}
}

func TestEmptyQueryMatchesAllLive(t *testing.T) {
	p := index.New(0)
	var want []string
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("/tmp/ff/f%d.txt", i)
		if _, err := p.Insert(path); err != nil {
			t.Fatal(err)
		}
		want = append(want, path)
	}
	got := pathsOf(Execute(p, Request{Query: ""}))
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLimitCapsResults(t *testing.T) {
	p := index.New(0)
	for i := 0; i < 100; i++ {
		if _, err := p.Insert(fmt.Sprintf("/tmp/ff/f%d.txt", i)); err != nil {
			t.Fatal(err)
		}
	}
	got := Execute(p, Request{Query: "", Limit: 10})
	if len(got) != 10 {
		t.Fatalf("got %d results, want 10", len(got))
	}
}

func TestEmptyIndexYieldsEmptyResult(t *testing.T) {
	p := index.New(0)
	got := Execute(p, Request{Query: "anything"})
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
	if p.Stats().SearchesPerformed != 1 {
		t.Fatalf("SearchesPerformed = %d, want 1", p.Stats().SearchesPerformed)
	}
}
