package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/domnote/annotation"
)

func newStore() *annotation.Store {
	return annotation.NewStore(annotation.Config{})
}

func create(t *testing.T, s *annotation.Store, text string) *annotation.Annotation {
	t.Helper()
	a, err := s.Create(annotation.Draft{
		URL:      "http://localhost:3000",
		Selector: "#app",
		Text:     text,
		Viewport: annotation.Viewport{Width: 1280, Height: 720},
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestLoadMissingFile(t *testing.T) {
	m, err := New(Config{Path: filepath.Join(t.TempDir(), "snap.json")}, newStore())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Load(); got != nil {
		t.Fatalf("expected nil, got %d records", len(got))
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := os.WriteFile(path, []byte("[{truncated"), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := New(Config{Path: path}, newStore())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Load(); got != nil {
		t.Fatalf("expected nil, got %d records", len(got))
	}
}

func TestFlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	s := newStore()
	a := create(t, s, "survives restart")

	m, err := New(Config{Path: path}, s)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	// A fresh store against the same file sees the same record.
	s2 := newStore()
	m2, err := New(Config{Path: path}, s2)
	if err != nil {
		t.Fatal(err)
	}
	s2.Replace(m2.Load())

	list := s2.List()
	if len(list) != 1 {
		t.Fatalf("got %d records", len(list))
	}
	if list[0].ID != a.ID || list[0].Text != "survives restart" {
		t.Fatalf("record mismatch: %+v", list[0])
	}
}

func TestDebounceCoalesces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	var m *Manager
	s := annotation.NewStore(annotation.Config{OnMutate: func() { m.Schedule() }})
	m, err := New(Config{Path: path, Quiet: 50 * time.Millisecond}, s)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		create(t, s, fmt.Sprintf("rapid %d", i))
	}
	// Inside the quiet window nothing has been written yet.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("flushed before the quiet period elapsed")
	}

	time.Sleep(200 * time.Millisecond)
	m2, _ := New(Config{Path: path}, s)
	if got := len(m2.Load()); got != 10 {
		t.Fatalf("expected one flush of 10 records, got %d", got)
	}
}

func TestStopFlushesPendingMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	s := newStore()
	m, err := New(Config{Path: path, Quiet: 10 * time.Second}, s)
	if err != nil {
		t.Fatal(err)
	}
	create(t, s, "pending at shutdown")
	m.Schedule()

	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	m2, _ := New(Config{Path: path}, newStore())
	records := m2.Load()
	if len(records) != 1 || records[0].Text != "pending at shutdown" {
		t.Fatalf("records: %+v", records)
	}
}

func TestFlushReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	s := newStore()
	create(t, s, "a")
	create(t, s, "b")
	m, err := New(Config{Path: path}, s)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	s.Clear()
	create(t, s, "c")
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	records := m.Load()
	if len(records) != 1 || records[0].Text != "c" {
		t.Fatalf("stale contents survived: %+v", records)
	}
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(Config{}, newStore()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
