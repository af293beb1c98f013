package portfile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestWriteReadRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port.json")

	if err := Write(path, 4923); err != nil {
		t.Fatal(err)
	}

	rec := Read(path)
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Port != 4923 {
		t.Fatalf("port: got %d", rec.Port)
	}
	if rec.PID != os.Getpid() {
		t.Fatalf("pid: got %d", rec.PID)
	}
	if time.Since(rec.StartedAt) > time.Minute {
		t.Fatalf("startedAt too old: %v", rec.StartedAt)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("perm: got %o", perm)
		}
	}

	if err := Remove(path); err != nil {
		t.Fatal(err)
	}
	if Read(path) != nil {
		t.Fatal("expected nil after remove")
	}
	// Removing twice is fine.
	if err := Remove(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadMissing(t *testing.T) {
	if rec := Read(filepath.Join(t.TempDir(), "nope.json")); rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
}

func TestReadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if rec := Read(path); rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
}

func TestReadZeroPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port.json")
	if err := os.WriteFile(path, []byte(`{"port":0,"pid":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if rec := Read(path); rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
}
