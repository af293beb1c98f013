// Package portfile publishes the bound port of a running annotation server
// to a well-known file so unrelated processes can discover it.
//
// The file is a tiny JSON record written with owner-only permissions on
// bind and deleted on clean shutdown. Reads are deliberately forgiving: a
// missing or garbled file means "no server running", never an error.
package portfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Record is the discovery payload.
type Record struct {
	Port      int       `json:"port"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"startedAt"`
}

// DefaultPath is where the record lives unless the caller overrides it.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "domnote-port.json")
}

// Write publishes port for the current process at path.
func Write(path string, port int) error {
	rec := Record{
		Port:      port,
		PID:       os.Getpid(),
		StartedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Read returns the published record, or nil if the file is missing or does
// not parse. It never returns an error: discovery callers treat every
// failure mode as "no server".
func Read(path string) *Record {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	if rec.Port <= 0 {
		return nil
	}
	return &rec
}

// Remove deletes the record. A file already gone is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
