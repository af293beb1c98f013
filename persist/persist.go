// Package persist snapshots the annotation store to disk: best-effort
// hydration on start, debounced full-set flushes on mutation, and a forced
// synchronous flush on shutdown.
package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/domnote/annotation"
	"github.com/hazyhaar/domnote/debounce"
)

// DefaultQuiet is the debounce window: a flush runs only after this long
// with no further mutations.
const DefaultQuiet = 300 * time.Millisecond

// Snapshotter is the slice of the store the manager needs.
type Snapshotter interface {
	Snapshot() []*annotation.Annotation
}

// Config tunes a Manager.
type Config struct {
	// Path of the snapshot file.
	Path string `json:"path" yaml:"path"`

	// Quiet is the debounce window (default: DefaultQuiet).
	Quiet time.Duration `json:"quiet" yaml:"quiet"`

	// Logger for flush/load diagnostics.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Quiet <= 0 {
		c.Quiet = DefaultQuiet
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the snapshot file for one store instance. Scheduling and
// flushing are decoupled: Schedule arms the debounce, Flush writes now, and
// Stop cancels any pending timer before flushing synchronously so a clean
// shutdown never loses a mutation.
type Manager struct {
	cfg     Config
	src     Snapshotter
	trigger *debounce.Trigger
}

// New creates a Manager over src. It does not touch the disk until Load,
// Schedule or Flush is called.
func New(cfg Config, src Snapshotter) (*Manager, error) {
	cfg.defaults()
	if cfg.Path == "" {
		return nil, fmt.Errorf("persist: Path is required")
	}
	m := &Manager{cfg: cfg, src: src}
	m.trigger = debounce.New(cfg.Quiet, func() {
		if err := m.Flush(); err != nil {
			m.cfg.Logger.Warn("debounced flush failed", "path", m.cfg.Path, "error", err)
		}
	})
	return m, nil
}

// Load reads a prior snapshot. A missing or malformed file yields an empty
// result, never an error: the server starts empty rather than refusing to
// start.
func (m *Manager) Load() []*annotation.Annotation {
	data, err := os.ReadFile(m.cfg.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.cfg.Logger.Warn("snapshot unreadable, starting empty", "path", m.cfg.Path, "error", err)
		}
		return nil
	}
	var records []*annotation.Annotation
	if err := json.Unmarshal(data, &records); err != nil {
		m.cfg.Logger.Warn("snapshot malformed, starting empty", "path", m.cfg.Path, "error", err)
		return nil
	}
	m.cfg.Logger.Info("snapshot loaded", "path", m.cfg.Path, "count", len(records))
	return records
}

// Schedule arms (or resets) the debounced flush. Call on every mutation.
func (m *Manager) Schedule() {
	m.trigger.Touch()
}

// Flush writes the full current record set, replacing the file contents.
// The in-memory store is read through Snapshot and never touched on error.
func (m *Manager) Flush() error {
	records := m.src.Snapshot()
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("persist: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.Path), 0o750); err != nil {
		return fmt.Errorf("persist: mkdir: %w", err)
	}
	tmp := m.cfg.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("persist: write: %w", err)
	}
	if err := os.Rename(tmp, m.cfg.Path); err != nil {
		return fmt.Errorf("persist: rename: %w", err)
	}
	return nil
}

// Stop cancels any pending debounce and flushes synchronously.
func (m *Manager) Stop() error {
	m.trigger.Cancel()
	return m.Flush()
}
