package server

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/domnote/events"
	"github.com/hazyhaar/domnote/portfile"
)

// MaxBodyBytes is the request body ceiling. A body that grows past it mid
// read gets its connection dropped, not a response.
const MaxBodyBytes = 64 * 1024

// FallbackOrigin is echoed in CORS headers when the request carries no
// acceptable Origin.
const FallbackOrigin = "http://localhost"

// Config tunes a Server. The zero value is usable: ephemeral port on
// 127.0.0.1, persistence off, default file locations.
type Config struct {
	// Host to bind (default: 127.0.0.1). Origin checking assumes a
	// loopback bind; binding elsewhere is the integrator's problem.
	Host string `json:"host" yaml:"host"`

	// Port to bind; 0 picks an ephemeral port.
	Port int `json:"port" yaml:"port"`

	// Capacity of the annotation store (default: annotation.DefaultCapacity).
	Capacity int `json:"capacity" yaml:"capacity"`

	// MaxScreenshot is the stored screenshot ceiling in bytes.
	MaxScreenshot int `json:"max_screenshot" yaml:"max_screenshot"`

	// Persist enables snapshotting the store to PersistPath.
	Persist bool `json:"persist" yaml:"persist"`

	// PersistPath is the snapshot file (default: <tmp>/domnote-annotations.json).
	PersistPath string `json:"persist_path" yaml:"persist_path"`

	// PersistQuiet is the flush debounce window (default: persist.DefaultQuiet).
	PersistQuiet time.Duration `json:"persist_quiet" yaml:"persist_quiet"`

	// PortFilePath is where the discovery record is published
	// (default: portfile.DefaultPath()).
	PortFilePath string `json:"port_file" yaml:"port_file"`

	// Events, when non-nil, receives annotation lifecycle events.
	Events *events.Logger `json:"-" yaml:"-"`

	// Logger for server diagnostics.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.PersistPath == "" {
		c.PersistPath = filepath.Join(os.TempDir(), "domnote-annotations.json")
	}
	if c.PortFilePath == "" {
		c.PortFilePath = portfile.DefaultPath()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
