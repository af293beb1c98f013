// Package events records annotation lifecycle events in a SQLite database.
//
// This is observability, not storage of record: the snapshot file owns the
// annotation state, and a failing event database never blocks or fails an
// annotation operation.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/domnote/idgen"
)

// Event types written by the server.
const (
	TypeCreated    = "annotation.created"
	TypeUpdated    = "annotation.updated"
	TypeResolved   = "annotation.resolved"
	TypeDeleted    = "annotation.deleted"
	TypeCleared    = "annotation.cleared"
	TypeSend       = "annotation.send"
	TypeScreenshot = "annotation.screenshot"
)

// Event is one lifecycle record. AnnotationID is empty for store-wide
// events like a bulk clear; Detail is optional free text or JSON.
type Event struct {
	Type         string
	AnnotationID string
	Detail       string
}

const schema = `
CREATE TABLE IF NOT EXISTS annotation_events (
    event_id      TEXT PRIMARY KEY,
    event_type    TEXT NOT NULL,
    annotation_id TEXT NOT NULL DEFAULT '',
    detail        TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_annotation_events_created ON annotation_events(created_at DESC);
`

// Open opens the event database with the production pragmas (WAL, foreign
// keys, busy timeout) applied via EXEC so any sqlite driver works. The
// caller must blank-import a driver registered as "sqlite".
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("events: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("events: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("events: %s: %w", pragma, err)
		}
	}
	return db, nil
}

// Logger writes events. Safe for concurrent use; all methods are
// fire-and-forget from the caller's perspective.
type Logger struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures a Logger.
type Option func(*Logger)

// WithIDGenerator overrides the event id generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *Logger) { l.newID = gen }
}

// WithLogger overrides the slog logger used for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) { l.logger = logger }
}

// NewLogger creates a Logger and applies the schema.
func NewLogger(db *sql.DB, opts ...Option) (*Logger, error) {
	if db == nil {
		return nil, fmt.Errorf("events: db is required")
	}
	l := &Logger{
		db:     db,
		newID:  idgen.Prefixed("evt_", idgen.UUIDv7()),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("events: schema: %w", err)
		}
	}
	return l, nil
}

// Log records an event. Errors are logged and swallowed so a broken event
// store never propagates into request handling.
func (l *Logger) Log(ctx context.Context, e Event) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO annotation_events (event_id, event_type, annotation_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		l.newID(), e.Type, e.AnnotationID, e.Detail, time.Now().Unix(),
	)
	if err != nil {
		l.logger.Warn("event write failed", "type", e.Type, "error", err)
	}
}

// Recent returns up to limit events, newest first. Used by diagnostics.
func (l *Logger) Recent(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_id, event_type, annotation_id, detail, created_at
		FROM annotation_events ORDER BY created_at DESC, event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		if err := rows.Scan(&e.EventID, &e.Type, &e.AnnotationID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// StoredEvent is a row read back from the event table.
type StoredEvent struct {
	EventID      string `json:"event_id"`
	Type         string `json:"event_type"`
	AnnotationID string `json:"annotation_id"`
	Detail       string `json:"detail"`
	CreatedAt    int64  `json:"created_at"`
}
