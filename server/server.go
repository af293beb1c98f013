// Package server runs the loopback HTTP annotation service and exposes the
// agent-facing operations: lifecycle, store access, the send latch, and the
// screenshot/overlay hooks.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hazyhaar/domnote/annotation"
	"github.com/hazyhaar/domnote/latch"
	"github.com/hazyhaar/domnote/overlay"
	"github.com/hazyhaar/domnote/persist"
	"github.com/hazyhaar/domnote/portfile"
)

// ScreenshotFunc captures a screenshot for a freshly created annotation.
// It runs on its own goroutine after the create response is sent; errors
// and oversized results degrade to "no screenshot".
type ScreenshotFunc func(ctx context.Context, a *annotation.Annotation) (string, error)

// Server owns one annotation store, its persistence, and the HTTP listener.
// Instances are independent: each binds its own port and file paths, so
// several can run in one process.
type Server struct {
	cfg   Config
	store *annotation.Store
	latch latch.SendLatch
	pm    *persist.Manager // nil when persistence is disabled

	mu           sync.Mutex
	running      bool
	port         int
	ln           net.Listener
	httpSrv      *http.Server
	baseCtx      context.Context
	baseCancel   context.CancelFunc
	screenshotFn ScreenshotFunc
	overlayFn    overlay.Builder
}

// New constructs a stopped Server. Persistence, when enabled, is wired into
// the store's mutation hook here but touches no file until Start.
func New(cfg Config) (*Server, error) {
	cfg.defaults()
	s := &Server{cfg: cfg, overlayFn: overlay.DefaultBuilder}

	var onMutate func()
	if cfg.Persist {
		pm, err := persist.New(persist.Config{
			Path:   cfg.PersistPath,
			Quiet:  cfg.PersistQuiet,
			Logger: cfg.Logger,
		}, snapshotterFunc(func() []*annotation.Annotation { return s.store.Snapshot() }))
		if err != nil {
			return nil, err
		}
		s.pm = pm
		onMutate = pm.Schedule
	}

	s.store = annotation.NewStore(annotation.Config{
		Capacity:      cfg.Capacity,
		MaxScreenshot: cfg.MaxScreenshot,
		OnMutate:      onMutate,
		Logger:        cfg.Logger,
	})
	return s, nil
}

type snapshotterFunc func() []*annotation.Annotation

func (f snapshotterFunc) Snapshot() []*annotation.Annotation { return f() }

// Start binds the listener, hydrates the store from a prior snapshot when
// persistence is on, publishes the port file, and begins serving. Calling
// Start on a running server is a no-op that returns the existing port.
func (s *Server) Start() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return s.port, nil
	}

	if s.pm != nil {
		if records := s.pm.Load(); len(records) > 0 {
			s.store.Replace(records)
		}
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return 0, fmt.Errorf("server: bind: %w", err)
	}
	s.ln = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())
	s.httpSrv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := portfile.Write(s.cfg.PortFilePath, s.port); err != nil {
		s.cfg.Logger.Warn("port file write failed", "path", s.cfg.PortFilePath, "error", err)
	}

	s.running = true
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.cfg.Logger.Error("serve", "error", err)
		}
	}()

	s.cfg.Logger.Info("annotation server started",
		"port", s.port, "persist", s.pm != nil, "port_file", s.cfg.PortFilePath)
	return s.port, nil
}

// Stop shuts the listener down, flushes any pending snapshot synchronously,
// and removes the port file. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.port = 0
	httpSrv := s.httpSrv
	cancel := s.baseCancel
	// Shutdown waits for in-flight handlers, and those take s.mu; the
	// lock cannot be held across it.
	s.mu.Unlock()

	cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		httpSrv.Close()
	}

	var flushErr error
	if s.pm != nil {
		flushErr = s.pm.Stop()
	}
	if err := portfile.Remove(s.cfg.PortFilePath); err != nil {
		s.cfg.Logger.Warn("port file remove failed", "path", s.cfg.PortFilePath, "error", err)
	}

	s.cfg.Logger.Info("annotation server stopped")
	return flushErr
}

// Port returns the bound port, or 0 when the server is not running.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return s.port
}

// Store exposes the annotation store for the agent-side collaborator.
func (s *Server) Store() *annotation.Store { return s.store }

// RegisterScreenshotFunc installs the capture callback invoked after each
// create. Passing nil disables capture.
func (s *Server) RegisterScreenshotFunc(fn ScreenshotFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshotFn = fn
}

// RegisterOverlayBuilder replaces the script builder behind /overlay.js.
// Passing nil makes the route answer 503.
func (s *Server) RegisterOverlayBuilder(fn overlay.Builder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlayFn = fn
}

// ConsumeSend polls the send latch, resetting it.
func (s *Server) ConsumeSend() bool { return s.latch.Consume() }

// WaitForSend blocks until the overlay triggers a send or timeout elapses.
func (s *Server) WaitForSend(timeout time.Duration) bool { return s.latch.Wait(timeout) }

// captureScreenshot runs the registered callback for a new record without
// holding up the request that created it. Panics and errors are contained
// here; the worst outcome is an absent screenshot.
func (s *Server) captureScreenshot(a *annotation.Annotation) {
	s.mu.Lock()
	fn := s.screenshotFn
	ctx := s.baseCtx
	s.mu.Unlock()
	if fn == nil || ctx == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.cfg.Logger.Warn("screenshot callback panicked", "id", a.ID, "panic", r)
			}
		}()
		shot, err := fn(ctx, a)
		if err != nil {
			s.cfg.Logger.Debug("screenshot failed", "id", a.ID, "error", err)
			return
		}
		s.store.AttachScreenshot(a.ID, shot)
	}()
}
