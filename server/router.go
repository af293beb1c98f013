package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/domnote/annotation"
	"github.com/hazyhaar/domnote/events"
	"github.com/hazyhaar/domnote/origincheck"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(s.cors)

	r.Get("/", s.handleHealth)
	r.Get("/overlay.js", s.handleOverlayScript)
	r.Post("/annotations", s.handleCreate)
	r.Get("/annotations", s.handleList)
	r.Delete("/annotations", s.handleClear)
	r.Patch("/annotations/{id}", s.handleUpdateText)
	r.Delete("/annotations/{id}", s.handleDelete)
	r.Post("/annotations/{id}/resolve", s.handleResolve)
	r.Post("/annotations/send", s.handleSend)

	notFound := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
	return r
}

// cors stamps every response with the loopback CORS policy and answers
// preflights directly. The echoed origin is the request's own origin when
// it passes the loopback check, and a fixed localhost fallback otherwise.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := origincheck.Validate(r.Header.Get("Origin"))
		if origin == "" {
			origin = FallbackOrigin
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer turns handler panics into a 500 without taking the process
// down. http.ErrAbortHandler passes through so the body-size guard can
// still kill the connection.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.cfg.Logger.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", rec)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}

// decodeBody reads a JSON request body under the MaxBodyBytes ceiling. The
// limit is enforced while streaming: a body that crosses it aborts the
// connection outright instead of producing a response.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		panic(http.ErrAbortHandler)
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"count":  s.store.Len(),
		"port":   s.Port(),
	})
}

func (s *Server) handleOverlayScript(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	build := s.overlayFn
	port := s.port
	s.mu.Unlock()
	if build == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Overlay builder not registered"})
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write([]byte(build(port)))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var draft annotation.Draft
	if err := decodeBody(w, r, &draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	a, err := s.store.Create(draft)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.captureScreenshot(a)
	s.logEvent(r.Context(), events.Event{Type: events.TypeCreated, AnnotationID: a.ID})
	writeJSON(w, http.StatusCreated, map[string]string{"id": a.ID})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	n := s.store.Clear()
	s.logEvent(r.Context(), events.Event{
		Type:   events.TypeCleared,
		Detail: fmt.Sprintf(`{"deleted":%d}`, n),
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}

func (s *Server) handleUpdateText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	a, err := s.store.UpdateText(id, req.Text)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logEvent(r.Context(), events.Event{Type: events.TypeUpdated, AnnotationID: id})
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.Delete(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Annotation not found"})
		return
	}
	s.logEvent(r.Context(), events.Event{Type: events.TypeDeleted, AnnotationID: id})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.store.Resolve(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logEvent(r.Context(), events.Event{Type: events.TypeResolved, AnnotationID: id})
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	s.latch.Trigger()
	s.logEvent(r.Context(), events.Event{Type: events.TypeSend})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeStoreError maps store errors onto the wire: capacity to 429,
// unknown id to 404, validation to 400 with the field message.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, annotation.ErrAtCapacity):
		capacity := s.cfg.Capacity
		if capacity <= 0 {
			capacity = annotation.DefaultCapacity
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "Annotation limit reached (" + strconv.Itoa(capacity) + "). Resolve or delete annotations first.",
		})
	case errors.Is(err, annotation.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Annotation not found"})
	default:
		var ve *annotation.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Msg})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

func (s *Server) logEvent(ctx context.Context, e events.Event) {
	if s.cfg.Events == nil {
		return
	}
	s.cfg.Events.Log(ctx, e)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
