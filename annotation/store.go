package annotation

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/domnote/idgen"
)

// DefaultCapacity is the record ceiling: creation beyond it is rejected,
// never evicted.
const DefaultCapacity = 50

// DefaultMaxScreenshot caps a stored screenshot payload. Larger capture
// results are dropped, keeping the annotation itself.
const DefaultMaxScreenshot = 20 * 1024 * 1024

var (
	// ErrAtCapacity is returned by Create when the store is full.
	ErrAtCapacity = errors.New("annotation store at capacity")
	// ErrNotFound is returned when an id does not exist in the store.
	ErrNotFound = errors.New("annotation not found")
)

// Config tunes a Store.
type Config struct {
	// Capacity is the maximum number of records (default: DefaultCapacity).
	Capacity int `json:"capacity" yaml:"capacity"`

	// MaxScreenshot is the screenshot payload ceiling in bytes
	// (default: DefaultMaxScreenshot).
	MaxScreenshot int `json:"max_screenshot" yaml:"max_screenshot"`

	// NewID overrides the annotation id generator.
	NewID idgen.Generator `json:"-" yaml:"-"`

	// OnMutate is invoked after every successful mutation. The persistence
	// manager hooks its debounce here.
	OnMutate func() `json:"-" yaml:"-"`

	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.MaxScreenshot <= 0 {
		c.MaxScreenshot = DefaultMaxScreenshot
	}
	if c.NewID == nil {
		c.NewID = idgen.Prefixed("ann_", idgen.UUIDv7())
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Store is the in-memory annotation collection. One server instance owns
// exactly one Store; records leave it only as copies. All operations are
// safe for concurrent use and each mutation is atomic under a single lock,
// so capacity checks and field writes never interleave.
type Store struct {
	mu    sync.Mutex
	cfg   Config
	byID  map[string]*Annotation
	order []string // ids in insertion order
	now   func() time.Time
}

// NewStore creates an empty Store.
func NewStore(cfg Config) *Store {
	cfg.defaults()
	return &Store{
		cfg:  cfg,
		byID: make(map[string]*Annotation),
		now:  time.Now,
	}
}

func (s *Store) mutated() {
	if s.cfg.OnMutate != nil {
		s.cfg.OnMutate()
	}
}

// Create validates d and admits a new record, returning a copy. Fails with
// ErrAtCapacity when the store is full and a *ValidationError when a field
// constraint is violated; in both cases nothing is stored.
func (s *Store) Create(d Draft) (*Annotation, error) {
	a, err := Validate(d)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.order) >= s.cfg.Capacity {
		s.mu.Unlock()
		return nil, ErrAtCapacity
	}
	a.ID = s.cfg.NewID()
	now := s.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.byID[a.ID] = a
	s.order = append(s.order, a.ID)
	out := a.clone()
	s.mu.Unlock()

	s.cfg.Logger.Debug("annotation created", "id", a.ID, "url", a.URL)
	s.mutated()
	return out, nil
}

// Get returns a copy of the record, or nil if the id is unknown.
func (s *Store) Get(id string) *Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil
	}
	return a.clone()
}

// List returns copies of all records in insertion order. Never nil.
func (s *Store) List() []*Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Annotation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].clone())
	}
	return out
}

// Len returns the current record count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// UpdateText replaces the text of an existing record. Returns ErrNotFound
// for unknown ids and a *ValidationError for oversized text.
func (s *Store) UpdateText(id, text string) (*Annotation, error) {
	if len(text) > MaxTextLen {
		return nil, invalidf("text", "Text exceeds maximum length of %d characters", MaxTextLen)
	}

	s.mu.Lock()
	a, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	a.Text = text
	a.UpdatedAt = s.now().UTC()
	out := a.clone()
	s.mu.Unlock()

	s.mutated()
	return out, nil
}

// Resolve marks a record resolved. Resolving an already-resolved record is
// a no-op on status but still refreshes updatedAt.
func (s *Store) Resolve(id string) (*Annotation, error) {
	s.mu.Lock()
	a, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	a.Status = StatusResolved
	a.UpdatedAt = s.now().UTC()
	out := a.clone()
	s.mu.Unlock()

	s.mutated()
	return out, nil
}

// AttachScreenshot stores a capture result on an existing record. Payloads
// over the configured ceiling are dropped silently: the annotation keeps an
// absent screenshot rather than failing. Returns false for unknown ids.
func (s *Store) AttachScreenshot(id, data string) bool {
	if len(data) > s.cfg.MaxScreenshot {
		s.cfg.Logger.Debug("screenshot dropped, over ceiling",
			"id", id, "size", len(data), "max", s.cfg.MaxScreenshot)
		return true
	}
	if data == "" {
		return true
	}

	s.mu.Lock()
	a, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	a.Screenshot = data
	a.UpdatedAt = s.now().UTC()
	s.mu.Unlock()

	s.mutated()
	return true
}

// Delete removes a record, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.mutated()
	return true
}

// Clear removes every record and returns how many were removed. Always
// succeeds; clearing an empty store returns 0 without firing a mutation.
func (s *Store) Clear() int {
	s.mu.Lock()
	n := len(s.order)
	s.byID = make(map[string]*Annotation)
	s.order = nil
	s.mu.Unlock()

	if n > 0 {
		s.mutated()
	}
	return n
}

// Snapshot returns copies of all records for serialization, in insertion
// order.
func (s *Store) Snapshot() []*Annotation {
	return s.List()
}

// Replace discards the current contents and installs records wholesale,
// preserving their order and ids. Used to rehydrate from a persistence
// snapshot; it does not fire the mutation hook.
func (s *Store) Replace(records []*Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Annotation, len(records))
	s.order = s.order[:0]
	for _, a := range records {
		if a == nil || a.ID == "" {
			continue
		}
		if _, dup := s.byID[a.ID]; dup {
			continue
		}
		if len(s.order) >= s.cfg.Capacity {
			break
		}
		s.byID[a.ID] = a.clone()
		s.order = append(s.order, a.ID)
	}
}
