package knowledge

import (
	"sync/atomic"
	"time"
)

// Chunk is one retrievable span of indexed text with its embedding.
type Chunk struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Source  string    `json:"source"`
	Title   string    `json:"title"`
	Vector  []float32 `json:"-"`
}

// Store is an immutable generation of chunks sharing one vector dimension.
// Callers must not mutate the slice returned by Chunks.
type Store struct {
	chunks     []Chunk
	dimension  int
	generation uint64
	origin     string
	fallback   bool
	loadedAt   time.Time
}

func (s *Store) Chunks() []Chunk {
	return s.chunks
}

func (s *Store) Len() int {
	return len(s.chunks)
}

func (s *Store) Dimension() int {
	return s.dimension
}

func (s *Store) Generation() uint64 {
	return s.generation
}

// Origin names where the store was loaded from (a directory, a table or "fallback").
func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) IsFallback() bool {
	return s.fallback
}

func (s *Store) LoadedAt() time.Time {
	return s.loadedAt
}

// Holder publishes the active Store. A new Store is built off to the side and
// installed with a single pointer swap, so readers see one generation in full.
type Holder struct {
	current    atomic.Pointer[Store]
	generation atomic.Uint64
}

func NewHolder(initial *Store) *Holder {
	h := &Holder{}
	if initial != nil {
		h.Swap(initial)
	}
	return h
}

// Current returns the active store, or nil if none was ever installed.
func (h *Holder) Current() *Store {
	return h.current.Load()
}

// Swap installs next and returns the store it replaced. next must not have been
// published before.
func (h *Holder) Swap(next *Store) *Store {
	next.generation = h.generation.Add(1)
	return h.current.Swap(next)
}
