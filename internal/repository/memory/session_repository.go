package memory

import (
	"context"
	"sync"
	"time"

	"nau-assistant/internal/repository/contract"
	"nau-assistant/pkg/store"

	"github.com/patrickmn/go-cache"
)

type sessionEntry struct {
	mu       sync.Mutex
	messages []store.Message
	nextSeq  int64
	created  time.Time
}

// SessionRepository keeps session logs in process memory.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
	mu    sync.Mutex
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a store whose sessions expire after ttl of
// inactivity. ttl <= 0 keeps sessions for the process lifetime.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 10 * time.Minute
	}
	return &SessionRepository{
		cache: cache.New(expiration, cleanup),
		ttl:   expiration,
	}
}

func (r *SessionRepository) entry(sessionID string, create bool) *sessionEntry {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*sessionEntry)
	}
	if !create {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if x, found := r.cache.Get(sessionID); found {
		return x.(*sessionEntry)
	}
	e := &sessionEntry{nextSeq: 1, created: time.Now()}
	r.cache.Set(sessionID, e, r.ttl)
	return e
}

func (r *SessionRepository) Create(_ context.Context, sessionID string) error {
	r.entry(sessionID, true)
	return nil
}

func (r *SessionRepository) Append(_ context.Context, sessionID string, msg store.Message) (store.Message, error) {
	e := r.entry(sessionID, true)

	e.mu.Lock()
	msg.Seq = e.nextSeq
	e.nextSeq++
	e.messages = append(e.messages, msg)
	e.mu.Unlock()

	if r.ttl != cache.NoExpiration {
		// refresh expiry on activity
		r.cache.Set(sessionID, e, r.ttl)
	}
	return msg, nil
}

func (r *SessionRepository) Get(_ context.Context, sessionID string) ([]store.Message, error) {
	e := r.entry(sessionID, false)
	if e == nil {
		return []store.Message{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]store.Message, len(e.messages))
	copy(out, e.messages)
	return out, nil
}

func (r *SessionRepository) Exists(_ context.Context, sessionID string) (bool, error) {
	_, found := r.cache.Get(sessionID)
	return found, nil
}

func (r *SessionRepository) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}

func (r *SessionRepository) List(_ context.Context) ([]store.Summary, error) {
	items := r.cache.Items()
	summaries := make([]store.Summary, 0, len(items))
	for id, item := range items {
		e, ok := item.Object.(*sessionEntry)
		if !ok {
			continue
		}
		e.mu.Lock()
		summary, ok := store.Summarize(id, e.messages)
		e.mu.Unlock()
		if ok {
			summaries = append(summaries, summary)
		}
	}
	store.SortSummaries(summaries)
	return summaries, nil
}

// Len reports the number of live sessions.
func (r *SessionRepository) Len() int {
	return r.cache.ItemCount()
}
