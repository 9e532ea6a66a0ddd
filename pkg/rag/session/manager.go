package session

import (
	"context"
	"sync"
	"time"

	"nau-assistant/internal/repository/contract"
	"nau-assistant/pkg/store"

	"github.com/google/uuid"
)

const (
	SessionIDPrefix  = "chat_"
	FollowUpIDPrefix = "followup_"
)

// Manager is the session store used by the dialogue service. It serializes
// work per session id and stamps messages before handing them to the
// repository.
type Manager struct {
	repo  contract.SessionRepository
	locks *keyedMutex
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(repo contract.SessionRepository, opts ...Option) *Manager {
	m := &Manager{
		repo:  repo,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewSessionID returns a fresh session id.
func NewSessionID() string {
	return SessionIDPrefix + uuid.NewString()
}

// NewFollowUpID returns a fresh follow-up id.
func NewFollowUpID() string {
	return FollowUpIDPrefix + uuid.NewString()
}

// Lock acquires exclusive access to sessionID and returns the release func.
// Callers hold it across a whole turn so concurrent turns of one session do
// not interleave.
func (m *Manager) Lock(sessionID string) func() {
	return m.locks.lock(sessionID)
}

// Create registers a new empty session and returns its id.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := NewSessionID()
	if err := m.repo.Create(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// Append stores msg at the end of the session log. A zero Timestamp is
// filled from the manager clock.
func (m *Manager) Append(ctx context.Context, sessionID string, msg store.Message) (store.Message, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	return m.repo.Append(ctx, sessionID, msg)
}

// Get returns the ordered log of sessionID, empty for an unknown id.
func (m *Manager) Get(ctx context.Context, sessionID string) ([]store.Message, error) {
	msgs, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	return msgs, nil
}

func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()
	return m.repo.Delete(ctx, sessionID)
}

func (m *Manager) List(ctx context.Context) ([]store.Summary, error) {
	return m.repo.List(ctx)
}

// FindOriginalQuestion locates the follow-up message with followUpID and
// walks back to the nearest earlier assistant message that is not itself a
// follow-up. It returns that message's original question.
func FindOriginalQuestion(messages []store.Message, followUpID string) (string, bool) {
	if followUpID == "" {
		return "", false
	}

	at := -1
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == store.RoleAssistant && m.IsFollowUp && m.FollowUpID == followUpID {
			at = i
			break
		}
	}
	if at < 0 {
		return "", false
	}

	for i := at - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != store.RoleAssistant || m.IsFollowUp {
			continue
		}
		if m.OriginalQuestion != "" {
			return m.OriginalQuestion, true
		}
		break
	}
	if q := messages[at].OriginalQuestion; q != "" {
		return q, true
	}
	return "", false
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds or
// waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
