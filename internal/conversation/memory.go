package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/pkg/mmodel"
)

type sessionEntry struct {
	mu      sync.Mutex
	turnMu  sync.Mutex
	session *mmodel.Session
}

// Memory is the default in-memory Store: a map of session id to entry,
// guarded by a top-level RWMutex, with a per-session mutex for message
// mutation and a separate per-session turn mutex for AcquireTurn.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemory creates an empty Memory store with the given idle TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *Memory) Create(_ context.Context, c mmodel.Context) (*mmodel.Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate session id", err)
	}

	now := m.now()
	session := &mmodel.Session{
		ID:        id.String(),
		Context:   c,
		CreatedAt: now,
		UpdatedAt: now,
		TTL:       m.ttl,
	}

	m.mu.Lock()
	m.sessions[session.ID] = &sessionEntry{session: session}
	m.mu.Unlock()

	return session, nil
}

// lookup fetches the entry for id, sweeping it if idle-expired. Returns
// ErrNotFound if absent or just swept.
func (m *Memory) lookup(id string) (*sessionEntry, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, errSessionNotFound(id)
	}

	entry.mu.Lock()
	isExpired := expired(entry.session, m.now())
	entry.mu.Unlock()

	if isExpired {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()

		return nil, errSessionNotFound(id)
	}

	return entry, nil
}

func (m *Memory) Get(_ context.Context, id string) (*mmodel.Session, error) {
	entry, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.session, nil
}

func (m *Memory) Append(_ context.Context, id string, msg mmodel.Message) (*mmodel.Session, error) {
	entry, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	msg.ID = uint64(len(entry.session.Messages)) + 1
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}

	entry.session.Messages = append(entry.session.Messages, msg)
	entry.session.UpdatedAt = m.now()

	return entry.session, nil
}

func (m *Memory) History(_ context.Context, id string, windowSize int) ([]mmodel.Message, error) {
	entry, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return clampWindow(entry.session.Messages, windowSize), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)

	return nil
}

func (m *Memory) AcquireTurn(id string) (func(), error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, errSessionNotFound(id)
	}

	if !entry.turnMu.TryLock() {
		return nil, apperr.New(apperr.KindConflict, "a turn is already in progress for session "+id)
	}

	return entry.turnMu.Unlock, nil
}
