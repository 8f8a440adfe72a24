package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// SQLite is the persistent Conversation Store variant, sharing the
// embedded Repository's connection as spec.md §4.E explicitly allows.
// Turn serialization still lives in-process (a per-id sync.Mutex map):
// the lock only ever needs to hold across one server process's handling
// of one turn.
type SQLite struct {
	db      *sql.DB
	ttl     time.Duration
	now     func() time.Time
	turnsMu sync.Mutex
	turns   map[string]*sync.Mutex
}

// NewSQLite opens (creating if necessary) the conversation_sessions
// table on db and returns a ready Store.
func NewSQLite(db *sql.DB, ttl time.Duration) (*SQLite, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS conversation_sessions (
		id TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to ensure conversation_sessions table", err)
	}

	return &SQLite{db: db, ttl: ttl, now: time.Now, turns: make(map[string]*sync.Mutex)}, nil
}

func (s *SQLite) save(ctx context.Context, session *mmodel.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to serialize session", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_sessions (id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, session.ID, payload, session.UpdatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save conversation session", err)
	}

	return nil
}

func (s *SQLite) load(ctx context.Context, id string) (*mmodel.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM conversation_sessions WHERE id = ?`, id)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, errSessionNotFound(id)
		}

		return nil, apperr.Wrap(apperr.KindInternal, "failed to load conversation session", err)
	}

	var session mmodel.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "conversation session payload is not valid JSON", err)
	}

	session.TTL = s.ttl

	if expired(&session, s.now()) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM conversation_sessions WHERE id = ?`, id)

		return nil, errSessionNotFound(id)
	}

	return &session, nil
}

func (s *SQLite) Create(ctx context.Context, c mmodel.Context) (*mmodel.Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate session id", err)
	}

	now := s.now()
	session := &mmodel.Session{
		ID:        id.String(),
		Context:   c,
		CreatedAt: now,
		UpdatedAt: now,
		TTL:       s.ttl,
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*mmodel.Session, error) {
	return s.load(ctx, id)
}

func (s *SQLite) Append(ctx context.Context, id string, msg mmodel.Message) (*mmodel.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	msg.ID = uint64(len(session.Messages)) + 1
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	session.Messages = append(session.Messages, msg)
	session.UpdatedAt = s.now()

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *SQLite) History(ctx context.Context, id string, windowSize int) ([]mmodel.Message, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	return clampWindow(session.Messages, windowSize), nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_sessions WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete conversation session", err)
	}

	return nil
}

func (s *SQLite) AcquireTurn(id string) (func(), error) {
	s.turnsMu.Lock()
	turnMu, ok := s.turns[id]
	if !ok {
		turnMu = &sync.Mutex{}
		s.turns[id] = turnMu
	}
	s.turnsMu.Unlock()

	if !turnMu.TryLock() {
		return nil, apperr.New(apperr.KindConflict, "a turn is already in progress for session "+id)
	}

	return turnMu.Unlock, nil
}
