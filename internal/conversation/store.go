// Package conversation implements the Conversation Store of spec.md
// §4.E: a keyed append-only message log per session, with context,
// idle-TTL sweep, and per-session turn serialization. Grounded on the
// teacher's repository-interface-plus-in-memory-test-double convention
// (e.g. organization_repository.go paired with its mock).
package conversation

import (
	"context"
	"time"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// Store is the Conversation Store's contract. The default implementation
// is in-memory (Memory); a SQLite-backed variant (SQLite) is an allowed
// persistent alternative sharing the Repository's embedded backend, per
// spec.md §4.E.
type Store interface {
	// Create starts a new session scoped to c and returns it.
	Create(ctx context.Context, c mmodel.Context) (*mmodel.Session, error)

	// Get returns the session for id, sweeping it first if idle-expired.
	Get(ctx context.Context, id string) (*mmodel.Session, error)

	// Append adds msg to the session's log, assigning the next monotonic
	// message id, and returns the updated session.
	Append(ctx context.Context, id string, msg mmodel.Message) (*mmodel.Session, error)

	// History returns the last windowSize messages in insertion order.
	History(ctx context.Context, id string, windowSize int) ([]mmodel.Message, error)

	// Delete removes a session outright.
	Delete(ctx context.Context, id string) error

	// AcquireTurn serializes one user turn per session: a second caller
	// attempting to acquire a turn already held by another caller gets
	// ErrConflict rather than blocking, per spec.md §7's "concurrent
	// session turn" error kind. Callers must invoke the returned release
	// func exactly once, including on early turn failure.
	AcquireTurn(id string) (release func(), err error)
}

// clampWindow returns the last min(windowSize, len(messages)) messages
// (I6). windowSize == 0 returns no messages, not the full history.
func clampWindow(messages []mmodel.Message, windowSize int) []mmodel.Message {
	if windowSize < 0 || windowSize >= len(messages) {
		return messages
	}

	return messages[len(messages)-windowSize:]
}

func expired(s *mmodel.Session, now time.Time) bool {
	return s.Expired(now)
}

func errSessionNotFound(id string) error {
	return apperr.New(apperr.KindNotFound, "no conversation session with id "+id)
}
