package contract

import (
	"context"

	"nau-assistant/pkg/store"
)

// SessionRepository stores ordered message logs by session id. Backends assign
// Seq on Append; an unknown id reads as an empty log.
type SessionRepository interface {
	// Create registers an empty session. Creating an existing id is a no-op.
	Create(ctx context.Context, sessionID string) error
	// Append stores msg with the next sequence number and returns it as stored.
	Append(ctx context.Context, sessionID string, msg store.Message) (store.Message, error)
	Get(ctx context.Context, sessionID string) ([]store.Message, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
	// Delete removes the session. Deleting an unknown id succeeds.
	Delete(ctx context.Context, sessionID string) error
	// List returns one summary per session holding at least one user message.
	List(ctx context.Context) ([]store.Summary, error)
}
