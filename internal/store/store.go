package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested message does not exist.
var ErrNotFound = errors.New("message not found")

// Message is a persisted chat message. Everything except Reactions is
// immutable once created; messages are never deleted.
type Message struct {
	ID        string
	RoomKey   string
	UserID    string
	Text      string
	Reactions ReactionMap
	Version   int64
	CreatedAt time.Time
}

// MessageStore handles message persistence. The store mints message ids and
// creation timestamps so that clients only ever see server-canonical values.
type MessageStore interface {
	// Create persists a new message under roomKey and returns it with its
	// generated id and timestamp.
	Create(ctx context.Context, roomKey, userID, text string) (*Message, error)

	// ListByKey returns messages for a key ascending by creation time.
	// limit <= 0 means unbounded; otherwise the limit most recent messages
	// are returned, still ascending.
	ListByKey(ctx context.Context, roomKey string, limit int) ([]*Message, error)

	// GetByID retrieves a single message. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id string) (*Message, error)

	// ToggleReaction flips userID's reaction under emoji on the message and
	// returns the updated message. The write is serialized per message id at
	// the store layer; concurrent togglers never lose updates.
	// Returns ErrNotFound if the message does not exist.
	ToggleReaction(ctx context.Context, id, emoji, userID string) (*Message, error)

	// Close closes the underlying database connection.
	Close() error
}
