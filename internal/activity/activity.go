package activity

import (
	"context"
	"time"
)

// Event types published to the activity log.
const (
	TypeRoomMessage = "message"
	TypeDMMessage   = "dmMessage"
)

// Event describes a user action for the downstream analytics pipeline.
type Event struct {
	Type    string    `json:"type"`
	UserID  string    `json:"userId"`
	RoomKey string    `json:"roomId,omitempty"`
	Text    string    `json:"text,omitempty"`
	At      time.Time `json:"timestamp"`
}

// Publisher is a best-effort output port. Callers never await delivery and
// never retry; a failed publish is logged by the caller and dropped.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}
