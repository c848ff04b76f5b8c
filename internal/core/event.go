package core

import "github.com/avolkova/chatline-server/internal/store"

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventUsersSync delivers the full presence snapshot to a new session.
	EventUsersSync EventKind = iota
	// EventUserOnline notifies that an identifier came online.
	EventUserOnline
	// EventUserOffline notifies that an identifier went offline.
	EventUserOffline
	// EventPreviousMessages delivers room history upon joining.
	EventPreviousMessages
	// EventRoomMessage notifies room members about a chat message.
	EventRoomMessage
	// EventUpdateReaction carries the full updated reaction map of a room message.
	EventUpdateReaction
	// EventTyping notifies room members that a user started typing.
	EventTyping
	// EventStopTyping notifies room members that a user stopped typing.
	EventStopTyping
	// EventPreviousDMs delivers the full DM history for a pair.
	EventPreviousDMs
	// EventDMMessage delivers a direct message to both parties.
	EventDMMessage
	// EventDMTyping notifies a DM counterpart that the user is typing.
	EventDMTyping
	// EventDMReactionUpdate carries the full updated reaction map of a DM message.
	EventDMReactionUpdate
	// EventError notifies a session about a domain error.
	EventError
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind      EventKind
	Room      string
	User      string
	Status    string
	Presence  map[string]string
	Message   *store.Message
	Messages  []*store.Message
	MessageID string
	Reactions store.ReactionMap
	// OtherID is the DM counterpart from the receiving session's point of
	// view; for EventDMMessage it is the recipient identifier.
	OtherID string
	Error   *CoreError
}
