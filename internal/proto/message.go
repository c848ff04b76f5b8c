package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound message types.
const (
	InboundTypeJoinRoom     = "joinRoom"
	InboundTypeMessage      = "message"
	InboundTypeReactMessage = "reactMessage"
	InboundTypeTyping       = "typing"
	InboundTypeStopTyping   = "stopTyping"
	InboundTypeDMMessage    = "dmMessage"
	InboundTypeDMTyping     = "dmTyping"
	InboundTypeDMReaction   = "dmReaction"
	InboundTypeLoadDMs      = "loadDMs"
)

// Outbound event names.
const (
	EventUsersSync        = "users:sync"
	EventUserOnline       = "user:online"
	EventUserOffline      = "user:offline"
	EventPreviousMessages = "previousMessages"
	EventMessage          = "message"
	EventUpdateReaction   = "updateReaction"
	EventTyping           = "typing"
	EventStopTyping       = "stopTyping"
	EventPreviousDMs      = "previousDMs"
	EventDMMessage        = "dmMessage"
	EventDMTyping         = "dmTyping"
	EventDMReactionUpdate = "dmReactionUpdate"
)

// JoinRoomData requests to join the group room.
type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

// MessageData is a group chat message from the client.
type MessageData struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// ReactMessageData toggles a reaction on a room message.
type ReactMessageData struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// TypingData signals typing activity in the group room.
type TypingData struct {
	RoomID string `json:"roomId"`
}

// DMMessageData is a direct message from the client.
type DMMessageData struct {
	ToUserID string `json:"toUserId"`
	Text     string `json:"text"`
}

// DMTypingData signals typing activity towards a DM counterpart.
type DMTypingData struct {
	ToUserID string `json:"toUserId"`
}

// DMReactionData toggles a reaction on a DM message.
type DMReactionData struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	ToUserID  string `json:"toUserId"`
}

// LoadDMsData requests the DM history with another user.
type LoadDMsData struct {
	OtherUserID string `json:"otherUserId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// UserStatus announces an identifier's presence delta.
type UserStatus struct {
	UserID string `json:"userId"`
	Status string `json:"status,omitempty"`
}

// RoomMessage is the canonical echo of a group room message.
type RoomMessage struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Text      string              `json:"text"`
	Timestamp time.Time           `json:"timestamp"`
	Reactions map[string][]string `json:"reactions"`
}

// ReactionUpdate carries the full updated reaction map of a room message.
type ReactionUpdate struct {
	MessageID string              `json:"messageId"`
	Reactions map[string][]string `json:"reactions"`
}

// TypingNotice names the user currently typing.
type TypingNotice struct {
	UserID string `json:"userId"`
}

// DMTypingNotice names the DM counterpart currently typing.
type DMTypingNotice struct {
	FromUserID string `json:"fromUserId"`
}

// DMMessage is the canonical echo of a direct message, sent to both parties.
type DMMessage struct {
	ID         string              `json:"id"`
	FromUserID string              `json:"fromUserId"`
	ToUserID   string              `json:"toUserId"`
	Text       string              `json:"text"`
	Timestamp  time.Time           `json:"timestamp"`
	Reactions  map[string][]string `json:"reactions"`
}

// PreviousDMs delivers the full DM history with one counterpart.
type PreviousDMs struct {
	OtherUserID string      `json:"otherUserId"`
	Messages    []DMMessage `json:"messages"`
}

// DMReactionUpdate carries the full updated reaction map of a DM message.
// OtherUserID is the counterpart from the receiver's point of view.
type DMReactionUpdate struct {
	MessageID   string              `json:"messageId"`
	Reactions   map[string][]string `json:"reactions"`
	OtherUserID string              `json:"otherUserId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
