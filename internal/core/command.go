package core

// CommandKind describes what the session wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the session to the group room and replies
	// with recent history.
	CommandJoinRoom CommandKind = iota
	// CommandRoomMessage persists and broadcasts a group room message.
	CommandRoomMessage
	// CommandReactMessage toggles an emoji reaction on a room message.
	CommandReactMessage
	// CommandTyping relays a typing signal to the room.
	CommandTyping
	// CommandStopTyping relays an explicit stop-typing signal to the room.
	CommandStopTyping
	// CommandDMMessage persists and delivers a direct message.
	CommandDMMessage
	// CommandDMTyping relays a typing signal to a DM counterpart.
	CommandDMTyping
	// CommandDMReaction toggles an emoji reaction on a DM message.
	CommandDMReaction
	// CommandLoadDMs replies with the full DM history for a pair.
	CommandLoadDMs
)

// Command represents an action requested by a session.
type Command struct {
	Kind      CommandKind
	Room      string
	Text      string
	MessageID string
	Emoji     string
	OtherID   string
}
