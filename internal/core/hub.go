package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkova/chatline-server/internal/activity"
	"github.com/avolkova/chatline-server/internal/metrics"
	"github.com/avolkova/chatline-server/internal/presence"
	"github.com/avolkova/chatline-server/internal/store"
)

// Options tune hub behavior. Zero values fall back to defaults.
type Options struct {
	// HistoryLimit caps group room history. DM history is always unbounded.
	HistoryLimit int
	// RoomTypingExpiry is the fallback window after which a room typing
	// indicator is considered stopped without an explicit stop event.
	RoomTypingExpiry time.Duration
	// DMTypingExpiry is the fixed window after which a DM typing indicator
	// expires. It is never refreshed by further keystrokes.
	DMTypingExpiry time.Duration
}

const (
	defaultHistoryLimit     = 50
	defaultRoomTypingExpiry = 800 * time.Millisecond
	defaultDMTypingExpiry   = time.Second
)

type registration struct {
	client *Client
	reply  chan error
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub is the event coordinator. A single goroutine (Run) owns the
// connection registry, room membership, and typing state; every inbound
// command is handled as one atomic step. Cross-process invariants (presence
// entries, reaction maps) are the external stores' responsibility.
type Hub struct {
	store     store.MessageStore
	presence  presence.Directory
	publisher activity.Publisher
	log       *zerolog.Logger

	historyLimit     int
	roomTypingExpiry time.Duration
	dmTypingExpiry   time.Duration

	register   chan registration
	unregister chan *Client
	commands   chan clientCommand

	registry *registry
	rooms    map[string]*Room
	typing   *typingTracker
}

// NewHub creates a hub over its collaborator ports.
func NewHub(st store.MessageStore, dir presence.Directory, pub activity.Publisher, logger *zerolog.Logger, opts Options) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if pub == nil {
		pub = activity.NopPublisher{}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.RoomTypingExpiry <= 0 {
		opts.RoomTypingExpiry = defaultRoomTypingExpiry
	}
	if opts.DMTypingExpiry <= 0 {
		opts.DMTypingExpiry = defaultDMTypingExpiry
	}

	return &Hub{
		store:            st,
		presence:         dir,
		publisher:        pub,
		log:              logger,
		historyLimit:     opts.HistoryLimit,
		roomTypingExpiry: opts.RoomTypingExpiry,
		dmTypingExpiry:   opts.DMTypingExpiry,
		register:         make(chan registration),
		unregister:       make(chan *Client),
		commands:         make(chan clientCommand),
		registry:         newRegistry(),
		rooms:            make(map[string]*Room),
		typing:           newTypingTracker(),
	}
}

// RegisterClient connects a session. It blocks until the hub has registered
// the session, set presence, and sent the presence snapshot, so the caller
// learns whether the connect succeeded.
func (h *Hub) RegisterClient(c *Client) error {
	reply := make(chan error, 1)
	h.register <- registration{client: c, reply: reply}
	return <-reply
}

// UnregisterClient disconnects a session. Safe to call for sessions whose
// registration failed.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Run processes events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case reg := <-h.register:
			reg.reply <- h.handleRegister(ctx, reg.client)
		case c := <-h.unregister:
			h.handleUnregister(ctx, c)
		case cc := <-h.commands:
			h.handleCommand(ctx, cc.client, cc.cmd)
		case key := <-h.typing.expired:
			h.handleTypingExpired(key)
		case <-ctx.Done():
			return
		}
	}
}

// pump forwards one session's commands into the hub loop.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) error {
	if c.UserID == "" {
		return coreError(ErrCodeInvalidInput, "identifier is required")
	}

	first := h.registry.add(c)

	if err := h.presence.Set(ctx, c.UserID, presence.StatusOnline); err != nil {
		h.registry.remove(c)
		h.log.Error().Err(err).Str("user", c.UserID).Msg("presence set failed")
		return coreError(ErrCodeStoreUnavailable, "presence store unavailable")
	}

	snapshot, err := h.presence.All(ctx)
	if err != nil {
		h.registry.remove(c)
		if first {
			// Best-effort unwind; the entry was ours.
			if delErr := h.presence.Delete(ctx, c.UserID); delErr != nil {
				h.log.Warn().Err(delErr).Str("user", c.UserID).Msg("presence unwind failed")
			}
		}
		h.log.Error().Err(err).Str("user", c.UserID).Msg("presence snapshot failed")
		return coreError(ErrCodeStoreUnavailable, "presence store unavailable")
	}

	go h.pump(ctx, c)

	c.send(&Event{Kind: EventUsersSync, Presence: snapshot})

	if first {
		online := &Event{Kind: EventUserOnline, User: c.UserID, Status: presence.StatusOnline}
		h.registry.each(func(other *Client) {
			if other != c {
				other.send(online)
			}
		})
	}

	metrics.ActiveConnections.Inc()
	h.log.Info().Str("user", c.UserID).Str("session", c.ID).Msg("session connected")
	return nil
}

func (h *Hub) handleUnregister(ctx context.Context, c *Client) {
	removed, last := h.registry.remove(c)
	if !removed {
		return
	}

	for key, room := range h.rooms {
		if room.RemoveClient(c) && room.Empty() {
			delete(h.rooms, key)
		}
	}

	if last {
		for _, key := range h.typing.cancelUser(c.UserID) {
			if key.dm {
				continue
			}
			if room, ok := h.rooms[key.scope]; ok {
				room.BroadcastExcept(&Event{Kind: EventStopTyping, Room: key.scope, User: key.user}, key.user)
			}
		}

		// The session is already gone; a presence store hiccup here is
		// logged, not surfaced.
		if err := h.presence.Delete(ctx, c.UserID); err != nil {
			h.log.Error().Err(err).Str("user", c.UserID).Msg("presence delete failed")
		}

		offline := &Event{Kind: EventUserOffline, User: c.UserID}
		h.registry.each(func(other *Client) {
			other.send(offline)
		})
	}

	metrics.ActiveConnections.Dec()
	h.log.Info().Str("user", c.UserID).Str("session", c.ID).Bool("last", last).Msg("session disconnected")
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinRoom:
		h.joinRoom(ctx, c, cmd.Room)
	case CommandRoomMessage:
		h.roomMessage(ctx, c, cmd.Room, cmd.Text)
	case CommandReactMessage:
		h.reactMessage(ctx, c, cmd.MessageID, cmd.Emoji)
	case CommandTyping:
		h.roomTyping(c, cmd.Room)
	case CommandStopTyping:
		h.roomStopTyping(c, cmd.Room)
	case CommandDMMessage:
		h.dmMessage(ctx, c, cmd.OtherID, cmd.Text)
	case CommandDMTyping:
		h.dmTyping(c, cmd.OtherID)
	case CommandDMReaction:
		h.dmReaction(ctx, c, cmd.MessageID, cmd.Emoji, cmd.OtherID)
	case CommandLoadDMs:
		h.loadDMs(ctx, c, cmd.OtherID)
	default:
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

func (h *Hub) joinRoom(ctx context.Context, c *Client, roomKey string) {
	if roomKey == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "room is required")})
		return
	}

	room, ok := h.rooms[roomKey]
	if !ok {
		room = NewRoom(roomKey)
		h.rooms[roomKey] = room
	}
	room.AddClient(c)
	c.rooms[roomKey] = struct{}{}

	history, err := h.store.ListByKey(ctx, roomKey, h.historyLimit)
	if err != nil {
		// Join fails wholesale: a session that got no history snapshot has
		// no base state to apply deltas to.
		room.RemoveClient(c)
		delete(c.rooms, roomKey)
		if room.Empty() {
			delete(h.rooms, roomKey)
		}
		h.log.Error().Err(err).Str("room", roomKey).Msg("history load failed")
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeStoreUnavailable, "message store unavailable")})
		return
	}

	c.send(&Event{Kind: EventPreviousMessages, Room: roomKey, Messages: history})
}

func (h *Hub) roomMessage(ctx context.Context, c *Client, roomKey, text string) {
	if roomKey == "" || strings.TrimSpace(text) == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "room and non-empty text are required")})
		return
	}
	room, ok := h.rooms[roomKey]
	if !ok || !c.inRoom(roomKey) {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeNotInRoom, "join the room before sending")})
		return
	}

	msg, err := h.store.Create(ctx, roomKey, c.UserID, text)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomKey).Msg("message persist failed")
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeStoreUnavailable, "message store unavailable")})
		return
	}

	// Everyone joined at send time gets the echo, the sender included;
	// client state derives from the server echo alone.
	room.Broadcast(&Event{Kind: EventRoomMessage, Room: roomKey, Message: msg})

	metrics.RoomMessages.Inc()
	h.publishActivity(ctx, activity.Event{
		Type:    activity.TypeRoomMessage,
		UserID:  c.UserID,
		RoomKey: roomKey,
		Text:    text,
		At:      msg.CreatedAt,
	})
}

func (h *Hub) reactMessage(ctx context.Context, c *Client, messageID, emoji string) {
	if emoji == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "emoji is required")})
		return
	}
	if _, err := uuid.Parse(messageID); err != nil {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "malformed message id")})
		return
	}

	msg, err := h.store.ToggleReaction(ctx, messageID, emoji, c.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.send(&Event{Kind: EventError, Error: coreError(ErrCodeNotFound, "message not found")})
			return
		}
		h.log.Error().Err(err).Str("message_id", messageID).Msg("reaction toggle failed")
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeStoreUnavailable, "message store unavailable")})
		return
	}

	metrics.ReactionToggles.Inc()

	if room, ok := h.rooms[msg.RoomKey]; ok {
		room.Broadcast(&Event{
			Kind:      EventUpdateReaction,
			Room:      msg.RoomKey,
			MessageID: msg.ID,
			Reactions: msg.Reactions,
		})
	}
}

func (h *Hub) roomTyping(c *Client, roomKey string) {
	room, ok := h.rooms[roomKey]
	if !ok || !c.inRoom(roomKey) {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeNotInRoom, "join the room before typing")})
		return
	}

	room.BroadcastExcept(&Event{Kind: EventTyping, Room: roomKey, User: c.UserID}, c.UserID)
	// Sliding fallback window: if the client never sends an explicit stop,
	// the indicator is expired from here.
	h.typing.reset(typingKey{user: c.UserID, scope: roomKey}, h.roomTypingExpiry)
}

func (h *Hub) roomStopTyping(c *Client, roomKey string) {
	room, ok := h.rooms[roomKey]
	if !ok || !c.inRoom(roomKey) {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeNotInRoom, "join the room before typing")})
		return
	}

	h.typing.cancel(typingKey{user: c.UserID, scope: roomKey})
	room.BroadcastExcept(&Event{Kind: EventStopTyping, Room: roomKey, User: c.UserID}, c.UserID)
}

func (h *Hub) handleTypingExpired(key typingKey) {
	if !h.typing.take(key) {
		return
	}
	if key.dm {
		// DM indicators expire silently; the recipient clears its own
		// display. No refresh, no stop event — the flicker under rapid
		// typing is a known tradeoff.
		return
	}
	if room, ok := h.rooms[key.scope]; ok {
		room.BroadcastExcept(&Event{Kind: EventStopTyping, Room: key.scope, User: key.user}, key.user)
	}
}

func (h *Hub) dmMessage(ctx context.Context, c *Client, toID, text string) {
	if toID == "" || strings.TrimSpace(text) == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "recipient and non-empty text are required")})
		return
	}

	pairKey := PairKey(c.UserID, toID)
	msg, err := h.store.Create(ctx, pairKey, c.UserID, text)
	if err != nil {
		h.log.Error().Err(err).Str("pair", pairKey).Msg("dm persist failed")
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeStoreUnavailable, "message store unavailable")})
		return
	}

	ev := &Event{Kind: EventDMMessage, Message: msg, OtherID: toID}

	// Sender sessions first, so the author sees the canonical id and
	// timestamp; then every live recipient session (possibly none).
	for _, s := range h.registry.get(c.UserID) {
		s.send(ev)
	}
	if toID != c.UserID {
		for _, s := range h.registry.get(toID) {
			s.send(ev)
		}
	}

	metrics.DMMessages.Inc()
	h.publishActivity(ctx, activity.Event{
		Type:    activity.TypeDMMessage,
		UserID:  c.UserID,
		RoomKey: pairKey,
		Text:    text,
		At:      msg.CreatedAt,
	})
}

func (h *Hub) dmTyping(c *Client, toID string) {
	if toID == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "recipient is required")})
		return
	}

	key := typingKey{user: c.UserID, scope: PairKey(c.UserID, toID), dm: true}
	// A fixed window per indicator: while the timer is armed, further
	// keystrokes are suppressed rather than refreshing it.
	if !h.typing.arm(key, h.dmTypingExpiry) {
		return
	}

	ev := &Event{Kind: EventDMTyping, User: c.UserID}
	for _, s := range h.registry.get(toID) {
		s.send(ev)
	}
}

func (h *Hub) dmReaction(ctx context.Context, c *Client, messageID, emoji, toID string) {
	if toID == "" || emoji == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "recipient and emoji are required")})
		return
	}
	if _, err := uuid.Parse(messageID); err != nil {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "malformed message id")})
		return
	}

	msg, err := h.store.ToggleReaction(ctx, messageID, emoji, c.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.send(&Event{Kind: EventError, Error: coreError(ErrCodeNotFound, "message not found")})
			return
		}
		h.log.Error().Err(err).Str("message_id", messageID).Msg("dm reaction toggle failed")
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeStoreUnavailable, "message store unavailable")})
		return
	}

	metrics.ReactionToggles.Inc()

	// Each side receives the counterpart's identifier as OtherID.
	actorEv := &Event{Kind: EventDMReactionUpdate, MessageID: msg.ID, Reactions: msg.Reactions, OtherID: toID}
	for _, s := range h.registry.get(c.UserID) {
		s.send(actorEv)
	}
	if toID != c.UserID {
		otherEv := &Event{Kind: EventDMReactionUpdate, MessageID: msg.ID, Reactions: msg.Reactions, OtherID: c.UserID}
		for _, s := range h.registry.get(toID) {
			s.send(otherEv)
		}
	}
}

func (h *Hub) loadDMs(ctx context.Context, c *Client, otherID string) {
	if otherID == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidInput, "other identifier is required")})
		return
	}

	history, err := h.store.ListByKey(ctx, PairKey(c.UserID, otherID), 0)
	if err != nil {
		h.log.Error().Err(err).Str("other", otherID).Msg("dm history load failed")
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeStoreUnavailable, "message store unavailable")})
		return
	}

	c.send(&Event{Kind: EventPreviousDMs, OtherID: otherID, Messages: history})
}

// publishActivity emits a best-effort activity event. Failures are counted
// and logged, never surfaced.
func (h *Hub) publishActivity(ctx context.Context, ev activity.Event) {
	if err := h.publisher.Publish(ctx, ev); err != nil {
		metrics.ActivityPublishFailures.Inc()
		h.log.Warn().Err(err).Str("type", ev.Type).Msg("activity publish failed")
	}
}
