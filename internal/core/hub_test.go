package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkova/chatline-server/internal/presence"
)

const testRoom = "room3"

func newTestHub(t *testing.T, st *memStore, dir presence.Directory, pub *capturePublisher, opts Options) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if dir == nil {
		dir = presence.NewMemory()
	}
	var hub *Hub
	if pub != nil {
		hub = NewHub(st, dir, pub, nil, opts)
	} else {
		hub = NewHub(st, dir, nil, nil, opts)
	}
	go hub.Run(ctx)
	return hub
}

func connect(t *testing.T, hub *Hub, sessionID, userID string) *Client {
	t.Helper()

	c := NewClient(sessionID, userID)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register %s: %v", userID, err)
	}
	return c
}

func join(t *testing.T, c *Client) {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoinRoom, Room: testRoom}
	mustEvent(t, c.Events, EventPreviousMessages)
}

func TestConnectSendsPresenceSnapshot(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")
	sync := mustEvent(t, alice.Events, EventUsersSync)
	if len(sync.Presence) != 1 || sync.Presence["alice"] != presence.StatusOnline {
		t.Fatalf("unexpected snapshot: %+v", sync.Presence)
	}

	bob := connect(t, hub, "s2", "bob")
	sync = mustEvent(t, bob.Events, EventUsersSync)
	if len(sync.Presence) != 2 {
		t.Fatalf("expected both identifiers in snapshot, got %+v", sync.Presence)
	}

	online := mustEvent(t, alice.Events, EventUserOnline)
	if online.User != "bob" || online.Status != presence.StatusOnline {
		t.Fatalf("unexpected online delta: %+v", online)
	}
}

func TestConnectRejectsEmptyIdentifier(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	c := NewClient("s1", "")
	err := hub.RegisterClient(c)
	var coreErr *CoreError
	if !errors.As(err, &coreErr) || coreErr.Code != ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestConnectFailsWhenPresenceUnavailable(t *testing.T) {
	hub := newTestHub(t, newMemStore(), failingDirectory{}, nil, Options{})

	c := NewClient("s1", "alice")
	err := hub.RegisterClient(c)
	var coreErr *CoreError
	if !errors.As(err, &coreErr) || coreErr.Code != ErrCodeStoreUnavailable {
		t.Fatalf("expected store_unavailable, got %v", err)
	}
}

func TestRoomMessageBroadcastIncludesSender(t *testing.T) {
	st := newMemStore()
	pub := &capturePublisher{}
	hub := newTestHub(t, st, nil, pub, Options{})

	alice := connect(t, hub, "s1", "alice")
	bob := connect(t, hub, "s2", "bob")
	join(t, alice)
	join(t, bob)

	alice.Commands <- &Command{Kind: CommandRoomMessage, Room: testRoom, Text: "hi"}

	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventRoomMessage)
		if ev.Message.UserID != "alice" || ev.Message.Text != "hi" {
			t.Fatalf("unexpected message for %s: %+v", c.UserID, ev.Message)
		}
		if ev.Message.ID == "" || ev.Message.CreatedAt.IsZero() {
			t.Fatalf("message missing canonical id/timestamp: %+v", ev.Message)
		}
	}

	published := pub.published()
	if len(published) != 1 || published[0].Type != "message" || published[0].UserID != "alice" {
		t.Fatalf("unexpected activity events: %+v", published)
	}
}

func TestRoomMessageRequiresJoin(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")
	alice.Commands <- &Command{Kind: CommandRoomMessage, Room: testRoom, Text: "hi"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room, got %+v", ev)
	}
}

func TestRoomMessageRejectsWhitespaceText(t *testing.T) {
	st := newMemStore()
	hub := newTestHub(t, st, nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")
	join(t, alice)
	alice.Commands <- &Command{Kind: CommandRoomMessage, Room: testRoom, Text: "   "}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input, got %+v", ev)
	}
	if len(st.byID) != 0 {
		t.Fatalf("rejected message must not be persisted")
	}
}

func TestRoomMessageNotBroadcastWhenStoreFails(t *testing.T) {
	st := newMemStore()
	hub := newTestHub(t, st, nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")
	bob := connect(t, hub, "s2", "bob")
	join(t, alice)
	join(t, bob)

	st.mu.Lock()
	st.createErr = errors.New("store down")
	st.mu.Unlock()

	alice.Commands <- &Command{Kind: CommandRoomMessage, Room: testRoom, Text: "hi"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeStoreUnavailable {
		t.Fatalf("expected store_unavailable, got %+v", ev)
	}
	mustNoEvent(t, bob.Events, EventRoomMessage, 100*time.Millisecond)
}

func TestJoinRoomReturnsCappedAscendingHistory(t *testing.T) {
	st := newMemStore()
	hub := newTestHub(t, st, nil, nil, Options{HistoryLimit: 50})

	ctx := context.Background()
	for i := 0; i < 60; i++ {
		if _, err := st.Create(ctx, testRoom, "alice", "msg"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	bob := connect(t, hub, "s1", "bob")
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: testRoom}

	ev := mustEvent(t, bob.Events, EventPreviousMessages)
	if len(ev.Messages) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(ev.Messages))
	}
	for i := 1; i < len(ev.Messages); i++ {
		if ev.Messages[i].CreatedAt.Before(ev.Messages[i-1].CreatedAt) {
			t.Fatalf("history not ascending at %d", i)
		}
	}
}

func TestReactionToggleParity(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")
	bob := connect(t, hub, "s2", "bob")
	join(t, alice)
	join(t, bob)

	alice.Commands <- &Command{Kind: CommandRoomMessage, Room: testRoom, Text: "hi"}
	msgEv := mustEvent(t, bob.Events, EventRoomMessage)

	bob.Commands <- &Command{Kind: CommandReactMessage, MessageID: msgEv.Message.ID, Emoji: "👍"}
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventUpdateReaction)
		users := ev.Reactions["👍"]
		if len(users) != 1 || users[0] != "bob" {
			t.Fatalf("unexpected reactions for %s: %+v", c.UserID, ev.Reactions)
		}
	}

	// Identical toggle restores the prior state and drops the emoji key.
	bob.Commands <- &Command{Kind: CommandReactMessage, MessageID: msgEv.Message.ID, Emoji: "👍"}
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventUpdateReaction)
		if len(ev.Reactions) != 0 {
			t.Fatalf("expected empty reaction map, got %+v", ev.Reactions)
		}
	}
}

func TestReactionMalformedAndMissingIDs(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")

	alice.Commands <- &Command{Kind: CommandReactMessage, MessageID: "nonsense", Emoji: "👍"}
	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input, got %+v", ev)
	}

	alice.Commands <- &Command{Kind: CommandReactMessage, MessageID: testID(999), Emoji: "👍"}
	ev = mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotFound {
		t.Fatalf("expected not_found, got %+v", ev)
	}
}

func TestDMDeliveredToBothPartiesAndOfflineHistory(t *testing.T) {
	st := newMemStore()
	hub := newTestHub(t, st, nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")

	// Bob is offline; only alice gets the echo now.
	alice.Commands <- &Command{Kind: CommandDMMessage, OtherID: "bob", Text: "yo"}
	echo := mustEvent(t, alice.Events, EventDMMessage)
	if echo.Message.UserID != "alice" || echo.OtherID != "bob" || echo.Message.Text != "yo" {
		t.Fatalf("unexpected dm echo: %+v", echo)
	}
	sentAt := echo.Message.CreatedAt

	bob := connect(t, hub, "s2", "bob")
	bob.Commands <- &Command{Kind: CommandLoadDMs, OtherID: "alice"}

	ev := mustEvent(t, bob.Events, EventPreviousDMs)
	if ev.OtherID != "alice" || len(ev.Messages) != 1 {
		t.Fatalf("unexpected dm history: %+v", ev)
	}
	got := ev.Messages[0]
	if got.UserID != "alice" || got.Text != "yo" || !got.CreatedAt.Equal(sentAt) {
		t.Fatalf("dm history lost fidelity: %+v", got)
	}
}

func TestDMFansOutToAllRecipientSessions(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")
	bobPhone := connect(t, hub, "s2", "bob")
	bobLaptop := connect(t, hub, "s3", "bob")

	alice.Commands <- &Command{Kind: CommandDMMessage, OtherID: "bob", Text: "yo"}

	for _, c := range []*Client{alice, bobPhone, bobLaptop} {
		ev := mustEvent(t, c.Events, EventDMMessage)
		if ev.Message.UserID != "alice" || ev.OtherID != "bob" {
			t.Fatalf("unexpected dm for session %s: %+v", c.ID, ev)
		}
	}
}

func TestDMReactionReportsCounterpartPerSide(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")
	bob := connect(t, hub, "s2", "bob")

	alice.Commands <- &Command{Kind: CommandDMMessage, OtherID: "bob", Text: "yo"}
	msgEv := mustEvent(t, bob.Events, EventDMMessage)

	bob.Commands <- &Command{Kind: CommandDMReaction, MessageID: msgEv.Message.ID, Emoji: "👍", OtherID: "alice"}

	bobView := mustEvent(t, bob.Events, EventDMReactionUpdate)
	if bobView.OtherID != "alice" || len(bobView.Reactions["👍"]) != 1 {
		t.Fatalf("unexpected actor-side update: %+v", bobView)
	}
	aliceView := mustEvent(t, alice.Events, EventDMReactionUpdate)
	if aliceView.OtherID != "bob" {
		t.Fatalf("unexpected counterpart-side update: %+v", aliceView)
	}
}

func TestDisconnectBroadcastsOfflineAndPrunesSnapshot(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	alice := connect(t, hub, "s1", "alice")
	bob := connect(t, hub, "s2", "bob")

	hub.UnregisterClient(alice)

	off := mustEvent(t, bob.Events, EventUserOffline)
	if off.User != "alice" {
		t.Fatalf("unexpected offline delta: %+v", off)
	}

	charlie := connect(t, hub, "s3", "charlie")
	sync := mustEvent(t, charlie.Events, EventUsersSync)
	if _, ok := sync.Presence["alice"]; ok {
		t.Fatalf("snapshot still contains alice: %+v", sync.Presence)
	}
	if len(sync.Presence) != 2 {
		t.Fatalf("expected bob and charlie online, got %+v", sync.Presence)
	}
}

func TestSecondSessionDoesNotFlapPresence(t *testing.T) {
	hub := newTestHub(t, newMemStore(), nil, nil, Options{})

	bobPhone := connect(t, hub, "s1", "bob")
	alice := connect(t, hub, "s2", "alice")
	mustEvent(t, bobPhone.Events, EventUserOnline)

	// A second bob session must not re-announce bob.
	bobLaptop := connect(t, hub, "s3", "bob")
	mustNoEvent(t, alice.Events, EventUserOnline, 100*time.Millisecond)

	// Dropping one of two sessions must not announce bob offline.
	hub.UnregisterClient(bobPhone)
	mustNoEvent(t, alice.Events, EventUserOffline, 100*time.Millisecond)

	// Dropping the last one must.
	hub.UnregisterClient(bobLaptop)
	off := mustEvent(t, alice.Events, EventUserOffline)
	if off.User != "bob" {
		t.Fatalf("unexpected offline delta: %+v", off)
	}
}

func TestActivityPublisherFailureDoesNotFailSend(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	hub := newTestHub(t, newMemStore(), nil, pub, Options{})

	alice := connect(t, hub, "s1", "alice")
	join(t, alice)

	alice.Commands <- &Command{Kind: CommandRoomMessage, Room: testRoom, Text: "hi"}
	ev := mustEvent(t, alice.Events, EventRoomMessage)
	if ev.Message.Text != "hi" {
		t.Fatalf("message lost when publisher failed: %+v", ev)
	}
}

// failingDirectory simulates an unavailable presence store.
type failingDirectory struct{}

func (failingDirectory) Set(context.Context, string, string) error { return errors.New("presence down") }
func (failingDirectory) Delete(context.Context, string) error      { return errors.New("presence down") }
func (failingDirectory) All(context.Context) (map[string]string, error) {
	return nil, errors.New("presence down")
}
