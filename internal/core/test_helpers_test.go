package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avolkova/chatline-server/internal/activity"
	"github.com/avolkova/chatline-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, window time.Duration) {
	t.Helper()

	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received", kind)
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// memStore is an in-memory store.MessageStore for hub tests. Timestamps are
// strictly increasing so ordering assertions are deterministic.
type memStore struct {
	mu        sync.Mutex
	seq       int64
	byID      map[string]*store.Message
	byKey     map[string][]*store.Message
	createErr error
	listErr   error
	toggleErr error
}

func newMemStore() *memStore {
	return &memStore{
		byID:  make(map[string]*store.Message),
		byKey: make(map[string][]*store.Message),
	}
}

func (m *memStore) Create(_ context.Context, roomKey, userID, text string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return nil, m.createErr
	}

	m.seq++
	msg := &store.Message{
		ID:        testID(m.seq),
		RoomKey:   roomKey,
		UserID:    userID,
		Text:      text,
		Reactions: store.ReactionMap{},
		CreatedAt: time.Unix(1700000000, 0).UTC().Add(time.Duration(m.seq) * time.Second),
	}
	m.byID[msg.ID] = msg
	m.byKey[roomKey] = append(m.byKey[roomKey], msg)
	return copyMessage(msg), nil
}

func (m *memStore) ListByKey(_ context.Context, roomKey string, limit int) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	msgs := m.byKey[roomKey]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*store.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, copyMessage(msg))
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyMessage(msg), nil
}

func (m *memStore) ToggleReaction(_ context.Context, id, emoji, userID string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.toggleErr != nil {
		return nil, m.toggleErr
	}

	msg, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	msg.Reactions.Toggle(emoji, userID)
	msg.Version++
	return copyMessage(msg), nil
}

func (m *memStore) Close() error { return nil }

func copyMessage(msg *store.Message) *store.Message {
	out := *msg
	out.Reactions = msg.Reactions.Clone()
	return &out
}

// testID produces a fixed-format UUID so reaction commands can round-trip
// through the hub's message-id validation.
func testID(seq int64) string {
	const digits = "0123456789abcdef"
	id := []byte("00000000-0000-4000-8000-000000000000")
	for i := len(id) - 1; i >= 0 && seq > 0; i-- {
		if id[i] == '-' {
			continue
		}
		id[i] = digits[seq%16]
		seq /= 16
	}
	return string(id)
}

// capturePublisher records published activity events and can be forced to
// fail.
type capturePublisher struct {
	mu     sync.Mutex
	events []activity.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, ev activity.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() {}

func (p *capturePublisher) published() []activity.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]activity.Event(nil), p.events...)
}
