package http

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/avolkova/chatline-server/internal/core"
	"github.com/avolkova/chatline-server/internal/proto"
	"github.com/avolkova/chatline-server/internal/store"
)

func inbound(t *testing.T, typ string, data any) proto.Inbound {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal inbound data: %v", err)
	}
	return proto.Inbound{Type: typ, Data: raw}
}

func TestInboundToCommandKnownTypes(t *testing.T) {
	tests := []struct {
		name    string
		inbound proto.Inbound
		want    core.Command
	}{
		{
			name:    "joinRoom",
			inbound: inbound(t, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomID: "room3"}),
			want:    core.Command{Kind: core.CommandJoinRoom, Room: "room3"},
		},
		{
			name:    "message",
			inbound: inbound(t, proto.InboundTypeMessage, proto.MessageData{RoomID: "room3", Text: "hi"}),
			want:    core.Command{Kind: core.CommandRoomMessage, Room: "room3", Text: "hi"},
		},
		{
			name:    "reactMessage",
			inbound: inbound(t, proto.InboundTypeReactMessage, proto.ReactMessageData{MessageID: "m1", Emoji: "👍"}),
			want:    core.Command{Kind: core.CommandReactMessage, MessageID: "m1", Emoji: "👍"},
		},
		{
			name:    "dmMessage",
			inbound: inbound(t, proto.InboundTypeDMMessage, proto.DMMessageData{ToUserID: "bob", Text: "yo"}),
			want:    core.Command{Kind: core.CommandDMMessage, OtherID: "bob", Text: "yo"},
		},
		{
			name:    "dmReaction",
			inbound: inbound(t, proto.InboundTypeDMReaction, proto.DMReactionData{MessageID: "m1", Emoji: "👍", ToUserID: "bob"}),
			want:    core.Command{Kind: core.CommandDMReaction, MessageID: "m1", Emoji: "👍", OtherID: "bob"},
		},
		{
			name:    "loadDMs",
			inbound: inbound(t, proto.InboundTypeLoadDMs, proto.LoadDMsData{OtherUserID: "bob"}),
			want:    core.Command{Kind: core.CommandLoadDMs, OtherID: "bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, protoErr, err := inboundToCommand(tt.inbound)
			if err != nil || protoErr != nil {
				t.Fatalf("unexpected errors: %v %v", err, protoErr)
			}
			if *cmd != tt.want {
				t.Fatalf("got %+v, want %+v", *cmd, tt.want)
			}
		})
	}
}

func TestInboundToCommandUnknownType(t *testing.T) {
	_, protoErr, err := inboundToCommand(proto.Inbound{Type: "teleport"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if protoErr == nil || protoErr.Code != core.ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", protoErr)
	}
}

func TestInboundToCommandMissingRoom(t *testing.T) {
	_, protoErr, err := inboundToCommand(inbound(t, proto.InboundTypeJoinRoom, proto.JoinRoomData{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if protoErr == nil || protoErr.Code != core.ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input, got %+v", protoErr)
	}
}

func TestOutboundPreviousDMsMapsDirectionPerViewer(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()
	event := &core.Event{
		Kind:    core.EventPreviousDMs,
		OtherID: "bob",
		Messages: []*store.Message{
			{ID: "m1", RoomKey: "alice_bob", UserID: "alice", Text: "yo", CreatedAt: at},
			{ID: "m2", RoomKey: "alice_bob", UserID: "bob", Text: "hey", CreatedAt: at.Add(time.Second)},
		},
	}

	out := outboundFromEvent("alice", event)
	data, ok := out.Data.(proto.PreviousDMs)
	if !ok {
		t.Fatalf("unexpected payload type %T", out.Data)
	}
	if data.OtherUserID != "bob" || len(data.Messages) != 2 {
		t.Fatalf("unexpected payload: %+v", data)
	}

	if data.Messages[0].FromUserID != "alice" || data.Messages[0].ToUserID != "bob" {
		t.Fatalf("own message mapped wrong: %+v", data.Messages[0])
	}
	if data.Messages[1].FromUserID != "bob" || data.Messages[1].ToUserID != "alice" {
		t.Fatalf("counterpart message mapped wrong: %+v", data.Messages[1])
	}
	if !data.Messages[0].Timestamp.Equal(at) {
		t.Fatalf("timestamp not preserved: %+v", data.Messages[0])
	}
}

func TestOutboundReactionsSerializeAsEmptyObject(t *testing.T) {
	event := &core.Event{
		Kind:    core.EventRoomMessage,
		Message: &store.Message{ID: "m1", RoomKey: "room3", UserID: "alice", Text: "hi"},
	}

	raw, err := json.Marshal(outboundFromEvent("bob", event))
	if err != nil {
		t.Fatalf("marshal outbound: %v", err)
	}
	if strings.Contains(string(raw), `"reactions":null`) {
		t.Fatalf("reactions must encode as {}, got %s", raw)
	}
	if !strings.Contains(string(raw), `"reactions":{}`) {
		t.Fatalf("expected empty reactions object, got %s", raw)
	}
}

func TestOutboundErrorEnvelope(t *testing.T) {
	event := &core.Event{
		Kind:  core.EventError,
		Error: &core.CoreError{Code: core.ErrCodeNotFound, Message: "message not found"},
	}

	out := outboundFromEvent("alice", event)
	if out.Type != "error" || out.Error == nil || out.Error.Code != core.ErrCodeNotFound {
		t.Fatalf("unexpected outbound: %+v", out)
	}
}
