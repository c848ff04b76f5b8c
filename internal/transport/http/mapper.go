package http

import (
	"encoding/json"

	"github.com/avolkova/chatline-server/internal/core"
	"github.com/avolkova/chatline-server/internal/proto"
	"github.com/avolkova/chatline-server/internal/store"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var data proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.RoomID == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidInput, Msg: "roomId is required"}, nil
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: data.RoomID}, nil, nil

	case proto.InboundTypeMessage:
		var data proto.MessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.RoomID == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidInput, Msg: "roomId is required"}, nil
		}
		return &core.Command{Kind: core.CommandRoomMessage, Room: data.RoomID, Text: data.Text}, nil, nil

	case proto.InboundTypeReactMessage:
		var data proto.ReactMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandReactMessage, MessageID: data.MessageID, Emoji: data.Emoji}, nil, nil

	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandTyping, Room: data.RoomID}, nil, nil

	case proto.InboundTypeStopTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandStopTyping, Room: data.RoomID}, nil, nil

	case proto.InboundTypeDMMessage:
		var data proto.DMMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandDMMessage, OtherID: data.ToUserID, Text: data.Text}, nil, nil

	case proto.InboundTypeDMTyping:
		var data proto.DMTypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandDMTyping, OtherID: data.ToUserID}, nil, nil

	case proto.InboundTypeDMReaction:
		var data proto.DMReactionData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:      core.CommandDMReaction,
			MessageID: data.MessageID,
			Emoji:     data.Emoji,
			OtherID:   data.ToUserID,
		}, nil, nil

	case proto.InboundTypeLoadDMs:
		var data proto.LoadDMsData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandLoadDMs, OtherID: data.OtherUserID}, nil, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}, nil
	}
}

// outboundFromEvent renders a core event for one receiving session.
// viewerID matters for DM history, where toUserId depends on which side of
// the pair is looking.
func outboundFromEvent(viewerID string, event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventUsersSync:
		return proto.Outbound{Type: "event", Event: proto.EventUsersSync, Data: event.Presence}

	case core.EventUserOnline:
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventUserOnline,
			Data:  proto.UserStatus{UserID: event.User, Status: event.Status},
		}

	case core.EventUserOffline:
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventUserOffline,
			Data:  proto.UserStatus{UserID: event.User},
		}

	case core.EventPreviousMessages:
		messages := make([]proto.RoomMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, roomMessageFromStore(msg))
		}
		return proto.Outbound{Type: "event", Event: proto.EventPreviousMessages, Data: messages}

	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventMessage,
			Data:  roomMessageFromStore(event.Message),
		}

	case core.EventUpdateReaction:
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventUpdateReaction,
			Data: proto.ReactionUpdate{
				MessageID: event.MessageID,
				Reactions: reactionsFromStore(event.Reactions),
			},
		}

	case core.EventTyping:
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventTyping,
			Data:  proto.TypingNotice{UserID: event.User},
		}

	case core.EventStopTyping:
		return proto.Outbound{Type: "event", Event: proto.EventStopTyping}

	case core.EventPreviousDMs:
		messages := make([]proto.DMMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			toID := event.OtherID
			if msg.UserID != viewerID {
				toID = viewerID
			}
			messages = append(messages, proto.DMMessage{
				ID:         msg.ID,
				FromUserID: msg.UserID,
				ToUserID:   toID,
				Text:       msg.Text,
				Timestamp:  msg.CreatedAt,
				Reactions:  reactionsFromStore(msg.Reactions),
			})
		}
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventPreviousDMs,
			Data:  proto.PreviousDMs{OtherUserID: event.OtherID, Messages: messages},
		}

	case core.EventDMMessage:
		msg := event.Message
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventDMMessage,
			Data: proto.DMMessage{
				ID:         msg.ID,
				FromUserID: msg.UserID,
				ToUserID:   event.OtherID,
				Text:       msg.Text,
				Timestamp:  msg.CreatedAt,
				Reactions:  reactionsFromStore(msg.Reactions),
			},
		}

	case core.EventDMTyping:
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventDMTyping,
			Data:  proto.DMTypingNotice{FromUserID: event.User},
		}

	case core.EventDMReactionUpdate:
		return proto.Outbound{
			Type:  "event",
			Event: proto.EventDMReactionUpdate,
			Data: proto.DMReactionUpdate{
				MessageID:   event.MessageID,
				Reactions:   reactionsFromStore(event.Reactions),
				OtherUserID: event.OtherID,
			},
		}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: "error", Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  "error",
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	default:
		return proto.Outbound{Type: "event"}
	}
}

func roomMessageFromStore(msg *store.Message) proto.RoomMessage {
	return proto.RoomMessage{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt,
		Reactions: reactionsFromStore(msg.Reactions),
	}
}

// reactionsFromStore keeps the wire shape `{}` rather than `null` for empty
// maps, matching what clients expect.
func reactionsFromStore(m store.ReactionMap) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}
