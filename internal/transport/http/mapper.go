package http

import (
	"encoding/json"

	"github.com/vovakirdan/presence-hub/internal/core"
	"github.com/vovakirdan/presence-hub/internal/proto"
)

func inboundToCore(inbound proto.Inbound) (core.Inbound, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if hasData(inbound.Data) {
			if err := json.Unmarshal(inbound.Data, &join); err != nil {
				return core.Inbound{}, &proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "invalid join payload"}
			}
		}
		return core.Inbound{Kind: core.InboundJoin, Nick: join.Nick, Password: join.Password}, nil
	case proto.InboundTypeMessage:
		var text string
		if !hasData(inbound.Data) {
			return core.Inbound{Kind: core.InboundMessage, Malformed: true}, nil
		}
		if err := json.Unmarshal(inbound.Data, &text); err != nil {
			return core.Inbound{Kind: core.InboundMessage, Malformed: true}, nil
		}
		return core.Inbound{Kind: core.InboundMessage, Text: text}, nil
	case proto.InboundTypeCommand:
		var cmd proto.CommandData
		if err := json.Unmarshal(inbound.Data, &cmd); err != nil {
			return core.Inbound{}, &proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "invalid command payload"}
		}
		return core.Inbound{Kind: core.InboundCommand, Command: cmd.Name, Params: cmd.Params}, nil
	default:
		return core.Inbound{}, &proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func hasData(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String()}

	switch event.Kind {
	case core.EventOnline:
		peers := make([]proto.Peer, 0, len(event.Peers))
		for _, p := range event.Peers {
			peers = append(peers, proto.Peer{ID: p.ID, Nick: p.Nick})
		}
		out.Data = peers
	case core.EventUpdate:
		update := map[string]any(event.Update)
		if update == nil {
			update = map[string]any{}
		}
		out.Data = update
	case core.EventJoin, core.EventLeft, core.EventNick:
		out.Data = proto.Peer{ID: event.Peer.ID, Nick: event.Peer.Nick}
	case core.EventMessage:
		out.Data = proto.EventMessage{
			Type:    event.Notice.Type,
			Code:    event.Notice.Code,
			Message: event.Notice.Message,
			Nick:    event.Notice.Nick,
			From:    event.Notice.From,
			To:      event.Notice.To,
		}
	}
	return out
}
