package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin    = "join"
	InboundTypeMessage = "message"
	InboundTypeCommand = "command"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// JoinData claims a first nick. Both fields are optional.
type JoinData struct {
	Nick     string `json:"nick,omitempty"`
	Password string `json:"password,omitempty"`
}

// CommandData invokes a named command. Param values are expected to be strings.
type CommandData struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Peer is the payload of join, left and nick events and an entry of the online list.
type Peer struct {
	ID   string `json:"id"`
	Nick string `json:"nick"`
}

// EventMessage carries chat, action, personal and notice messages.
type EventMessage struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Nick    string `json:"nick,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Protocol error codes.
const (
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeRateLimited    = "rate_limited"
)
