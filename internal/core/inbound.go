package core

// InboundKind describes what the session wants to do.
type InboundKind int

const (
	// InboundJoin claims a first nick, optionally with a password.
	InboundJoin InboundKind = iota
	// InboundMessage broadcasts a chat message.
	InboundMessage
	// InboundCommand invokes a named command.
	InboundCommand
)

func (k InboundKind) String() string {
	switch k {
	case InboundJoin:
		return "join"
	case InboundMessage:
		return "message"
	case InboundCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Inbound is one decoded event received from a session.
type Inbound struct {
	Kind InboundKind

	// InboundJoin
	Nick     string
	Password string

	// InboundMessage. Malformed is set when the payload was not a string.
	Text      string
	Malformed bool

	// InboundCommand
	Command string
	Params  map[string]any
}
