package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventOnline lists the claimed sessions of a channel to a newcomer.
	EventOnline EventKind = iota
	// EventUpdate carries partial state: identity, access level, password, topic.
	EventUpdate
	// EventJoin notifies a channel that a session claimed its first nick.
	EventJoin
	// EventLeft notifies a channel that a claimed session disconnected.
	EventLeft
	// EventNick notifies a channel that a session renamed itself.
	EventNick
	// EventMessage carries chat, action, personal and notice messages.
	EventMessage
)

var eventNames = [...]string{
	EventOnline:  "online",
	EventUpdate:  "update",
	EventJoin:    "join",
	EventLeft:    "left",
	EventNick:    "nick",
	EventMessage: "message",
}

// String returns the wire name of the event.
func (k EventKind) String() string {
	if int(k) < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Message types carried by EventMessage.
const (
	NoticeError    = "error-message"
	NoticeChat     = "chat-message"
	NoticeAction   = "action-message"
	NoticePersonal = "personal-message"
)

// Peer identifies a session within a channel.
type Peer struct {
	ID   string
	Nick string
}

// Update is a partial state update. Keys follow the wire format
// (id, nick, access_level, password, topic, ...). A nil value is sent as null.
type Update map[string]any

// Notice is the payload of EventMessage.
type Notice struct {
	Type    string // one of the Notice* constants, empty for plain notices
	Code    string // set on error notices
	Message string
	Nick    string // author of chat and action messages
	From    string // personal messages
	To      string
}

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind   EventKind
	Peers  []Peer // EventOnline
	Peer   Peer   // EventJoin, EventLeft, EventNick
	Update Update // EventUpdate
	Notice Notice // EventMessage
}
