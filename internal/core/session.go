package core

import "sync"

// sessionQueueSize bounds the outbound events buffered per session.
const sessionQueueSize = 64

// Session is one live connection as seen by the core layer.
type Session struct {
	ID         string
	RemoteAddr string
	// Events carries outbound events to the transport. It is never closed.
	Events chan *Event

	mu   sync.Mutex
	nick string

	// closed is guarded by the owning channel's mutex.
	closed bool

	kicked   chan struct{}
	kickOnce sync.Once
}

// NewSession constructs an unclaimed session with an initialized event queue.
func NewSession(id, remoteAddr string) *Session {
	return &Session{
		ID:         id,
		RemoteAddr: remoteAddr,
		Events:     make(chan *Event, sessionQueueSize),
		kicked:     make(chan struct{}),
	}
}

// Nick returns the claimed nick, or "" while unclaimed.
func (s *Session) Nick() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nick
}

// Claimed reports whether the session holds a nick.
func (s *Session) Claimed() bool {
	return s.Nick() != ""
}

// Kicked is closed when the core demands the connection be terminated.
func (s *Session) Kicked() <-chan struct{} {
	return s.kicked
}

func (s *Session) setNick(nick string) {
	s.mu.Lock()
	s.nick = nick
	s.mu.Unlock()
}

func (s *Session) kick() {
	s.kickOnce.Do(func() { close(s.kicked) })
}

// send queues an event without blocking. Returns false if the queue was full.
func (s *Session) send(ev *Event) bool {
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) peer() Peer {
	return Peer{ID: s.ID, Nick: s.Nick()}
}
