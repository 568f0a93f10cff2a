package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Channel groups the sessions connected to one named room.
type Channel struct {
	name string
	hub  *Hub
	log  zerolog.Logger

	mu sync.RWMutex
	// sessions holds every connected session, claimed or not.
	sessions map[*Session]struct{}
	// online indexes claimed sessions by nick.
	online map[string]*Session
}

func newChannel(h *Hub, name string) *Channel {
	return &Channel{
		name:     name,
		hub:      h,
		log:      h.log.With().Str("channel", name).Logger(),
		sessions: make(map[*Session]struct{}),
		online:   make(map[string]*Session),
	}
}

// Name returns the channel name. The front channel has an empty name.
func (c *Channel) Name() string {
	return c.name
}

// Online returns the claimed sessions of the channel.
func (c *Channel) Online() []Peer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peersLocked()
}

// Info returns the persisted channel metadata, such as the topic.
func (c *Channel) Info(ctx context.Context) (map[string]string, error) {
	h, err := c.hub.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return h.ChannelInfo(ctx, c.name)
}

// Connect screens a new session and sends it the online list and channel info.
func (c *Channel) Connect(ctx context.Context, s *Session) {
	log := c.sessionLog(s)
	log.Info().Msg("new connection")

	h, err := c.hub.store.Acquire(ctx)
	if err != nil {
		c.respond(s, Result{}, err)
		return
	}
	defer h.Release()

	if !c.admit(ctx, h, s, "") {
		return
	}

	c.mu.Lock()
	if s.closed {
		c.mu.Unlock()
		return
	}
	c.sessions[s] = struct{}{}
	c.emit(s, &Event{Kind: EventOnline, Peers: c.peersLocked()})
	c.mu.Unlock()

	info, err := h.ChannelInfo(ctx, c.name)
	if err != nil {
		c.respond(s, Result{}, err)
		return
	}
	update := make(Update, len(info))
	for k, v := range info {
		update[k] = v
	}
	c.emit(s, &Event{Kind: EventUpdate, Update: update})
}

// Handle processes one inbound event for s. Events of one session must be
// handled sequentially.
func (c *Channel) Handle(ctx context.Context, s *Session, in Inbound) {
	log := c.sessionLog(s)
	log.Debug().Stringer("kind", in.Kind).Str("command", in.Command).Msg("received event")

	res, err := c.handle(ctx, s, in)
	if err == nil && res.followup != nil {
		res, err = res.followup(ctx)
	}
	c.respond(s, res, err)
}

// handle runs one event while holding a scoped store handle.
func (c *Channel) handle(ctx context.Context, s *Session, in Inbound) (Result, error) {
	h, err := c.hub.store.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer h.Release()

	if !c.admit(ctx, h, s, s.Nick()) {
		return Result{}, nil
	}

	switch in.Kind {
	case InboundJoin:
		return c.handleJoin(ctx, h, s, in)
	case InboundMessage:
		return c.handleMessage(s, in), nil
	case InboundCommand:
		return c.dispatch(ctx, h, s, in.Command, in.Params)
	default:
		c.sessionLog(s).Debug().Stringer("kind", in.Kind).Msg("unknown inbound kind")
		return Result{}, nil
	}
}

// Disconnect removes s from the channel. It is safe to call while other
// events of s are still being handled; they will not re-add it.
func (c *Channel) Disconnect(s *Session) {
	log := c.sessionLog(s)

	c.mu.Lock()
	s.closed = true
	delete(c.sessions, s)
	nick := s.Nick()
	if nick != "" {
		if c.online[nick] == s {
			delete(c.online, nick)
		} else {
			log.Warn().Str("nick", nick).Msg("disconnected user was not found")
		}
	}
	c.mu.Unlock()

	if nick != "" {
		c.broadcast(&Event{Kind: EventLeft, Peer: Peer{ID: s.ID, Nick: nick}})
	}
	log.Info().Msg("disconnected")
}

func (c *Channel) handleMessage(s *Session, in Inbound) Result {
	nick := s.Nick()
	if nick == "" {
		c.sessionLog(s).Debug().Msg("message from unclaimed session")
		return Result{}
	}
	if in.Malformed {
		c.sessionLog(s).Debug().Msg("invalid message")
		return Result{}
	}
	c.broadcast(&Event{Kind: EventMessage, Notice: Notice{
		Type:    NoticeChat,
		Nick:    nick,
		Message: truncate(in.Text, c.hub.settings.MessageLimit),
	}})
	return Result{OK: true}
}

// claim commits nick for s if no other online session holds it.
// renamed reports whether s was already claimed.
func (c *Channel) claim(s *Session, nick string) (renamed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.closed {
		return false, errSessionClosed
	}
	if holder, ok := c.online[nick]; ok && holder != s {
		return false, errNickInUse
	}
	if old := s.Nick(); old != "" {
		delete(c.online, old)
		renamed = true
	}
	c.online[nick] = s
	c.sessions[s] = struct{}{}
	s.setNick(nick)
	return renamed, nil
}

// lookup returns the online session holding nick, or nil.
func (c *Channel) lookup(nick string) *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online[nick]
}

// broadcast delivers ev to every connected session of the channel.
func (c *Channel) broadcast(ev *Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.log.Debug().Str("event", ev.Kind.String()).Int("sessions", len(c.sessions)).Msg("channel emit")
	for s := range c.sessions {
		if !s.send(ev) {
			c.log.Warn().Str("session", s.ID).Str("event", ev.Kind.String()).Msg("dropping event for slow session")
		}
	}
}

// emit delivers ev to s only.
func (c *Channel) emit(s *Session, ev *Event) {
	if !s.send(ev) {
		c.log.Warn().Str("session", s.ID).Str("event", ev.Kind.String()).Msg("dropping event for slow session")
	}
}

// respond turns the outcome of an event into a private notice.
func (c *Channel) respond(s *Session, res Result, err error) {
	if err != nil {
		c.sessionLog(s).Error().Err(err).Msg("event failed")
		res = c.hub.failure(ErrCodeInternal)
	}
	if res.Message == "" {
		return
	}
	notice := Notice{Message: res.Message}
	if !res.OK {
		notice.Type = NoticeError
		notice.Code = res.Code
	}
	c.emit(s, &Event{Kind: EventMessage, Notice: notice})
}

func (c *Channel) peersLocked() []Peer {
	peers := make([]Peer, 0, len(c.online))
	for _, s := range c.online {
		peers = append(peers, s.peer())
	}
	return peers
}

func (c *Channel) sessionLog(s *Session) *zerolog.Logger {
	l := c.log.With().Str("session", s.ID).Str("remote_addr", s.RemoteAddr).Str("nick", s.Nick()).Logger()
	return &l
}
