package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/presence-hub/internal/store"
)

// handleJoin claims a first nick for an unclaimed session.
func (c *Channel) handleJoin(ctx context.Context, dir store.Directory, s *Session, in Inbound) (Result, error) {
	if s.Claimed() {
		c.sessionLog(s).Debug().Msg("join request, but user already online")
		return Result{}, nil
	}

	nick := c.hub.normalizeNick(in.Nick)
	if nick != "" && !c.admit(ctx, dir, s, nick) {
		c.sessionLog(s).Debug().Str("desired", nick).Msg("join request, but nick is banned")
		return Result{}, nil
	}
	return c.negotiate(ctx, dir, s, nick, in.Password)
}

// negotiate claims nick for s, or a generated one when nick is empty or
// unusable by an unclaimed session. Fallbacks are bounded by MaxNickAttempts.
func (c *Channel) negotiate(ctx context.Context, dir store.Directory, s *Session, nick, password string) (Result, error) {
	log := c.sessionLog(s)

	for attempt := 0; attempt < c.hub.settings.MaxNickAttempts; attempt++ {
		if nick == "" {
			next, err := dir.NextNick(ctx)
			if err != nil {
				return Result{}, fmt.Errorf("next nick: %w", err)
			}
			log.Debug().Str("fallback", next).Msg("nick fallback")
			nick, password = next, ""
		}

		res, done, err := c.tryNick(ctx, dir, s, nick, password)
		if err != nil || done {
			return res, err
		}
		nick, password = "", ""
	}

	log.Warn().Int("attempts", c.hub.settings.MaxNickAttempts).Msg("nick negotiation exhausted")
	return c.hub.failure(ErrCodeNegotiationFailed), nil
}

// tryNick runs one negotiation step. done is false when an unclaimed session
// must fall back to a generated nick.
func (c *Channel) tryNick(ctx context.Context, dir store.Directory, s *Session, nick, password string) (res Result, done bool, err error) {
	log := c.sessionLog(s)
	claimed := s.Claimed()

	u, err := dir.FindUser(ctx, nick)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Debug().Str("desired", nick).Msg("nick does not exist, creating a new nick")
		u, err = dir.CreateUser(ctx, nick, s.RemoteAddr, c.hub.settings.DefaultAccessLevel)
		if err != nil {
			return Result{}, true, fmt.Errorf("create user: %w", err)
		}
		password = ""
	case err != nil:
		return Result{}, true, fmt.Errorf("find user: %w", err)
	case u.Verified:
		switch {
		case password != "" && c.hub.accounts.CheckPassword(u, password):
			log.Debug().Str("desired", nick).Msg("nick password was correct")
		case password != "":
			log.Debug().Str("desired", nick).Msg("nick password was incorrect")
			if claimed {
				return c.hub.failure(ErrCodeInvalidLogin), true, nil
			}
			return Result{}, false, nil
		case claimed:
			return c.hub.failure(ErrCodeNickVerified), true, nil
		default:
			return Result{}, false, nil
		}
	default:
		log.Debug().Str("desired", nick).Msg("nick was not registered")
		password = ""
	}

	return c.attempt(ctx, dir, s, u, password)
}

// attempt commits the claim of u.Nick for s.
func (c *Channel) attempt(ctx context.Context, dir store.UserStore, s *Session, u *store.User, password string) (Result, bool, error) {
	log := c.sessionLog(s)

	if holder := c.lookup(u.Nick); holder != nil && holder != s {
		log.Debug().Str("desired", u.Nick).Msg("someone else is using that nick right now")
		if s.Claimed() {
			return c.hub.failure(ErrCodeAlreadyBeingUsed), true, nil
		}
		return Result{}, false, nil
	}

	if err := dir.SetRemoteAddr(ctx, u.ID, s.RemoteAddr); err != nil {
		return Result{}, true, fmt.Errorf("set remote addr: %w", err)
	}

	renamed, err := c.claim(s, u.Nick)
	switch {
	case errors.Is(err, errSessionClosed):
		log.Debug().Msg("session closed during negotiation")
		return Result{}, true, nil
	case errors.Is(err, errNickInUse):
		log.Debug().Str("desired", u.Nick).Msg("lost nick race")
		if s.Claimed() {
			return c.hub.failure(ErrCodeAlreadyBeingUsed), true, nil
		}
		return Result{}, false, nil
	case err != nil:
		return Result{}, true, err
	}

	var echoed any
	if password != "" {
		echoed = password
	}
	c.emit(s, &Event{Kind: EventUpdate, Update: Update{
		"id":           s.ID,
		"nick":         u.Nick,
		"access_level": u.AccessLevel,
		"password":     echoed,
	}})

	peer := Peer{ID: s.ID, Nick: u.Nick}
	if renamed {
		c.broadcast(&Event{Kind: EventNick, Peer: peer})
	} else {
		log.Debug().Msg("successful join")
		c.broadcast(&Event{Kind: EventJoin, Peer: peer})
	}
	return Result{OK: true}, true, nil
}
