package core

import (
	"context"

	"github.com/vovakirdan/presence-hub/internal/store"
)

// admit checks the session's address and nick against global and channel bans.
// A banned session gets an error notice and is kicked; admit then returns false
// and the triggering event must be dropped.
func (c *Channel) admit(ctx context.Context, dir store.BanStore, s *Session, nick string) bool {
	banned, err := dir.IsBanned(ctx, c.name, s.RemoteAddr, nick)
	if err != nil {
		c.respond(s, Result{}, err)
		return false
	}
	c.sessionLog(s).Debug().Bool("banned", banned).Msg("ban check")
	if !banned {
		return true
	}

	c.respond(s, c.hub.failure(ErrCodeBanned), nil)
	s.kick()
	return false
}
