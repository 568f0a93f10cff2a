package core

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/vovakirdan/presence-hub/internal/store"
)

// command is one entry of the closed command table. Each command owns a typed
// parameter struct; fields tagged `validate:"required"` must be non-empty strings.
type command struct {
	name string
	// ceiling is the least privileged access level allowed to run the command.
	// nil means any claimed session may run it.
	ceiling   *int
	newParams func() any
	run       func(ctx context.Context, cc *commandContext, params any) (Result, error)
}

// commandContext is what a handler gets to work with.
type commandContext struct {
	channel *Channel
	dir     store.Directory
	session *Session
	user    *store.User
}

func define[P any](name string, fn func(ctx context.Context, cc *commandContext, p *P) (Result, error)) *command {
	return &command{
		name:      name,
		newParams: func() any { return new(P) },
		run: func(ctx context.Context, cc *commandContext, params any) (Result, error) {
			return fn(ctx, cc, params.(*P))
		},
	}
}

func (cmd *command) restrictTo(level int) *command {
	cmd.ceiling = &level
	return cmd
}

func (cmd *command) allows(level int) bool {
	return cmd.ceiling == nil || level <= *cmd.ceiling
}

// dispatch runs a named command for a claimed session.
func (c *Channel) dispatch(ctx context.Context, dir store.Directory, s *Session, name string, raw map[string]any) (Result, error) {
	log := c.sessionLog(s)
	if !s.Claimed() {
		log.Debug().Str("command", name).Msg("command from unclaimed session")
		return Result{}, nil
	}

	cmd, ok := c.hub.commands[name]
	if !ok {
		return c.hub.failure(ErrCodeInvalidCommand), nil
	}

	params := cmd.newParams()
	if err := c.hub.decodeParams(raw, params); err != nil {
		log.Debug().Err(err).Str("command", name).Msg("invalid command params")
		return c.hub.failure(ErrCodeInvalidCommandParams), nil
	}

	u, err := dir.FindUser(ctx, s.Nick())
	if err != nil {
		return Result{}, fmt.Errorf("find acting user: %w", err)
	}
	if !cmd.allows(u.AccessLevel) {
		log.Debug().Str("command", name).Int("access_level", u.AccessLevel).Msg("command access denied")
		return c.hub.failure(ErrCodeInvalidCommandAccess), nil
	}

	return cmd.run(ctx, &commandContext{channel: c, dir: dir, session: s, user: u}, params)
}

// decodeParams copies raw into the typed struct out. Values must already be
// strings; nothing is coerced.
func (h *Hub) decodeParams(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "param",
		Result:  out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return err
	}
	return h.validate.Struct(out)
}
