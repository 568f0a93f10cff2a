package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vovakirdan/presence-hub/internal/auth"
	"github.com/vovakirdan/presence-hub/internal/store"
)

type (
	noParams struct{}

	nickParams struct {
		Nick string `param:"nick" validate:"required"`
	}
	messageParams struct {
		Message string `param:"message" validate:"required"`
	}
	loginParams struct {
		Nick     string `param:"nick" validate:"required"`
		Password string `param:"password" validate:"required"`
	}
	registerParams struct {
		Email    string `param:"email" validate:"required"`
		Password string `param:"initial_password"`
	}
	registerWithPasswordParams struct {
		Email    string `param:"email" validate:"required"`
		Password string `param:"initial_password" validate:"required"`
	}
	verifyParams struct {
		Code     string `param:"verification_code" validate:"required"`
		Password string `param:"initial_password" validate:"required"`
	}
	banParams struct {
		ID string `param:"id" validate:"required"`
	}
	accessParams struct {
		Nick        string `param:"nick" validate:"required"`
		AccessLevel string `param:"access_level" validate:"required"`
	}
	findIPParams struct {
		RemoteAddr string `param:"remote_addr" validate:"required"`
	}
	topicParams struct {
		Topic string `param:"topic" validate:"required"`
	}
	pmParams struct {
		Nick    string `param:"nick" validate:"required"`
		Message string `param:"message" validate:"required"`
	}
)

// Access ceilings of privileged commands.
const (
	moderatorLevel = 1
	adminLevel     = 0
)

func (h *Hub) buildCommands() map[string]*command {
	list := []*command{
		define("nick", h.cmdNick),
		define("me", h.cmdMe),
		define("login", h.cmdLogin),
		define("unregister", h.cmdUnregister),
		define("verify", h.cmdVerify),
		define("banlist", h.cmdBanlist).restrictTo(moderatorLevel),
		define("channel_banlist", h.cmdChannelBanlist).restrictTo(moderatorLevel),
		define("ban", h.cmdBan).restrictTo(moderatorLevel),
		define("unban", h.cmdUnban).restrictTo(moderatorLevel),
		define("channel_ban", h.cmdChannelBan).restrictTo(moderatorLevel),
		define("channel_unban", h.cmdChannelUnban).restrictTo(moderatorLevel),
		define("access", h.cmdAccess).restrictTo(adminLevel),
		define("whoami", h.cmdWhoami),
		define("whois", h.cmdWhois).restrictTo(adminLevel),
		define("find_ip", h.cmdFindIP).restrictTo(adminLevel),
		define("topic", h.cmdTopic).restrictTo(adminLevel),
		define("pm", h.cmdPM),
	}
	if h.VerifyEnabled() {
		list = append(list, define("register", h.cmdRegister))
	} else {
		list = append(list, define("register", func(ctx context.Context, cc *commandContext, p *registerWithPasswordParams) (Result, error) {
			return h.cmdRegister(ctx, cc, &registerParams{Email: p.Email, Password: p.Password})
		}))
	}

	commands := make(map[string]*command, len(list))
	for _, cmd := range list {
		commands[cmd.name] = cmd
	}
	return commands
}

func (h *Hub) cmdNick(ctx context.Context, cc *commandContext, p *nickParams) (Result, error) {
	nick := h.normalizeNick(p.Nick)
	if nick == "" {
		return h.failure(ErrCodeInvalidCommandParams), nil
	}
	return cc.channel.negotiate(ctx, cc.dir, cc.session, nick, "")
}

func (h *Hub) cmdMe(_ context.Context, cc *commandContext, p *messageParams) (Result, error) {
	cc.channel.broadcast(&Event{Kind: EventMessage, Notice: Notice{
		Type:    NoticeAction,
		Message: cc.session.Nick() + " " + truncate(p.Message, h.settings.MessageLimit),
	}})
	return Result{OK: true}, nil
}

func (h *Hub) cmdLogin(ctx context.Context, cc *commandContext, p *loginParams) (Result, error) {
	nick := h.normalizeNick(p.Nick)
	u, err := cc.dir.FindUser(ctx, nick)
	if errors.Is(err, store.ErrNotFound) {
		return h.failure(ErrCodeNickNotVerified), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("find login target: %w", err)
	}
	if !u.Verified {
		return h.failure(ErrCodeNickNotVerified), nil
	}
	return cc.channel.negotiate(ctx, cc.dir, cc.session, nick, p.Password)
}

func (h *Hub) cmdUnregister(ctx context.Context, cc *commandContext, _ *noParams) (Result, error) {
	if err := h.accounts.Unregister(ctx, cc.dir, cc.user); err != nil {
		return h.accountFailure(err)
	}
	return h.success(msgUnregistered), nil
}

func (h *Hub) cmdRegister(ctx context.Context, cc *commandContext, p *registerParams) (Result, error) {
	pending, err := h.accounts.Register(ctx, cc.dir, cc.user, p.Email, p.Password)
	if err != nil {
		return h.accountFailure(err)
	}
	if pending != nil {
		return later(func(ctx context.Context) (Result, error) {
			if err := h.accounts.Deliver(ctx, pending); err != nil {
				return Result{}, err
			}
			return h.success(msgVerificationSent, pending.To), nil
		}), nil
	}
	cc.channel.emit(cc.session, &Event{Kind: EventUpdate, Update: Update{"password": p.Password}})
	return h.success(msgRegistered), nil
}

func (h *Hub) cmdVerify(ctx context.Context, cc *commandContext, p *verifyParams) (Result, error) {
	if err := h.accounts.Verify(ctx, cc.dir, cc.user, p.Code, p.Password); err != nil {
		return h.accountFailure(err)
	}
	cc.channel.emit(cc.session, &Event{Kind: EventUpdate, Update: Update{"password": p.Password}})
	return h.success(msgVerified), nil
}

func (h *Hub) cmdBanlist(ctx context.Context, cc *commandContext, _ *noParams) (Result, error) {
	return h.banlist(ctx, cc, nil)
}

func (h *Hub) cmdChannelBanlist(ctx context.Context, cc *commandContext, _ *noParams) (Result, error) {
	name := cc.channel.name
	return h.banlist(ctx, cc, &name)
}

func (h *Hub) banlist(ctx context.Context, cc *commandContext, channel *string) (Result, error) {
	list, err := cc.dir.Banlist(ctx, channel)
	if err != nil {
		return Result{}, fmt.Errorf("banlist: %w", err)
	}
	switch {
	case channel == nil && len(list) == 0:
		return h.success(msgBanlistEmpty), nil
	case channel == nil:
		return h.success(msgBanlist, strings.Join(list, ", ")), nil
	case len(list) == 0:
		return h.success(msgChannelBanlistEmpty), nil
	default:
		return h.success(msgChannelBanlist, strings.Join(list, ", ")), nil
	}
}

func (h *Hub) cmdBan(ctx context.Context, cc *commandContext, p *banParams) (Result, error) {
	if err := cc.dir.Ban(ctx, p.ID, nil); err != nil {
		return Result{}, fmt.Errorf("ban: %w", err)
	}
	return h.success(msgBanned, p.ID), nil
}

func (h *Hub) cmdUnban(ctx context.Context, cc *commandContext, p *banParams) (Result, error) {
	removed, err := cc.dir.Unban(ctx, p.ID, nil)
	if err != nil {
		return Result{}, fmt.Errorf("unban: %w", err)
	}
	if !removed {
		return h.failure(ErrCodeNotBanned, p.ID), nil
	}
	return h.success(msgUnbanned, p.ID), nil
}

func (h *Hub) cmdChannelBan(ctx context.Context, cc *commandContext, p *banParams) (Result, error) {
	name := cc.channel.name
	if err := cc.dir.Ban(ctx, p.ID, &name); err != nil {
		return Result{}, fmt.Errorf("channel ban: %w", err)
	}
	return h.success(msgChannelBanned, p.ID), nil
}

func (h *Hub) cmdChannelUnban(ctx context.Context, cc *commandContext, p *banParams) (Result, error) {
	name := cc.channel.name
	removed, err := cc.dir.Unban(ctx, p.ID, &name)
	if err != nil {
		return Result{}, fmt.Errorf("channel unban: %w", err)
	}
	if !removed {
		return h.failure(ErrCodeNotBanned, p.ID), nil
	}
	return h.success(msgChannelUnbanned, p.ID), nil
}

func (h *Hub) cmdAccess(ctx context.Context, cc *commandContext, p *accessParams) (Result, error) {
	level, err := strconv.Atoi(strings.TrimSpace(p.AccessLevel))
	if err != nil || level < 0 {
		return h.failure(ErrCodeInvalidCommandParams), nil
	}

	target, err := cc.dir.FindUser(ctx, p.Nick)
	if errors.Is(err, store.ErrNotFound) {
		return h.failure(ErrCodeUserDoesntExist, p.Nick), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("find access target: %w", err)
	}
	if err := cc.dir.SetAccessLevel(ctx, target.ID, level); err != nil {
		return Result{}, fmt.Errorf("set access level: %w", err)
	}

	if s := cc.channel.lookup(target.Nick); s != nil {
		cc.channel.emit(s, &Event{Kind: EventUpdate, Update: Update{"access_level": level}})
	}
	return h.success(msgAccessChanged, target.Nick, strconv.Itoa(level)), nil
}

func (h *Hub) cmdWhoami(_ context.Context, cc *commandContext, _ *noParams) (Result, error) {
	return h.success(msgWhoami, cc.user.Nick, strconv.Itoa(cc.user.AccessLevel), cc.session.RemoteAddr), nil
}

func (h *Hub) cmdWhois(ctx context.Context, cc *commandContext, p *nickParams) (Result, error) {
	target, err := cc.dir.FindUser(ctx, p.Nick)
	if errors.Is(err, store.ErrNotFound) {
		return h.failure(ErrCodeUserDoesntExist, p.Nick), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("find whois target: %w", err)
	}
	return h.success(msgWhois, target.Nick, strconv.Itoa(target.AccessLevel), target.RemoteAddr), nil
}

func (h *Hub) cmdFindIP(ctx context.Context, cc *commandContext, p *findIPParams) (Result, error) {
	nicks, err := cc.dir.FindNicksByAddr(ctx, p.RemoteAddr)
	if err != nil {
		return Result{}, fmt.Errorf("find nicks by addr: %w", err)
	}
	if len(nicks) == 0 {
		return h.success(msgFindIPEmpty, p.RemoteAddr), nil
	}
	return h.success(msgFindIP, p.RemoteAddr, strings.Join(nicks, ", ")), nil
}

func (h *Hub) cmdTopic(ctx context.Context, cc *commandContext, p *topicParams) (Result, error) {
	topic := truncate(p.Topic, h.settings.MessageLimit)
	if err := cc.dir.SetChannelInfo(ctx, cc.channel.name, "topic", topic); err != nil {
		return Result{}, fmt.Errorf("set topic: %w", err)
	}
	cc.channel.broadcast(&Event{Kind: EventUpdate, Update: Update{"topic": topic}})
	return Result{OK: true}, nil
}

func (h *Hub) cmdPM(_ context.Context, cc *commandContext, p *pmParams) (Result, error) {
	target := cc.channel.lookup(p.Nick)
	if target == nil {
		return h.failure(ErrCodePMOffline), nil
	}
	ev := &Event{Kind: EventMessage, Notice: Notice{
		Type:    NoticePersonal,
		From:    cc.session.Nick(),
		To:      p.Nick,
		Message: truncate(p.Message, h.settings.MessageLimit),
	}}
	cc.channel.emit(cc.session, ev)
	if target != cc.session {
		cc.channel.emit(target, ev)
	}
	return Result{OK: true}, nil
}

// accountFailure maps account service errors to notices.
func (h *Hub) accountFailure(err error) (Result, error) {
	switch {
	case errors.Is(err, auth.ErrAlreadyRegistered):
		return h.failure(ErrCodeAlreadyRegistered), nil
	case errors.Is(err, auth.ErrNotRegistered):
		return h.failure(ErrCodeNotRegistered), nil
	case errors.Is(err, auth.ErrInvalidEmail):
		return h.failure(ErrCodeInvalidEmail), nil
	case errors.Is(err, auth.ErrInvalidPassword):
		return h.failure(ErrCodeInvalidPassword), nil
	case errors.Is(err, auth.ErrInvalidVerificationCode):
		return h.failure(ErrCodeInvalidVerificationCode), nil
	default:
		return Result{}, err
	}
}
