package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/presence-hub/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndFindUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "10.0.0.1", 3)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == 0 || created.Verified || created.AccessLevel != 3 || created.RemoteAddr != "10.0.0.1" {
		t.Fatalf("unexpected created user: %+v", created)
	}

	found, err := s.FindUser(ctx, "alice")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if found.ID != created.ID || found.Nick != "alice" {
		t.Fatalf("unexpected found user: %+v", found)
	}

	if _, err := s.FindUser(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := s.CreateUser(ctx, "alice", "10.0.0.2", 3); err == nil {
		t.Fatalf("expected duplicate nick to fail")
	}
}

func TestUserUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "bob", "10.0.0.1", 3)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := s.SetRemoteAddr(ctx, u.ID, "10.0.0.9"); err != nil {
		t.Fatalf("set remote addr: %v", err)
	}
	if err := s.SetAccessLevel(ctx, u.ID, 1); err != nil {
		t.Fatalf("set access level: %v", err)
	}
	if err := s.SetCredentials(ctx, u.ID, "bob@example.com", "hash", true); err != nil {
		t.Fatalf("set credentials: %v", err)
	}

	got, err := s.FindUser(ctx, "bob")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if got.RemoteAddr != "10.0.0.9" || got.AccessLevel != 1 || !got.Verified || got.Email != "bob@example.com" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user after updates: %+v", got)
	}

	if err := s.ClearCredentials(ctx, u.ID); err != nil {
		t.Fatalf("clear credentials: %v", err)
	}
	got, err = s.FindUser(ctx, "bob")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if got.Verified || got.PasswordHash != "" || got.Email != "" {
		t.Fatalf("expected cleared credentials, got %+v", got)
	}

	if err := s.SetAccessLevel(ctx, 9999, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestNextNickSkipsVerified(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.NextNick(ctx)
	if err != nil {
		t.Fatalf("next nick: %v", err)
	}
	if first != "guest1" {
		t.Fatalf("expected guest1, got %s", first)
	}

	u, err := s.CreateUser(ctx, "guest2", "", 3)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.SetCredentials(ctx, u.ID, "g@example.com", "hash", true); err != nil {
		t.Fatalf("set credentials: %v", err)
	}

	next, err := s.NextNick(ctx)
	if err != nil {
		t.Fatalf("next nick: %v", err)
	}
	if next != "guest3" {
		t.Fatalf("expected verified guest2 to be skipped, got %s", next)
	}
}

func TestBansByScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lobby := "lobby"

	if err := s.Ban(ctx, "10.0.0.5", nil); err != nil {
		t.Fatalf("global ban: %v", err)
	}
	if err := s.Ban(ctx, "mallory", &lobby); err != nil {
		t.Fatalf("channel ban: %v", err)
	}
	// Idempotent.
	if err := s.Ban(ctx, "mallory", &lobby); err != nil {
		t.Fatalf("repeat channel ban: %v", err)
	}

	tests := []struct {
		name    string
		channel string
		addr    string
		nick    string
		banned  bool
	}{
		{name: "global address anywhere", channel: "other", addr: "10.0.0.5", banned: true},
		{name: "channel nick in channel", channel: "lobby", addr: "10.0.0.6", nick: "mallory", banned: true},
		{name: "channel nick elsewhere", channel: "other", addr: "10.0.0.6", nick: "mallory", banned: false},
		{name: "clean session", channel: "lobby", addr: "10.0.0.7", nick: "alice", banned: false},
		{name: "front channel is not global", channel: "", addr: "10.0.0.6", nick: "mallory", banned: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			banned, err := s.IsBanned(ctx, tt.channel, tt.addr, tt.nick)
			if err != nil {
				t.Fatalf("is banned: %v", err)
			}
			if banned != tt.banned {
				t.Fatalf("expected banned=%v, got %v", tt.banned, banned)
			}
		})
	}

	global, err := s.Banlist(ctx, nil)
	if err != nil {
		t.Fatalf("global banlist: %v", err)
	}
	if strings.Join(global, ",") != "10.0.0.5" {
		t.Fatalf("unexpected global banlist: %v", global)
	}
	channel, err := s.Banlist(ctx, &lobby)
	if err != nil {
		t.Fatalf("channel banlist: %v", err)
	}
	if strings.Join(channel, ",") != "mallory" {
		t.Fatalf("unexpected channel banlist: %v", channel)
	}

	removed, err := s.Unban(ctx, "mallory", nil)
	if err != nil {
		t.Fatalf("unban wrong scope: %v", err)
	}
	if removed {
		t.Fatalf("expected global unban of channel ban to be a no-op")
	}
	removed, err = s.Unban(ctx, "mallory", &lobby)
	if err != nil || !removed {
		t.Fatalf("expected channel unban to succeed, got %v %v", removed, err)
	}
}

func TestChannelInfoAndAddressLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	info, err := s.ChannelInfo(ctx, "lobby")
	if err != nil {
		t.Fatalf("channel info: %v", err)
	}
	if len(info) != 0 {
		t.Fatalf("expected empty info, got %v", info)
	}

	if err := s.SetChannelInfo(ctx, "lobby", "topic", "first"); err != nil {
		t.Fatalf("set topic: %v", err)
	}
	if err := s.SetChannelInfo(ctx, "lobby", "topic", "second"); err != nil {
		t.Fatalf("overwrite topic: %v", err)
	}
	info, err = s.ChannelInfo(ctx, "lobby")
	if err != nil {
		t.Fatalf("channel info: %v", err)
	}
	if info["topic"] != "second" {
		t.Fatalf("expected overwritten topic, got %v", info)
	}

	for _, nick := range []string{"zed", "amy"} {
		if _, err := s.CreateUser(ctx, nick, "192.168.1.1", 3); err != nil {
			t.Fatalf("create %s: %v", nick, err)
		}
	}
	nicks, err := s.FindNicksByAddr(ctx, "192.168.1.1")
	if err != nil {
		t.Fatalf("find nicks: %v", err)
	}
	if strings.Join(nicks, ",") != "amy,zed" {
		t.Fatalf("unexpected nicks: %v", nicks)
	}
}

func TestAcquireSerializesHandles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h, err := s.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := h.CreateUser(ctx, "carol", "10.0.0.3", 3); err != nil {
		t.Fatalf("create through handle: %v", err)
	}

	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := s.Acquire(blocked); err == nil {
		t.Fatalf("expected second acquire to wait for release")
	}

	h.Release()

	h2, err := s.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	defer h2.Release()
	if _, err := h2.FindUser(ctx, "carol"); err != nil {
		t.Fatalf("find through second handle: %v", err)
	}
}
