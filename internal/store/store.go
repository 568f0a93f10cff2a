package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned (wrapped) when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// User represents a persisted identity.
type User struct {
	ID           int64
	Nick         string
	Verified     bool
	PasswordHash string
	Email        string
	AccessLevel  int // lower is more privileged, 0 is the top
	RemoteAddr   string
	CreatedAt    time.Time
}

// UserStore handles identity persistence.
type UserStore interface {
	// FindUser retrieves a user by nick. Returns an error wrapping ErrNotFound when absent.
	FindUser(ctx context.Context, nick string) (*User, error)

	// CreateUser creates an unverified user bound to a remote address.
	CreateUser(ctx context.Context, nick, remoteAddr string, accessLevel int) (*User, error)

	// NextNick returns a fresh suggestion for sessions without a usable nick.
	NextNick(ctx context.Context) (string, error)

	// SetRemoteAddr records the last address a user was seen from.
	SetRemoteAddr(ctx context.Context, userID int64, remoteAddr string) error

	// SetAccessLevel changes a user's access level.
	SetAccessLevel(ctx context.Context, userID int64, level int) error

	// SetEmail records the email address a registration is pending for.
	SetEmail(ctx context.Context, userID int64, email string) error

	// SetCredentials stores email, password hash and verification state at once.
	SetCredentials(ctx context.Context, userID int64, email, passwordHash string, verified bool) error

	// ClearCredentials removes password, email and verification.
	ClearCredentials(ctx context.Context, userID int64) error

	// FindNicksByAddr lists nicks last seen from the given remote address.
	FindNicksByAddr(ctx context.Context, remoteAddr string) ([]string, error)
}

// BanStore handles ban persistence. A nil channel means the global scope.
type BanStore interface {
	// IsBanned reports whether remoteAddr or nick is banned globally or in channel.
	// An empty nick only checks the address.
	IsBanned(ctx context.Context, channel, remoteAddr, nick string) (bool, error)

	// Banlist lists banned ids in the given scope.
	Banlist(ctx context.Context, channel *string) ([]string, error)

	// Ban adds a ban. Banning an already banned id is a no-op.
	Ban(ctx context.Context, id string, channel *string) error

	// Unban removes a ban. Reports whether a ban was removed.
	Unban(ctx context.Context, id string, channel *string) (bool, error)
}

// ChannelStore handles channel metadata such as the topic.
type ChannelStore interface {
	// ChannelInfo returns all metadata for a channel; empty map when none is set.
	ChannelInfo(ctx context.Context, channel string) (map[string]string, error)

	// SetChannelInfo upserts one metadata value.
	SetChannelInfo(ctx context.Context, channel, key, value string) error
}

// Directory aggregates the storage operations used while handling an event.
type Directory interface {
	UserStore
	BanStore
	ChannelStore
}

// Handle is a Directory scoped to one unit of work. Release must be called exactly once.
type Handle interface {
	Directory

	// Release returns the underlying resources.
	Release()
}

// Store hands out scoped handles.
type Store interface {
	// Acquire blocks until a handle is available or ctx is done.
	Acquire(ctx context.Context) (Handle, error)

	// Close closes the underlying database connection.
	Close() error
}
