package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/presence-hub/internal/store"
)

//go:embed schema.sql
var schema string

// guestPrefix is prepended to generated nick suggestions.
const guestPrefix = "guest"

// queryer is satisfied by both *sql.DB and *sql.Conn.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements store.Store for SQLite.
// Its embedded directory runs directly on the pool; handles run on a dedicated connection.
type SQLiteStore struct {
	directory
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection, and :memory: databases
	// only exist on the connection that created them.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{directory: directory{q: db}, db: db}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Acquire reserves a dedicated connection for one unit of work.
// With a single pooled connection this serializes handles across callers.
func (s *SQLiteStore) Acquire(ctx context.Context) (store.Handle, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &handle{directory: directory{q: conn}, conn: conn}, nil
}

type handle struct {
	directory
	conn *sql.Conn
}

func (h *handle) Release() {
	_ = h.conn.Close() //nolint:errcheck // returning a connection to the pool only fails if it is already closed
}

// directory implements store.Directory on top of a queryer.
type directory struct {
	q queryer
}

// ==== UserStore implementation ====

const userColumns = `id, nick, verified, password_hash, email, access_level, remote_addr, created_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Nick,
		&user.Verified,
		&user.PasswordHash,
		&user.Email,
		&user.AccessLevel,
		&user.RemoteAddr,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUser retrieves a user by nick.
func (d directory) FindUser(ctx context.Context, nick string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE nick = ?`
	user, err := scanUser(d.q.QueryRowContext(ctx, query, nick))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", nick, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func (d directory) getUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(d.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// CreateUser creates an unverified user bound to a remote address.
func (d directory) CreateUser(ctx context.Context, nick, remoteAddr string, accessLevel int) (*store.User, error) {
	query := `
		INSERT INTO users (nick, access_level, remote_addr)
		VALUES (?, ?, ?)
	`
	result, err := d.q.ExecContext(ctx, query, nick, accessLevel, remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return d.getUserByID(ctx, id)
}

// NextNick returns "guest<n>" from a persistent sequence, skipping verified nicks.
func (d directory) NextNick(ctx context.Context) (string, error) {
	const maxSkips = 16
	for range maxSkips {
		result, err := d.q.ExecContext(ctx, `INSERT INTO nick_sequence DEFAULT VALUES`)
		if err != nil {
			return "", fmt.Errorf("advance nick sequence: %w", err)
		}
		n, err := result.LastInsertId()
		if err != nil {
			return "", fmt.Errorf("get last insert id: %w", err)
		}

		nick := fmt.Sprintf("%s%d", guestPrefix, n)
		var verified bool
		err = d.q.QueryRowContext(ctx, `SELECT verified FROM users WHERE nick = ?`, nick).Scan(&verified)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !verified) {
			return nick, nil
		}
		if err != nil {
			return "", fmt.Errorf("query suggested nick: %w", err)
		}
	}
	return "", fmt.Errorf("no free nick after %d suggestions", maxSkips)
}

// SetRemoteAddr records the last address a user was seen from.
func (d directory) SetRemoteAddr(ctx context.Context, userID int64, remoteAddr string) error {
	return d.updateUser(ctx, `UPDATE users SET remote_addr = ? WHERE id = ?`, remoteAddr, userID)
}

// SetAccessLevel changes a user's access level.
func (d directory) SetAccessLevel(ctx context.Context, userID int64, level int) error {
	return d.updateUser(ctx, `UPDATE users SET access_level = ? WHERE id = ?`, level, userID)
}

// SetEmail records the email address a registration is pending for.
func (d directory) SetEmail(ctx context.Context, userID int64, email string) error {
	return d.updateUser(ctx, `UPDATE users SET email = ? WHERE id = ?`, email, userID)
}

// SetCredentials stores email, password hash and verification state.
func (d directory) SetCredentials(ctx context.Context, userID int64, email, passwordHash string, verified bool) error {
	query := `UPDATE users SET email = ?, password_hash = ?, verified = ? WHERE id = ?`
	return d.updateUser(ctx, query, email, passwordHash, verified, userID)
}

// ClearCredentials removes password, email and verification.
func (d directory) ClearCredentials(ctx context.Context, userID int64) error {
	query := `UPDATE users SET email = '', password_hash = '', verified = 0 WHERE id = ?`
	return d.updateUser(ctx, query, userID)
}

func (d directory) updateUser(ctx context.Context, query string, args ...any) error {
	result, err := d.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update user: %w", store.ErrNotFound)
	}
	return nil
}

// FindNicksByAddr lists nicks last seen from the given remote address.
func (d directory) FindNicksByAddr(ctx context.Context, remoteAddr string) ([]string, error) {
	query := `SELECT nick FROM users WHERE remote_addr = ? ORDER BY nick ASC`
	return d.queryStrings(ctx, query, remoteAddr)
}

// ==== BanStore implementation ====

func scope(channel *string) (global bool, name string) {
	if channel == nil {
		return true, ""
	}
	return false, *channel
}

// IsBanned reports whether remoteAddr or nick is banned globally or in channel.
func (d directory) IsBanned(ctx context.Context, channel, remoteAddr, nick string) (bool, error) {
	if nick == "" {
		nick = remoteAddr
	}
	query := `
		SELECT 1 FROM bans
		WHERE id IN (?, ?) AND (global = 1 OR channel = ?)
		LIMIT 1
	`
	var exists int
	err := d.q.QueryRowContext(ctx, query, remoteAddr, nick, channel).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query ban: %w", err)
	}
	return true, nil
}

// Banlist lists banned ids in the given scope.
func (d directory) Banlist(ctx context.Context, channel *string) ([]string, error) {
	global, name := scope(channel)
	query := `
		SELECT id FROM bans
		WHERE global = ? AND channel = ?
		ORDER BY created_at ASC, id ASC
	`
	return d.queryStrings(ctx, query, global, name)
}

// Ban adds a ban.
func (d directory) Ban(ctx context.Context, id string, channel *string) error {
	global, name := scope(channel)
	query := `
		INSERT OR IGNORE INTO bans (id, global, channel)
		VALUES (?, ?, ?)
	`
	if _, err := d.q.ExecContext(ctx, query, id, global, name); err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return nil
}

// Unban removes a ban.
func (d directory) Unban(ctx context.Context, id string, channel *string) (bool, error) {
	global, name := scope(channel)
	query := `
		DELETE FROM bans
		WHERE id = ? AND global = ? AND channel = ?
	`
	result, err := d.q.ExecContext(ctx, query, id, global, name)
	if err != nil {
		return false, fmt.Errorf("delete ban: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ==== ChannelStore implementation ====

// ChannelInfo returns all metadata for a channel.
func (d directory) ChannelInfo(ctx context.Context, channel string) (map[string]string, error) {
	rows, err := d.q.QueryContext(ctx, `SELECT key, value FROM channel_info WHERE channel = ?`, channel)
	if err != nil {
		return nil, fmt.Errorf("query channel info: %w", err)
	}
	defer rows.Close()

	info := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan channel info: %w", err)
		}
		info[key] = value
	}
	return info, rows.Err()
}

// SetChannelInfo upserts one metadata value.
func (d directory) SetChannelInfo(ctx context.Context, channel, key, value string) error {
	query := `
		INSERT INTO channel_info (channel, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT (channel, key) DO UPDATE SET value = excluded.value
	`
	if _, err := d.q.ExecContext(ctx, query, channel, key, value); err != nil {
		return fmt.Errorf("upsert channel info: %w", err)
	}
	return nil
}

func (d directory) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
