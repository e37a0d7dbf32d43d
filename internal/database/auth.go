package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"photovault/internal/logging"
)

// User is the single account the service knows about.
type User struct {
	ID           int64     `json:"id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is one issued login. Token is the cleartext value handed to
// the client; the sessions table only ever stores its SHA-256.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionDuration is how long an issued session stays valid.
const SessionDuration = 7 * 24 * time.Hour

// ErrInvalidCredentials covers both bad passwords and bad or expired
// session tokens, so callers cannot distinguish which part failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenBytes = 32

// newToken returns a fresh cleartext token and the hash to store.
func newToken() (token, stored string, err error) {
	raw := make([]byte, tokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generating token: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(raw), hex.EncodeToString(sum[:]), nil
}

// storedHash maps a client-supplied token back to its stored form.
func storedHash(token string) (string, error) {
	raw, err := hex.DecodeString(token)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// HasUsers reports whether setup has been completed.
func (d *Database) HasUsers() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// CreateUser stores the account with a bcrypt password hash.
func (d *Database) CreateUser(password string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_user", start, err) }()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if _, err = d.db.ExecContext(ctx, "INSERT INTO users (password_hash) VALUES (?)", string(hash)); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// ValidatePassword returns the user when the password matches.
func (d *Database) ValidatePassword(password string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("validate_password", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	user, err := d.loadUser(ctx, "LIMIT 1")
	if err != nil {
		err = ErrInvalidCredentials
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		err = ErrInvalidCredentials
		return nil, err
	}
	return user, nil
}

func (d *Database) loadUser(ctx context.Context, where string, args ...interface{}) (*User, error) {
	var (
		user             User
		created, updated int64
	)
	err := d.db.QueryRowContext(ctx,
		"SELECT id, password_hash, created_at, updated_at FROM users "+where, args...,
	).Scan(&user.ID, &user.PasswordHash, &created, &updated)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(created, 0)
	user.UpdatedAt = time.Unix(updated, 0)
	return &user, nil
}

// CreateSession issues a session for the user.
func (d *Database) CreateSession(userID int64) (*Session, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_session", start, err) }()

	token, stored, err := newToken()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	expires := time.Now().Add(SessionDuration)
	res, err := d.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)",
		userID, stored, expires.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	id, _ := res.LastInsertId()

	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expires,
		CreatedAt: time.Now(),
	}, nil
}

// ValidateSession resolves a token to its user. Expired sessions are
// rejected and reaped in the background.
func (d *Database) ValidateSession(token string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("validate_session", start, err) }()

	stored, err := storedHash(token)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var (
		userID  int64
		expires int64
	)
	err = d.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM sessions WHERE token = ?", stored,
	).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrInvalidCredentials
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	if time.Now().Unix() > expires {
		go func() {
			if delErr := d.deleteSessionByHash(stored); delErr != nil {
				logging.Error("Failed to reap expired session: %v", delErr)
			}
		}()
		err = ErrInvalidCredentials
		return nil, err
	}

	user, err := d.loadUser(ctx, "WHERE id = ?", userID)
	if err != nil {
		err = ErrInvalidCredentials
		return nil, err
	}
	return user, nil
}

func (d *Database) deleteSessionByHash(stored string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", stored)
	return err
}

// DeleteSession logs out one session.
func (d *Database) DeleteSession(token string) error {
	stored, err := storedHash(token)
	if err != nil {
		return err
	}
	return d.deleteSessionByHash(stored)
}

// CleanExpiredSessions removes every session past its expiry.
func (d *Database) CleanExpiredSessions() error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clean_expired_sessions", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	return err
}

// UpdatePassword replaces the password and drops every session.
func (d *Database) UpdatePassword(newPassword string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_password", start, err) }()

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = strftime('%s', 'now')",
		string(hash),
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = errors.New("no user configured")
		return err
	}

	if _, delErr := d.db.ExecContext(ctx, "DELETE FROM sessions"); delErr != nil {
		logging.Warn("Failed to invalidate sessions: %v", delErr)
	}
	return nil
}
