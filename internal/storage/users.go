package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spendtrack/internal/core"
)

// CreateUser inserts a new user with the given username and password hash.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (*core.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, passwordHash, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &core.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// GetUserByUsername retrieves a user by username.
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username))
}

// GetUserByID retrieves a user by id.
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id))
}

// UserCount returns the number of registered users.
func (r *SQLiteRepository) UserCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	var createdNanos int64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdNanos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.Unix(0, createdNanos).UTC()
	return &u, nil
}

// CreateSession stores a new session for a user.
func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.UTC().UnixNano(), time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// ValidateSession checks a session token and returns the associated user
// together with session timing details. Expired tokens behave like
// missing ones.
func (r *SQLiteRepository) ValidateSession(ctx context.Context, token string) (*core.SessionInfo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now().UTC().UnixNano())

	var u core.User
	var createdNanos, activityNanos, expiresNanos int64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdNanos, &activityNanos, &expiresNanos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("validate session: %w", err)
	}
	u.CreatedAt = time.Unix(0, createdNanos).UTC()
	return &core.SessionInfo{
		User:         &u,
		LastActivity: time.Unix(0, activityNanos).UTC(),
		ExpiresAt:    time.Unix(0, expiresNanos).UTC(),
	}, nil
}

// RenewSession updates last_activity and expires_at for a session.
func (r *SQLiteRepository) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		time.Now().UTC().UnixNano(), newExpiresAt.UTC().UnixNano(), token)
	return err
}

// DeleteSession removes a session by token.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (r *SQLiteRepository) CleanExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC().UnixNano())
	return err
}
