package memstore

import (
	"context"
	"time"

	"spendtrack/internal/core"
)

// CreateUser stores a new user.
func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := core.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.nextUserID++
	s.users = append(s.users, u)
	return &u, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(_ context.Context, id int64) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

// UserCount returns the number of registered users.
func (s *Store) UserCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

// CreateSession stores a new session for a user.
func (s *Store) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = core.Session{
		Token:        token,
		UserID:       userID,
		ExpiresAt:    expiresAt.UTC(),
		LastActivity: time.Now().UTC(),
	}
	return nil
}

// ValidateSession resolves a live session token to its user. Expired
// tokens behave like missing ones.
func (s *Store) ValidateSession(ctx context.Context, token string) (*core.SessionInfo, error) {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	s.mu.Unlock()
	if !ok || !sess.ExpiresAt.After(time.Now().UTC()) {
		return nil, core.ErrUserNotFound
	}
	user, err := s.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &core.SessionInfo{
		User:         user,
		LastActivity: sess.LastActivity,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

// RenewSession updates last activity and expiry for a session.
func (s *Store) RenewSession(_ context.Context, token string, newExpiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	sess.LastActivity = time.Now().UTC()
	sess.ExpiresAt = newExpiresAt.UTC()
	s.sessions[token] = sess
	return nil
}

// DeleteSession removes a session by token.
func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// CleanExpiredSessions removes all expired sessions.
func (s *Store) CleanExpiredSessions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for token, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, token)
		}
	}
	return nil
}
