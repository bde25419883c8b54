package core

import "time"

// User is an account records are scoped to. The single-user CLI variant
// uses one implicit account; the web variant requires login.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is an authenticated browser session.
type Session struct {
	Token        string
	UserID       int64
	ExpiresAt    time.Time
	LastActivity time.Time
}

// SessionInfo pairs a validated session with its user.
type SessionInfo struct {
	User         *User
	LastActivity time.Time
	ExpiresAt    time.Time
}
