// Package backend selects and assembles the data store the application
// runs against.
package backend

import (
	"context"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/report"
	"spendtrack/internal/services"
)

// Store combines the write-side contract with the report read ports.
type Store interface {
	services.ExpenseStore
	report.Store
}

// UserStore manages accounts and browser sessions.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUserByID(ctx context.Context, id int64) (*core.User, error)
	UserCount(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	ValidateSession(ctx context.Context, token string) (*core.SessionInfo, error)
	RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	CleanExpiredSessions(ctx context.Context) error
}

// Backend is the full store surface both frontends run against.
type Backend interface {
	Store
	UserStore
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result contains the assembled backend and its write service.
type Result struct {
	Backend Backend
	Service *services.ExpenseService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// BackendType represents the type of backend.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer.
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid.
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
