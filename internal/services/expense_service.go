// Package services orchestrates writes across the record store and the
// event stream.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
)

// ExpenseStore is the write-side store contract.
type ExpenseStore interface {
	InsertExpense(ctx context.Context, e core.Expense) (int64, error)
	UpdateExpense(ctx context.Context, id, owner int64, u core.ExpenseUpdate) error
	DeleteExpense(ctx context.Context, id, owner int64) error
	GetExpense(ctx context.Context, id, owner int64) (*core.Expense, error)
}

// EventPublisher emits expense change events for mirror workers.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, id, ownerID int64, action string) error
}

// ExpenseService validates and persists expense changes, then publishes a
// change event. Publishing is best effort: the local write is the source
// of truth and never rolls back on a failed publish.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
}

func NewExpenseService(store ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{store: store, publisher: publisher}
}

// Add validates and stores a new expense, returning its assigned id.
func (s *ExpenseService) Add(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, id, e.OwnerID, amqp.ActionCreated)
	return id, nil
}

// Edit applies a partial update to an expense owned by the given user.
func (s *ExpenseService) Edit(ctx context.Context, id, owner int64, u core.ExpenseUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}

	if err := s.store.UpdateExpense(ctx, id, owner, u); err != nil {
		return err
	}

	s.publish(ctx, id, owner, amqp.ActionUpdated)
	return nil
}

// Delete removes an expense owned by the given user.
func (s *ExpenseService) Delete(ctx context.Context, id, owner int64) error {
	if err := s.store.DeleteExpense(ctx, id, owner); err != nil {
		return err
	}

	s.publish(ctx, id, owner, amqp.ActionDeleted)
	return nil
}

// Get retrieves a single expense owned by the given user.
func (s *ExpenseService) Get(ctx context.Context, id, owner int64) (*core.Expense, error) {
	return s.store.GetExpense(ctx, id, owner)
}

func (s *ExpenseService) publish(ctx context.Context, id, owner int64, action string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, id, owner, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"id", id, "owner_id", owner, "action", action, "error", err)
	}
}

// Close closes the store and publisher when they hold resources.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}
	return nil
}
