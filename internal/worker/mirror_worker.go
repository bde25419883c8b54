// Package worker mirrors expense change events to an external sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/services"
	"spendtrack/internal/sheets"
)

// MirrorWorker consumes expense change events and appends the current
// database row to the mirror sheet. Events carry only identifiers, so the
// worker always writes the freshest data even when events arrive late.
type MirrorWorker struct {
	store    services.ExpenseStore
	appender sheets.ExpenseAppender
}

func NewMirrorWorker(store services.ExpenseStore, appender sheets.ExpenseAppender) *MirrorWorker {
	return &MirrorWorker{
		store:    store,
		appender: appender,
	}
}

// HandleEvent processes a single expense change event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	slog.InfoContext(ctx, "Processing expense event",
		"id", msg.ID,
		"owner_id", msg.OwnerID,
		"action", msg.Action)

	if msg.Action == amqp.ActionDeleted {
		// The sheet is an append-only audit mirror; deletes are not
		// propagated.
		slog.InfoContext(ctx, "Skipping delete event", "id", msg.ID)
		return nil
	}

	expense, err := w.store.GetExpense(ctx, msg.ID, msg.OwnerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between event and processing; nothing to mirror.
			slog.WarnContext(ctx, "Expense no longer exists, skipping",
				"id", msg.ID, "owner_id", msg.OwnerID)
			return nil
		}
		return fmt.Errorf("get expense from storage: %w", err)
	}

	if err := w.appender.Append(ctx, *expense); err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored expense",
		"id", msg.ID,
		"owner_id", msg.OwnerID,
		"action", msg.Action,
		"amount_cents", expense.Amount.Cents)

	return nil
}
