package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/memstore"
)

type fakeAppender struct {
	appended []core.Expense
	fail     bool
}

func (a *fakeAppender) Append(_ context.Context, e core.Expense) error {
	if a.fail {
		return errors.New("sheet unavailable")
	}
	a.appended = append(a.appended, e)
	return nil
}

func seedExpense(t *testing.T, store *memstore.Store) int64 {
	t.Helper()
	id, err := store.InsertExpense(context.Background(), core.Expense{
		OwnerID:     1,
		Amount:      core.Money{Cents: 2500},
		Description: "Concert tickets",
		Category:    core.CategoryEntertainment,
		OccurredAt:  time.Date(2026, 7, 4, 20, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestHandleEventAppendsCurrentRow(t *testing.T) {
	store := memstore.New()
	id := seedExpense(t, store)
	appender := &fakeAppender{}
	w := NewMirrorWorker(store, appender)

	msg := amqp.NewExpenseEventMessage(id, 1, amqp.ActionCreated)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	if len(appender.appended) != 1 {
		t.Fatalf("appended %d rows, want 1", len(appender.appended))
	}
	if appender.appended[0].Description != "Concert tickets" {
		t.Errorf("Description = %q, want %q", appender.appended[0].Description, "Concert tickets")
	}
}

func TestHandleEventSkipsMissingExpense(t *testing.T) {
	appender := &fakeAppender{}
	w := NewMirrorWorker(memstore.New(), appender)

	msg := amqp.NewExpenseEventMessage(999, 1, amqp.ActionUpdated)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("missing expense should be skipped, got %v", err)
	}
	if len(appender.appended) != 0 {
		t.Errorf("appended %d rows, want 0", len(appender.appended))
	}
}

func TestHandleEventSkipsDeletes(t *testing.T) {
	store := memstore.New()
	id := seedExpense(t, store)
	appender := &fakeAppender{}
	w := NewMirrorWorker(store, appender)

	msg := amqp.NewExpenseEventMessage(id, 1, amqp.ActionDeleted)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(appender.appended) != 0 {
		t.Errorf("delete events must not be mirrored, appended %d rows", len(appender.appended))
	}
}

func TestHandleEventPropagatesAppendFailure(t *testing.T) {
	store := memstore.New()
	id := seedExpense(t, store)
	w := NewMirrorWorker(store, &fakeAppender{fail: true})

	msg := amqp.NewExpenseEventMessage(id, 1, amqp.ActionCreated)
	if err := w.HandleEvent(context.Background(), msg); err == nil {
		t.Fatal("append failure should surface so the event is requeued")
	}
}
