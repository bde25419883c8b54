package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/memstore"
)

type recordingPublisher struct {
	events []string
	fail   bool
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, _, _ int64, action string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, action)
	return nil
}

func validExpense(owner int64) core.Expense {
	return core.Expense{
		OwnerID:     owner,
		Amount:      core.Money{Cents: 1250},
		Description: "Lunch",
		Category:    core.CategoryFood,
		OccurredAt:  time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAddValidatesBeforeStore(t *testing.T) {
	store := memstore.New()
	svc := NewExpenseService(store, nil)

	e := validExpense(1)
	e.Amount.Cents = 0
	if _, err := svc.Add(context.Background(), e); !core.IsValidation(err) {
		t.Fatalf("Add with zero amount: got %v, want validation error", err)
	}

	got, err := store.Query(context.Background(), 1, core.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("rejected expense must not be stored, found %d records", len(got))
	}
}

func TestAddPublishesCreatedEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewExpenseService(memstore.New(), pub)

	id, err := svc.Add(context.Background(), validExpense(1))
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Error("expected non-zero id")
	}
	if len(pub.events) != 1 || pub.events[0] != amqp.ActionCreated {
		t.Errorf("events = %v, want [created]", pub.events)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	store := memstore.New()
	svc := NewExpenseService(store, &recordingPublisher{fail: true})

	id, err := svc.Add(context.Background(), validExpense(1))
	if err != nil {
		t.Fatalf("Add should succeed when publish fails: %v", err)
	}

	if _, err := store.GetExpense(context.Background(), id, 1); err != nil {
		t.Errorf("expense should be stored despite publish failure: %v", err)
	}
}

func TestEditEnforcesOwnership(t *testing.T) {
	store := memstore.New()
	pub := &recordingPublisher{}
	svc := NewExpenseService(store, pub)

	id, err := svc.Add(context.Background(), validExpense(1))
	if err != nil {
		t.Fatal(err)
	}
	pub.events = nil

	desc := "Updated"
	err = svc.Edit(context.Background(), id, 2, core.ExpenseUpdate{Description: &desc})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-owner edit: got %v, want ErrNotFound", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("no event should be published for a failed edit, got %v", pub.events)
	}

	if err := svc.Edit(context.Background(), id, 1, core.ExpenseUpdate{Description: &desc}); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 || pub.events[0] != amqp.ActionUpdated {
		t.Errorf("events = %v, want [updated]", pub.events)
	}
}

func TestEditRejectsEmptyUpdate(t *testing.T) {
	svc := NewExpenseService(memstore.New(), nil)

	err := svc.Edit(context.Background(), 1, 1, core.ExpenseUpdate{})
	if !core.IsValidation(err) {
		t.Fatalf("empty update: got %v, want validation error", err)
	}
}

func TestDeletePublishesDeletedEvent(t *testing.T) {
	store := memstore.New()
	pub := &recordingPublisher{}
	svc := NewExpenseService(store, pub)

	id, err := svc.Add(context.Background(), validExpense(1))
	if err != nil {
		t.Fatal(err)
	}
	pub.events = nil

	if err := svc.Delete(context.Background(), id, 1); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 || pub.events[0] != amqp.ActionDeleted {
		t.Errorf("events = %v, want [deleted]", pub.events)
	}

	if _, err := store.GetExpense(context.Background(), id, 1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted expense still retrievable: %v", err)
	}
}

func TestCloseWithNilPublisher(t *testing.T) {
	svc := NewExpenseService(memstore.New(), nil)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
