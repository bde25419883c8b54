package core

import (
	"strconv"
	"strings"
	"time"
)

// Expense is a single recorded transaction. ID is assigned by the store on
// creation and immutable afterwards, as is OccurredAt. OwnerID scopes the
// record to one user; every query filters by it.
type Expense struct {
	ID          int64
	OwnerID     int64
	Amount      Money
	Description string
	Category    Category
	OccurredAt  time.Time
}

// ExpenseUpdate carries the mutable fields of an expense for edit
// operations. Nil fields are left unchanged. Timestamp and id are
// immutable and therefore absent.
type ExpenseUpdate struct {
	Amount      *Money
	Description *string
	Category    *Category
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return NewValidationError("description", "must not be empty")
	}
	if len(e.Description) > 200 {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if !e.Category.IsValid() {
		return NewValidationError("category", "unknown category "+strconv.Quote(string(e.Category)))
	}
	if e.OccurredAt.IsZero() {
		return NewValidationError("timestamp", "must not be zero")
	}
	return nil
}

func (u ExpenseUpdate) Validate() error {
	if u.Amount == nil && u.Description == nil && u.Category == nil {
		return NewValidationError("update", "no fields to change")
	}
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return err
		}
	}
	if u.Description != nil {
		if len(strings.TrimSpace(*u.Description)) == 0 {
			return NewValidationError("description", "must not be empty")
		}
		if len(*u.Description) > 200 {
			return NewValidationError("description", "too long (max 200 characters)")
		}
	}
	if u.Category != nil && !u.Category.IsValid() {
		return NewValidationError("category", "unknown category "+strconv.Quote(string(*u.Category)))
	}
	return nil
}
