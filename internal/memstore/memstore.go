// Package memstore provides an in-memory record store. It backs the
// "memory" data backend and the engine's unit tests, and mirrors the
// filtering semantics of the SQLite repository exactly.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"spendtrack/internal/core"
)

type Store struct {
	mu         sync.Mutex
	nextID     int64
	items      []core.Expense
	nextUserID int64
	users      []core.User
	sessions   map[string]core.Session
}

func New() *Store {
	return &Store{nextID: 1, nextUserID: 1, sessions: make(map[string]core.Session)}
}

// InsertExpense stores a validated expense and returns its assigned id.
func (s *Store) InsertExpense(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	s.items = append(s.items, e)
	return e.ID, nil
}

// UpdateExpense applies the non-nil fields of u to the expense with the
// given id, provided the owner matches. Returns core.ErrNotFound otherwise.
func (s *Store) UpdateExpense(_ context.Context, id, owner int64, u core.ExpenseUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id || s.items[i].OwnerID != owner {
			continue
		}
		if u.Amount != nil {
			s.items[i].Amount = *u.Amount
		}
		if u.Description != nil {
			s.items[i].Description = *u.Description
		}
		if u.Category != nil {
			s.items[i].Category = *u.Category
		}
		return nil
	}
	return core.ErrNotFound
}

// DeleteExpense removes the expense with the given id if the owner matches.
func (s *Store) DeleteExpense(_ context.Context, id, owner int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].OwnerID == owner {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// GetExpense returns a single owned expense by id.
func (s *Store) GetExpense(_ context.Context, id, owner int64) (*core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].OwnerID == owner {
			e := s.items[i]
			return &e, nil
		}
	}
	return nil, core.ErrNotFound
}

// Query returns owned expenses matching the filter, newest first.
func (s *Store) Query(_ context.Context, owner int64, f core.Filter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if e.OwnerID == owner && matches(e, f) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// CategoryAggregates returns total and count grouped by category for the
// filtered set, in the fixed category enumeration order.
func (s *Store) CategoryAggregates(_ context.Context, owner int64, f core.Filter) ([]core.CategoryAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[core.Category]*core.CategoryAggregate)
	for _, e := range s.items {
		if e.OwnerID != owner || !matches(e, f) {
			continue
		}
		agg, ok := totals[e.Category]
		if !ok {
			agg = &core.CategoryAggregate{Category: e.Category}
			totals[e.Category] = agg
		}
		agg.TotalCents += e.Amount.Cents
		agg.Count++
	}
	var out []core.CategoryAggregate
	for _, c := range core.Categories() {
		if agg, ok := totals[c]; ok {
			out = append(out, *agg)
		}
	}
	return out, nil
}

// OverallAggregate returns sum, count, min and max for the filtered set.
func (s *Store) OverallAggregate(_ context.Context, owner int64, f core.Filter) (core.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var agg core.Aggregate
	for _, e := range s.items {
		if e.OwnerID != owner || !matches(e, f) {
			continue
		}
		if agg.Count == 0 || e.Amount.Cents < agg.MinCents {
			agg.MinCents = e.Amount.Cents
		}
		if agg.Count == 0 || e.Amount.Cents > agg.MaxCents {
			agg.MaxCents = e.Amount.Cents
		}
		agg.TotalCents += e.Amount.Cents
		agg.Count++
	}
	return agg, nil
}

// MonthlyTotals returns total and count per calendar month of the year.
// Months without records are absent.
func (s *Store) MonthlyTotals(_ context.Context, owner int64, year int) ([]core.MonthTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMonth := make(map[int]*core.MonthTotal)
	for _, e := range s.items {
		t := e.OccurredAt.UTC()
		if e.OwnerID != owner || t.Year() != year {
			continue
		}
		m := int(t.Month())
		mt, ok := byMonth[m]
		if !ok {
			mt = &core.MonthTotal{Month: m}
			byMonth[m] = mt
		}
		mt.TotalCents += e.Amount.Cents
		mt.Count++
	}
	var out []core.MonthTotal
	for m := 1; m <= 12; m++ {
		if mt, ok := byMonth[m]; ok {
			out = append(out, *mt)
		}
	}
	return out, nil
}

// LargestExpense returns the owner's single highest-amount expense, or nil
// when there are no records. Ties resolve to the earliest inserted record.
func (s *Store) LargestExpense(_ context.Context, owner int64) (*core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *core.Expense
	for i := range s.items {
		e := s.items[i]
		if e.OwnerID != owner {
			continue
		}
		if best == nil || e.Amount.Cents > best.Amount.Cents {
			copied := e
			best = &copied
		}
	}
	return best, nil
}

func matches(e core.Expense, f core.Filter) bool {
	if f.Start != nil && e.OccurredAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && !e.OccurredAt.Before(*f.End) {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.MinCents != nil && e.Amount.Cents < *f.MinCents {
		return false
	}
	if f.MaxCents != nil && e.Amount.Cents > *f.MaxCents {
		return false
	}
	if f.Term != "" {
		term := strings.ToLower(f.Term)
		if !strings.Contains(strings.ToLower(e.Description), term) &&
			!strings.Contains(strings.ToLower(string(e.Category)), term) {
			return false
		}
	}
	return true
}
