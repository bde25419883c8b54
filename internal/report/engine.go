// Package report implements the aggregation engine: filtered queries and
// derived statistics over an owner's expense records. The engine holds no
// state between calls; every operation is a pure read over the store,
// scoped by the owner id passed per call.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"spendtrack/internal/core"
)

// Window is a relative time window computed against "now" at call time.
type Window string

const (
	WindowLast7Days  Window = "last7days"
	WindowLast30Days Window = "last30days"
	WindowThisMonth  Window = "thismonth"
)

// IsValid returns true for a known window name.
func (w Window) IsValid() bool {
	switch w {
	case WindowLast7Days, WindowLast30Days, WindowThisMonth:
		return true
	default:
		return false
	}
}

// Engine computes reports and aggregates over a record store. All input
// validation happens here, before any store access.
type Engine struct {
	store Store
	now   func() time.Time
}

// New creates an engine reading from the given store.
func New(store Store) *Engine {
	return NewWithClock(store, time.Now)
}

// NewWithClock creates an engine with an explicit clock. Relative windows
// and month-over-month comparisons are computed against this clock.
func NewWithClock(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// ListAll returns all records for the owner, newest first.
func (e *Engine) ListAll(ctx context.Context, owner int64) ([]core.Expense, error) {
	return e.store.Query(ctx, owner, core.Filter{})
}

// FilterByCategory returns the owner's records in exactly the given category.
func (e *Engine) FilterByCategory(ctx context.Context, owner int64, category core.Category) ([]core.Expense, error) {
	if !category.IsValid() {
		return nil, core.NewValidationError("category",
			fmt.Sprintf("unknown category %q, must be one of %v", category, core.Categories()))
	}
	return e.store.Query(ctx, owner, core.Filter{Category: &category})
}

// FilterByDateRange returns records with start <= timestamp <= end.
// An inverted range is rejected, never silently swapped.
func (e *Engine) FilterByDateRange(ctx context.Context, owner int64, start, end time.Time) ([]core.Expense, error) {
	if start.After(end) {
		return nil, core.NewValidationError("date_range",
			fmt.Sprintf("start %s is after end %s", start.Format("2006-01-02"), end.Format("2006-01-02")))
	}
	// The caller's end is inclusive; the store bound is exclusive.
	endExclusive := end.Add(time.Nanosecond)
	return e.store.Query(ctx, owner, core.Filter{Start: &start, End: &endExclusive})
}

// FilterByWindow returns records inside a relative window computed against
// the engine clock. Windows have an inclusive lower bound and no upper bound.
func (e *Engine) FilterByWindow(ctx context.Context, owner int64, window Window) ([]core.Expense, error) {
	start, err := e.windowStart(window)
	if err != nil {
		return nil, err
	}
	return e.store.Query(ctx, owner, core.Filter{Start: &start})
}

func (e *Engine) windowStart(window Window) (time.Time, error) {
	now := e.now().UTC()
	switch window {
	case WindowLast7Days:
		return now.AddDate(0, 0, -7), nil
	case WindowLast30Days:
		return now.AddDate(0, 0, -30), nil
	case WindowThisMonth:
		start, _ := monthRange(now.Year(), int(now.Month()))
		return start, nil
	default:
		return time.Time{}, core.NewValidationError("window",
			fmt.Sprintf("unknown window %q", window))
	}
}

// Search returns records whose description or category contains the term,
// case-insensitively. An empty term matches all records; intercepting empty
// input as "cancelled" is the presentation layer's job.
func (e *Engine) Search(ctx context.Context, owner int64, term string) ([]core.Expense, error) {
	return e.store.Query(ctx, owner, core.Filter{Term: term})
}

// Criteria is the input of AdvancedSearch. Nil fields are not applied;
// set fields combine by conjunction. Amount bounds are inclusive.
type Criteria struct {
	MinCents *int64
	MaxCents *int64
	Category *core.Category
	Term     string
}

// AdvancedSearch returns records matching every supplied criterion.
// MinCents greater than MaxCents yields an empty result, not an error.
func (e *Engine) AdvancedSearch(ctx context.Context, owner int64, c Criteria) ([]core.Expense, error) {
	if c.Category != nil && !c.Category.IsValid() {
		return nil, core.NewValidationError("category",
			fmt.Sprintf("unknown category %q, must be one of %v", *c.Category, core.Categories()))
	}
	return e.store.Query(ctx, owner, core.Filter{
		Category: c.Category,
		MinCents: c.MinCents,
		MaxCents: c.MaxCents,
		Term:     c.Term,
	})
}

// MonthlyReport aggregates one calendar month: per-category rows sorted by
// total descending, plus overall stats. Overall is nil when the month has
// no records, so "no data" never collapses into "zero total".
func (e *Engine) MonthlyReport(ctx context.Context, owner int64, year, month int) (*core.MonthlyReport, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}

	start, next := monthRange(year, month)
	f := core.Filter{Start: &start, End: &next}

	overall, err := e.store.OverallAggregate(ctx, owner, f)
	if err != nil {
		return nil, fmt.Errorf("overall aggregate: %w", err)
	}

	r := &core.MonthlyReport{Year: year, Month: month}
	if overall.Count == 0 {
		return r, nil
	}

	aggs, err := e.store.CategoryAggregates(ctx, owner, f)
	if err != nil {
		return nil, fmt.Errorf("category aggregates: %w", err)
	}

	r.Overall = &core.OverallStats{
		TotalCents:   overall.TotalCents,
		Count:        overall.Count,
		AverageCents: float64(overall.TotalCents) / float64(overall.Count),
		MinCents:     overall.MinCents,
		MaxCents:     overall.MaxCents,
	}

	r.Categories = make([]core.CategoryStat, 0, len(aggs))
	for _, a := range aggs {
		stat := core.CategoryStat{
			Category:     a.Category,
			TotalCents:   a.TotalCents,
			Count:        a.Count,
			AverageCents: float64(a.TotalCents) / float64(a.Count),
		}
		if overall.TotalCents > 0 {
			stat.Percentage = 100 * float64(a.TotalCents) / float64(overall.TotalCents)
		}
		r.Categories = append(r.Categories, stat)
	}
	sort.SliceStable(r.Categories, func(i, j int) bool {
		if r.Categories[i].TotalCents != r.Categories[j].TotalCents {
			return r.Categories[i].TotalCents > r.Categories[j].TotalCents
		}
		return r.Categories[i].Category.Rank() < r.Categories[j].Category.Rank()
	})

	return r, nil
}

// YearlySummary returns exactly twelve month entries for the year. Months
// without records report zero total and count; the per-month average always
// divides the year total by twelve.
func (e *Engine) YearlySummary(ctx context.Context, owner int64, year int) (*core.YearlySummary, error) {
	if year <= 0 {
		return nil, core.NewValidationError("year", fmt.Sprintf("invalid year %d", year))
	}

	totals, err := e.store.MonthlyTotals(ctx, owner, year)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}

	s := &core.YearlySummary{Year: year, Months: make([]core.MonthTotal, 12)}
	for i := range s.Months {
		s.Months[i] = core.MonthTotal{Month: i + 1}
	}
	for _, mt := range totals {
		if mt.Month < 1 || mt.Month > 12 {
			continue
		}
		s.Months[mt.Month-1] = mt
		s.TotalCents += mt.TotalCents
	}
	s.AveragePerMonthCents = float64(s.TotalCents) / 12

	return s, nil
}

// Insights computes single-shot derived facts over the owner's full record
// set. With no records only TotalCount is populated (zero); all other
// fields stay nil. Ties between categories resolve to the one earliest in
// the fixed enumeration order, keeping results deterministic.
func (e *Engine) Insights(ctx context.Context, owner int64) (*core.Insights, error) {
	overall, err := e.store.OverallAggregate(ctx, owner, core.Filter{})
	if err != nil {
		return nil, fmt.Errorf("overall aggregate: %w", err)
	}

	ins := &core.Insights{TotalCount: overall.Count}
	if overall.Count == 0 {
		return ins, nil
	}

	aggs, err := e.store.CategoryAggregates(ctx, owner, core.Filter{})
	if err != nil {
		return nil, fmt.Errorf("category aggregates: %w", err)
	}

	for _, a := range aggs {
		if ins.HighestSpendingCategory == nil ||
			a.TotalCents > ins.HighestSpendingCategory.TotalCents ||
			(a.TotalCents == ins.HighestSpendingCategory.TotalCents &&
				a.Category.Rank() < ins.HighestSpendingCategory.Category.Rank()) {
			ins.HighestSpendingCategory = &core.CategoryTotal{Category: a.Category, TotalCents: a.TotalCents}
		}
		if ins.MostFrequentCategory == nil ||
			a.Count > ins.MostFrequentCategory.Count ||
			(a.Count == ins.MostFrequentCategory.Count &&
				a.Category.Rank() < ins.MostFrequentCategory.Category.Rank()) {
			ins.MostFrequentCategory = &core.CategoryCount{Category: a.Category, Count: a.Count}
		}
	}

	largest, err := e.store.LargestExpense(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("largest expense: %w", err)
	}
	ins.LargestExpense = largest

	avg := float64(overall.TotalCents) / float64(overall.Count)
	ins.AverageCents = &avg

	return ins, nil
}

// MonthOverMonth compares the current calendar month against the previous
// one, per category and in total. Calendar month arithmetic, not a rolling
// 30-day window. Categories present in only one period report zero for the
// other. PercentChange is nil when the previous month has no spend.
func (e *Engine) MonthOverMonth(ctx context.Context, owner int64) (*core.MonthComparison, error) {
	now := e.now().UTC()
	thisYear, thisMonth := now.Year(), int(now.Month())
	lastStart, thisStart := monthRange(thisYear, thisMonth-1)
	_, thisEnd := monthRange(thisYear, thisMonth)

	thisAggs, err := e.store.CategoryAggregates(ctx, owner, core.Filter{Start: &thisStart, End: &thisEnd})
	if err != nil {
		return nil, fmt.Errorf("current month aggregates: %w", err)
	}
	lastAggs, err := e.store.CategoryAggregates(ctx, owner, core.Filter{Start: &lastStart, End: &thisStart})
	if err != nil {
		return nil, fmt.Errorf("previous month aggregates: %w", err)
	}

	cmp := &core.MonthComparison{
		ThisYear:  thisYear,
		ThisMonth: thisMonth,
		LastYear:  lastStart.Year(),
		LastMonth: int(lastStart.Month()),
	}

	byCat := make(map[core.Category]*core.CategoryComparison)
	for _, a := range thisAggs {
		byCat[a.Category] = &core.CategoryComparison{Category: a.Category, ThisCents: a.TotalCents}
		cmp.ThisTotalCents += a.TotalCents
	}
	for _, a := range lastAggs {
		if row, ok := byCat[a.Category]; ok {
			row.LastCents = a.TotalCents
		} else {
			byCat[a.Category] = &core.CategoryComparison{Category: a.Category, LastCents: a.TotalCents}
		}
		cmp.LastTotalCents += a.TotalCents
	}

	for _, c := range core.Categories() {
		if row, ok := byCat[c]; ok {
			cmp.Categories = append(cmp.Categories, *row)
		}
	}

	if cmp.LastTotalCents > 0 {
		pct := 100 * float64(cmp.ThisTotalCents-cmp.LastTotalCents) / float64(cmp.LastTotalCents)
		cmp.PercentChange = &pct
	}

	return cmp, nil
}

func validateMonth(year, month int) error {
	if year <= 0 {
		return core.NewValidationError("year", fmt.Sprintf("invalid year %d", year))
	}
	if month < 1 || month > 12 {
		return core.NewValidationError("month", fmt.Sprintf("invalid month %d, must be 1-12", month))
	}
	return nil
}

// monthRange returns the first instant of the month and the first instant
// of the following month, so ranges are [start, nextMonthStart) and a
// transaction on the last day is never truncated away. Month values
// outside 1-12 normalize across year boundaries.
func monthRange(year, month int) (start, next time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	next = start.AddDate(0, 1, 0)
	return start, next
}
