package report

import (
	"context"

	"spendtrack/internal/core"
)

// Ports for the record store the engine reads from. The store must apply
// every set criterion of a filter (conjunction) and return query results
// ordered by timestamp descending.
type (
	ExpenseQuerier interface {
		Query(ctx context.Context, owner int64, f core.Filter) ([]core.Expense, error)
	}

	AggregateReader interface {
		// CategoryAggregates returns total and count grouped by category for
		// the filtered set. Categories with no matching records are absent.
		CategoryAggregates(ctx context.Context, owner int64, f core.Filter) ([]core.CategoryAggregate, error)

		// OverallAggregate returns sum, count, min and max for the filtered set.
		// A zero Count means no records matched; Min/Max are undefined then.
		OverallAggregate(ctx context.Context, owner int64, f core.Filter) (core.Aggregate, error)

		// MonthlyTotals returns total and count per calendar month of the
		// given year. Months without records may be absent.
		MonthlyTotals(ctx context.Context, owner int64, year int) ([]core.MonthTotal, error)

		// LargestExpense returns the single expense with the highest amount,
		// or nil when the owner has no records.
		LargestExpense(ctx context.Context, owner int64) (*core.Expense, error)
	}

	// Store is the full read surface the engine needs.
	Store interface {
		ExpenseQuerier
		AggregateReader
	}
)
