package core

import "time"

// Filter selects expenses by the conjunction of all set criteria.
// Unset (nil/empty) criteria are not applied. Start is inclusive, End is
// exclusive, so calendar ranges are always [start, nextPeriodStart).
type Filter struct {
	Start    *time.Time
	End      *time.Time
	Category *Category
	MinCents *int64 // inclusive
	MaxCents *int64 // inclusive
	Term     string // case-insensitive substring on description or category
}

// CategoryAggregate is one grouped row from the store: total and count of
// expenses in a category for some filtered set.
type CategoryAggregate struct {
	Category   Category
	TotalCents int64
	Count      int64
}

// Aggregate holds overall scalar metrics for a filtered set. Min/Max are
// meaningless when Count is zero; callers must check Count first.
type Aggregate struct {
	TotalCents int64
	Count      int64
	MinCents   int64
	MaxCents   int64
}

// CategoryStat is a per-category row of a monthly report.
type CategoryStat struct {
	Category     Category
	TotalCents   int64
	Count        int64
	AverageCents float64
	Percentage   float64 // share of the report's overall total, 0-100
}

// OverallStats summarizes a non-empty record set. A MonthlyReport for a
// month with no records has a nil Overall, which is how "no data" stays
// distinguishable from a zero total.
type OverallStats struct {
	TotalCents   int64
	Count        int64
	AverageCents float64
	MinCents     int64
	MaxCents     int64
}

// MonthlyReport aggregates one calendar month. Categories are sorted by
// total descending.
type MonthlyReport struct {
	Year       int
	Month      int // 1-12
	Categories []CategoryStat
	Overall    *OverallStats
}

// MonthTotal is one entry of a yearly summary. Months without records
// report zero total and count.
type MonthTotal struct {
	Month      int // 1-12
	TotalCents int64
	Count      int64
}

// YearlySummary holds exactly twelve month entries plus the year rollup.
// AveragePerMonthCents always divides by twelve, not by the number of
// months with data.
type YearlySummary struct {
	Year                 int
	Months               []MonthTotal
	TotalCents           int64
	AveragePerMonthCents float64
}

// CategoryTotal pairs a category with a summed amount.
type CategoryTotal struct {
	Category   Category
	TotalCents int64
}

// CategoryCount pairs a category with a record count.
type CategoryCount struct {
	Category Category
	Count    int64
}

// Insights are single-shot derived facts over an owner's full record set.
// When TotalCount is zero all other fields are nil.
type Insights struct {
	TotalCount              int64
	HighestSpendingCategory *CategoryTotal
	MostFrequentCategory    *CategoryCount
	LargestExpense          *Expense
	AverageCents            *float64
}

// CategoryComparison is one row of a month-over-month comparison. A
// category absent in one period reports zero for that period rather than
// being omitted.
type CategoryComparison struct {
	Category  Category
	ThisCents int64
	LastCents int64
}

// MonthComparison compares the current calendar month against the
// previous one. PercentChange is nil when the previous month has no data;
// there is no meaningful percentage against a zero base.
type MonthComparison struct {
	ThisYear, ThisMonth int
	LastYear, LastMonth int
	ThisTotalCents      int64
	LastTotalCents      int64
	Categories          []CategoryComparison
	PercentChange       *float64
}

// BreakdownEntry is one row of a category breakdown: subtotal and share
// of the set's total. Entries follow the fixed category enumeration order
// and categories with no matching records are omitted.
type BreakdownEntry struct {
	Category   Category
	TotalCents int64
	Percentage float64
}
