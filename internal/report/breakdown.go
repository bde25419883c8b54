package report

import "spendtrack/internal/core"

// Breakdown produces subtotal and percentage per category for an already
// filtered set of records. Entries follow the fixed category enumeration
// order; categories with no records in the set are omitted. Percentages
// are derived only when the set's total is positive.
func Breakdown(records []core.Expense) []core.BreakdownEntry {
	totals := make(map[core.Category]int64, len(core.Categories()))
	present := make(map[core.Category]bool, len(core.Categories()))
	var overall int64
	for _, r := range records {
		totals[r.Category] += r.Amount.Cents
		present[r.Category] = true
		overall += r.Amount.Cents
	}
	return buildBreakdown(totals, present, overall)
}

// BreakdownFromAggregates is Breakdown over pre-grouped store rows.
func BreakdownFromAggregates(aggs []core.CategoryAggregate) []core.BreakdownEntry {
	totals := make(map[core.Category]int64, len(aggs))
	present := make(map[core.Category]bool, len(aggs))
	var overall int64
	for _, a := range aggs {
		totals[a.Category] += a.TotalCents
		present[a.Category] = true
		overall += a.TotalCents
	}
	return buildBreakdown(totals, present, overall)
}

func buildBreakdown(totals map[core.Category]int64, present map[core.Category]bool, overall int64) []core.BreakdownEntry {
	var entries []core.BreakdownEntry
	for _, c := range core.Categories() {
		if !present[c] {
			continue
		}
		entry := core.BreakdownEntry{Category: c, TotalCents: totals[c]}
		if overall > 0 {
			entry.Percentage = 100 * float64(totals[c]) / float64(overall)
		}
		entries = append(entries, entry)
	}
	return entries
}
