// Package sheets defines the port consumed by the mirror worker. The
// interface lives on the consumer side so implementations stay swappable.
package sheets

import (
	"context"

	"spendtrack/internal/core"
)

// ExpenseAppender appends an expense row to an external sheet.
type ExpenseAppender interface {
	Append(ctx context.Context, e core.Expense) error
}
