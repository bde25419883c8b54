// Request parsing helpers shared by the handlers: form extraction,
// filter construction and input sanitization.
package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/report"
)

// parseYearMonth extracts year and month from query parameters, falling
// back to the current date for absent or malformed values.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}
	return year, month
}

// listQuery is the parsed filter surface of the expense list endpoint.
// Zero values mean the criterion is not applied.
type listQuery struct {
	Category *core.Category
	MinCents *int64
	MaxCents *int64
	Term     string
	Window   report.Window
	From     *time.Time
	To       *time.Time
}

// parseListQuery builds a listQuery from URL parameters. Malformed
// amounts and dates are reported; unknown categories and windows too,
// so typos never silently widen a filter.
func parseListQuery(q url.Values) (listQuery, error) {
	var lq listQuery

	if v := strings.TrimSpace(q.Get("category")); v != "" {
		cat, err := core.ParseCategory(v)
		if err != nil {
			return lq, err
		}
		lq.Category = &cat
	}
	if v := strings.TrimSpace(q.Get("min")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return lq, core.NewValidationError("min", "invalid amount "+strconv.Quote(v))
		}
		lq.MinCents = &cents
	}
	if v := strings.TrimSpace(q.Get("max")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return lq, core.NewValidationError("max", "invalid amount "+strconv.Quote(v))
		}
		lq.MaxCents = &cents
	}
	lq.Term = strings.TrimSpace(q.Get("q"))

	if v := strings.TrimSpace(q.Get("window")); v != "" {
		w := report.Window(v)
		if !w.IsValid() {
			return lq, core.NewValidationError("window", "unknown window "+strconv.Quote(v))
		}
		lq.Window = w
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return lq, core.NewValidationError("from", "invalid date "+strconv.Quote(v))
		}
		lq.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return lq, core.NewValidationError("to", "invalid date "+strconv.Quote(v))
		}
		lq.To = &t
	}
	return lq, nil
}

// cacheKey renders the query as a canonical string, so two requests with
// the same criteria in different parameter order share one cache entry.
func (lq listQuery) cacheKey() string {
	var b strings.Builder
	if lq.Category != nil {
		b.WriteString("c=" + string(*lq.Category) + ";")
	}
	if lq.MinCents != nil {
		b.WriteString("min=" + strconv.FormatInt(*lq.MinCents, 10) + ";")
	}
	if lq.MaxCents != nil {
		b.WriteString("max=" + strconv.FormatInt(*lq.MaxCents, 10) + ";")
	}
	if lq.Term != "" {
		b.WriteString("q=" + strings.ToLower(lq.Term) + ";")
	}
	if lq.Window != "" {
		b.WriteString("w=" + string(lq.Window) + ";")
	}
	if lq.From != nil {
		b.WriteString("from=" + lq.From.Format("2006-01-02") + ";")
	}
	if lq.To != nil {
		b.WriteString("to=" + lq.To.Format("2006-01-02") + ";")
	}
	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}

// parsedExpense is a validated expense form ready to pass to the service.
type parsedExpense struct {
	Description string
	Cents       int64
	Category    core.Category
	OccurredAt  time.Time
}

// parseExpenseForm validates the create/edit form fields. The date field
// is optional on create and defaults to now.
func parseExpenseForm(form url.Values) (parsedExpense, error) {
	var p parsedExpense

	p.Description = sanitizeInput(form.Get("description"))
	if p.Description == "" {
		return p, core.NewValidationError("description", "must not be empty")
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(form.Get("amount")))
	if err != nil {
		return p, err
	}
	p.Cents = cents

	cat, err := core.ParseCategory(strings.TrimSpace(form.Get("category")))
	if err != nil {
		return p, err
	}
	p.Category = cat

	p.OccurredAt = time.Now()
	if v := strings.TrimSpace(form.Get("date")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return p, core.NewValidationError("date", "invalid date "+strconv.Quote(v))
		}
		p.OccurredAt = t
	}
	return p, nil
}

// sanitizeInput trims whitespace and strips control characters except
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
