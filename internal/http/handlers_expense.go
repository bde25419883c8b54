package http

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/report"
)

// expenseRow is one rendered list entry.
type expenseRow struct {
	ID          int64
	Date        string
	Description string
	Amount      string
	Category    string
}

type expensesPageData struct {
	Username   string
	Rows       []expenseRow
	Total      string
	Count      int
	Categories []core.Category
	Windows    []report.Window
	Query      map[string]string
	Error      string
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	lq, err := parseListQuery(r.URL.Query())
	if err != nil {
		s.renderExpensesPage(w, r, expensesPageData{
			Username:   user.Username,
			Categories: core.Categories(),
			Windows:    windows(),
			Query:      echoQuery(r),
			Error:      err.Error(),
		}, http.StatusUnprocessableEntity)
		return
	}

	items, err := s.cachedList(r.Context(), user.ID, lq.cacheKey(), func() ([]core.Expense, error) {
		return s.queryExpenses(r, user.ID, lq)
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Expense list failed",
			log.FieldError, err, log.FieldOwnerID, user.ID, log.FieldOperation, log.OpList)
		s.renderExpensesPage(w, r, expensesPageData{
			Username:   user.Username,
			Categories: core.Categories(),
			Windows:    windows(),
			Query:      echoQuery(r),
			Error:      "Could not load expenses",
		}, http.StatusInternalServerError)
		return
	}

	data := expensesPageData{
		Username:   user.Username,
		Categories: core.Categories(),
		Windows:    windows(),
		Query:      echoQuery(r),
		Count:      len(items),
	}
	var total int64
	for _, e := range items {
		total += e.Amount.Cents
		data.Rows = append(data.Rows, expenseRow{
			ID:          e.ID,
			Date:        e.OccurredAt.Format("2006-01-02"),
			Description: e.Description,
			Amount:      e.Amount.String(),
			Category:    e.Category.String(),
		})
	}
	data.Total = core.Money{Cents: total}.String()

	s.renderExpensesPage(w, r, data, http.StatusOK)
}

// queryExpenses maps the parsed filter onto the engine. A relative window
// takes precedence over an explicit date range; amount, category and term
// criteria always combine by conjunction.
func (s *Server) queryExpenses(r *http.Request, owner int64, lq listQuery) ([]core.Expense, error) {
	ctx := r.Context()

	switch {
	case lq.Window != "":
		return s.engine.FilterByWindow(ctx, owner, lq.Window)
	case lq.From != nil || lq.To != nil:
		start := time.Time{}
		if lq.From != nil {
			start = *lq.From
		}
		end := time.Now()
		if lq.To != nil {
			// Include the whole "to" day.
			end = lq.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return s.engine.FilterByDateRange(ctx, owner, start, end)
	case lq.Category != nil || lq.MinCents != nil || lq.MaxCents != nil || lq.Term != "":
		return s.engine.AdvancedSearch(ctx, owner, report.Criteria{
			MinCents: lq.MinCents,
			MaxCents: lq.MaxCents,
			Category: lq.Category,
			Term:     lq.Term,
		})
	default:
		return s.engine.ListAll(ctx, owner)
	}
}

// renderExpensesPage renders either the rows partial (htmx refresh) or the
// full page.
func (s *Server) renderExpensesPage(w http.ResponseWriter, r *http.Request, data expensesPageData, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if r.Header.Get("HX-Request") == "true" {
		s.render(w, r, "expense_rows.html", data)
		return
	}
	s.render(w, r, "expenses.html", data)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	p, err := parseExpenseForm(r.Form)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	exp := core.Expense{
		OwnerID:     user.ID,
		Amount:      core.Money{Cents: p.Cents},
		Description: p.Description,
		Category:    p.Category,
		OccurredAt:  p.OccurredAt,
	}
	id, err := s.service.Add(r.Context(), exp)
	if err != nil {
		if core.IsValidation(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to save expense",
			log.FieldError, err, log.FieldOwnerID, user.ID,
			log.FieldExpenseDesc, exp.Description, log.FieldAmountCents, exp.Amount.Cents,
			log.FieldOperation, log.OpCreate)
		InternalServerError("Error saving expense").Write(w)
		return
	}

	atomic.AddInt64(&s.metrics.totalExpenses, 1)
	s.invalidateOwner(user.ID)
	s.logger.InfoContext(r.Context(), "Expense created",
		log.FieldExpenseID, id, log.FieldOwnerID, user.ID,
		log.FieldAmountCents, exp.Amount.Cents, log.FieldCategory, exp.Category.String(),
		log.FieldOperation, log.OpCreate)

	NewHTMXResponse().
		TriggerExpensesChanged(p.OccurredAt.Year(), int(p.OccurredAt.Month())).
		Trigger("form:reset", struct{}{}).
		BodyHTML(`<div class="success">Recorded ` + exp.Amount.String() + ` for ` + htmlEscape(exp.Description) + `</div>`).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		BadRequestError("Invalid expense id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	// Partial update: only supplied fields change.
	var update core.ExpenseUpdate
	if v := sanitizeInput(r.Form.Get("description")); v != "" {
		update.Description = &v
	}
	if v := r.Form.Get("amount"); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		update.Amount = &core.Money{Cents: cents}
	}
	if v := r.Form.Get("category"); v != "" {
		cat, err := core.ParseCategory(v)
		if err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		update.Category = &cat
	}

	if err := s.service.Edit(r.Context(), id, user.ID, update); err != nil {
		switch {
		case core.IsValidation(err):
			UnprocessableEntityError(err.Error()).Write(w)
		case errors.Is(err, core.ErrNotFound):
			NotFoundError("Expense not found").Write(w)
		default:
			s.logger.ErrorContext(r.Context(), "Failed to update expense",
				log.FieldError, err, log.FieldExpenseID, id, log.FieldOwnerID, user.ID,
				log.FieldOperation, log.OpUpdate)
			InternalServerError("Error updating expense").Write(w)
		}
		return
	}

	s.invalidateOwner(user.ID)
	now := time.Now()
	NewHTMXResponse().
		TriggerExpensesChanged(now.Year(), int(now.Month())).
		BodyHTML(`<div class="success">Expense updated</div>`).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		BadRequestError("Invalid expense id").Write(w)
		return
	}

	if err := s.service.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Expense not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to delete expense",
			log.FieldError, err, log.FieldExpenseID, id, log.FieldOwnerID, user.ID,
			log.FieldOperation, log.OpDelete)
		InternalServerError("Error deleting expense").Write(w)
		return
	}

	s.invalidateOwner(user.ID)
	now := time.Now()
	NewHTMXResponse().
		TriggerExpensesChanged(now.Year(), int(now.Month())).
		Write(w)
}

func windows() []report.Window {
	return []report.Window{report.WindowLast7Days, report.WindowLast30Days, report.WindowThisMonth}
}

// echoQuery returns the filter parameters for re-rendering form state.
func echoQuery(r *http.Request) map[string]string {
	q := r.URL.Query()
	out := make(map[string]string, 7)
	for _, k := range []string{"category", "min", "max", "q", "window", "from", "to"} {
		out[k] = q.Get(k)
	}
	return out
}
