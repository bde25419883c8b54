package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/report"
)

type categoryRowView struct {
	Category   string
	Total      string
	Count      int64
	Average    string
	Percentage float64
	Width      int
}

type monthOverviewView struct {
	Year     int
	Month    int
	HasData  bool
	Total    string
	Count    int64
	Average  string
	Min      string
	Max      string
	Rows     []categoryRowView
	PrevYear int
	PrevMonth int
	NextYear int
	NextMonth int
}

type dashboardData struct {
	Username   string
	Year       int
	Month      int
	Categories []core.Category
	Today      string

	OverallTotal string
	OverallCount int64
	MonthTotal   string
	Breakdown    []categoryRowView
	Recent       []expenseRow
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	ctx := r.Context()
	now := time.Now()

	data := dashboardData{
		Username:   user.Username,
		Year:       now.Year(),
		Month:      int(now.Month()),
		Categories: core.Categories(),
		Today:      now.Format("2006-01-02"),
	}

	overall, err := s.backend.OverallAggregate(ctx, user.ID, core.Filter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "Dashboard aggregate failed",
			log.FieldError, err, log.FieldOwnerID, user.ID, log.FieldOperation, log.OpRead)
		InternalServerError("Error loading dashboard").Write(w)
		return
	}
	data.OverallTotal = core.Money{Cents: overall.TotalCents}.String()
	data.OverallCount = overall.Count

	if rep, err := s.cachedMonthlyReport(ctx, user.ID, data.Year, data.Month); err == nil && rep.Overall != nil {
		data.MonthTotal = core.Money{Cents: rep.Overall.TotalCents}.String()
	} else {
		data.MonthTotal = core.Money{}.String()
	}

	if aggs, err := s.backend.CategoryAggregates(ctx, user.ID, core.Filter{}); err == nil {
		var maxCents int64
		for _, a := range aggs {
			if a.TotalCents > maxCents {
				maxCents = a.TotalCents
			}
		}
		for _, entry := range report.BreakdownFromAggregates(aggs) {
			data.Breakdown = append(data.Breakdown, categoryRowView{
				Category:   entry.Category.String(),
				Total:      core.Money{Cents: entry.TotalCents}.String(),
				Percentage: entry.Percentage,
				Width:      barWidth(entry.TotalCents, maxCents),
			})
		}
	}

	if items, err := s.engine.ListAll(ctx, user.ID); err == nil {
		if len(items) > 10 {
			items = items[:10]
		}
		for _, e := range items {
			data.Recent = append(data.Recent, expenseRow{
				ID:          e.ID,
				Date:        e.OccurredAt.Format("2006-01-02"),
				Description: e.Description,
				Amount:      e.Amount.String(),
				Category:    e.Category.String(),
			})
		}
	}

	s.render(w, r, "dashboard.html", data)
}

func (s *Server) handleReportsPage(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	now := time.Now()
	s.render(w, r, "reports.html", struct {
		Username string
		Year     int
		Month    int
	}{Username: user.Username, Year: now.Year(), Month: int(now.Month())})
}

// handleMonthOverview renders the monthly report partial.
func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	year, month := parseYearMonth(r)

	rep, err := s.cachedMonthlyReport(r.Context(), user.ID, year, month)
	if err != nil {
		if core.IsValidation(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Monthly report failed",
			log.FieldError, err, log.FieldOwnerID, user.ID,
			log.FieldYear, year, log.FieldMonth, month, log.FieldOperation, log.OpReport)
		InternalServerError("Error loading monthly report").Write(w)
		return
	}

	view := monthOverviewView{Year: rep.Year, Month: rep.Month}
	prev := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	next := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	view.PrevYear, view.PrevMonth = prev.Year(), int(prev.Month())
	view.NextYear, view.NextMonth = next.Year(), int(next.Month())

	if rep.Overall != nil {
		view.HasData = true
		view.Total = core.Money{Cents: rep.Overall.TotalCents}.String()
		view.Count = rep.Overall.Count
		view.Average = formatCentsFloat(rep.Overall.AverageCents)
		view.Min = core.Money{Cents: rep.Overall.MinCents}.String()
		view.Max = core.Money{Cents: rep.Overall.MaxCents}.String()

		var maxCents int64
		for _, c := range rep.Categories {
			if c.TotalCents > maxCents {
				maxCents = c.TotalCents
			}
		}
		for _, c := range rep.Categories {
			view.Rows = append(view.Rows, categoryRowView{
				Category:   c.Category.String(),
				Total:      core.Money{Cents: c.TotalCents}.String(),
				Count:      c.Count,
				Average:    formatCentsFloat(c.AverageCents),
				Percentage: c.Percentage,
				Width:      barWidth(c.TotalCents, maxCents),
			})
		}
	}
	s.render(w, r, "month_overview.html", view)
}

type yearlySummaryView struct {
	Year            int
	Total           string
	AveragePerMonth string
	Months          []struct {
		Name  string
		Total string
		Count int64
		Width int
	}
}

// handleYearlySummary renders the twelve-month rollup partial.
func (s *Server) handleYearlySummary(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	year := time.Now().Year()
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}

	sum, err := s.engine.YearlySummary(r.Context(), user.ID, year)
	if err != nil {
		if core.IsValidation(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Yearly summary failed",
			log.FieldError, err, log.FieldOwnerID, user.ID, log.FieldYear, year,
			log.FieldOperation, log.OpReport)
		InternalServerError("Error loading yearly summary").Write(w)
		return
	}

	view := yearlySummaryView{
		Year:            sum.Year,
		Total:           core.Money{Cents: sum.TotalCents}.String(),
		AveragePerMonth: formatCentsFloat(sum.AveragePerMonthCents),
	}
	var maxCents int64
	for _, m := range sum.Months {
		if m.TotalCents > maxCents {
			maxCents = m.TotalCents
		}
	}
	for _, m := range sum.Months {
		view.Months = append(view.Months, struct {
			Name  string
			Total string
			Count int64
			Width int
		}{
			Name:  time.Month(m.Month).String(),
			Total: core.Money{Cents: m.TotalCents}.String(),
			Count: m.Count,
			Width: barWidth(m.TotalCents, maxCents),
		})
	}
	s.render(w, r, "yearly_summary.html", view)
}

type insightsView struct {
	HasData         bool
	TotalCount      int64
	TopCategory     string
	TopCategoryAmt  string
	FrequentCat     string
	FrequentCount   int64
	LargestDesc     string
	LargestAmt      string
	LargestDate     string
	LargestCategory string
	Average         string
}

// handleInsights renders derived facts over the owner's full history.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	ins, err := s.engine.Insights(r.Context(), user.ID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Insights failed",
			log.FieldError, err, log.FieldOwnerID, user.ID, log.FieldOperation, log.OpReport)
		InternalServerError("Error loading insights").Write(w)
		return
	}

	view := insightsView{TotalCount: ins.TotalCount}
	if ins.TotalCount > 0 {
		view.HasData = true
		if ins.HighestSpendingCategory != nil {
			view.TopCategory = ins.HighestSpendingCategory.Category.String()
			view.TopCategoryAmt = core.Money{Cents: ins.HighestSpendingCategory.TotalCents}.String()
		}
		if ins.MostFrequentCategory != nil {
			view.FrequentCat = ins.MostFrequentCategory.Category.String()
			view.FrequentCount = ins.MostFrequentCategory.Count
		}
		if ins.LargestExpense != nil {
			view.LargestDesc = ins.LargestExpense.Description
			view.LargestAmt = ins.LargestExpense.Amount.String()
			view.LargestDate = ins.LargestExpense.OccurredAt.Format("2006-01-02")
			view.LargestCategory = ins.LargestExpense.Category.String()
		}
		if ins.AverageCents != nil {
			view.Average = formatCentsFloat(*ins.AverageCents)
		}
	}
	s.render(w, r, "insights.html", view)
}

type comparisonView struct {
	ThisLabel     string
	LastLabel     string
	ThisTotal     string
	LastTotal     string
	Delta         string
	DeltaUp       bool
	HasPercent    bool
	PercentChange string
	Rows          []struct {
		Category string
		This     string
		Last     string
		Up       bool
	}
}

// handleComparison renders current month vs previous month.
func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	cmp, err := s.engine.MonthOverMonth(r.Context(), user.ID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Month comparison failed",
			log.FieldError, err, log.FieldOwnerID, user.ID, log.FieldOperation, log.OpReport)
		InternalServerError("Error loading comparison").Write(w)
		return
	}

	view := comparisonView{
		ThisLabel: time.Month(cmp.ThisMonth).String() + " " + strconv.Itoa(cmp.ThisYear),
		LastLabel: time.Month(cmp.LastMonth).String() + " " + strconv.Itoa(cmp.LastYear),
		ThisTotal: core.Money{Cents: cmp.ThisTotalCents}.String(),
		LastTotal: core.Money{Cents: cmp.LastTotalCents}.String(),
		Delta:     core.Money{Cents: cmp.ThisTotalCents - cmp.LastTotalCents}.String(),
		DeltaUp:   cmp.ThisTotalCents > cmp.LastTotalCents,
	}
	if cmp.PercentChange != nil {
		view.HasPercent = true
		view.PercentChange = strconv.FormatFloat(*cmp.PercentChange, 'f', 1, 64) + "%"
	}
	for _, c := range cmp.Categories {
		view.Rows = append(view.Rows, struct {
			Category string
			This     string
			Last     string
			Up       bool
		}{
			Category: c.Category.String(),
			This:     core.Money{Cents: c.ThisCents}.String(),
			Last:     core.Money{Cents: c.LastCents}.String(),
			Up:       c.ThisCents > c.LastCents,
		})
	}
	s.render(w, r, "comparison.html", view)
}

// barWidth scales a value to a 0-100 bar, keeping tiny values visible.
func barWidth(cents, maxCents int64) int {
	if maxCents <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + maxCents/2) / maxCents)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// formatCentsFloat formats a fractional cent amount, e.g. averages.
func formatCentsFloat(cents float64) string {
	return "$" + strconv.FormatFloat(cents/100.0, 'f', 2, 64)
}
