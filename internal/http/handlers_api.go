package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).String(),
	})
}

// handleReady verifies the store answers before reporting ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.backend.UserCount(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{
		"list_entries":    s.listCache.Size(),
		"monthly_entries": s.monthlyCache.Size(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in a Prometheus-like text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	secMetrics := s.detector.GetMetrics()

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP expenses_created_total Total number of expenses created\n")
	fmt.Fprintf(w, "# TYPE expenses_created_total counter\n")
	fmt.Fprintf(w, "expenses_created_total %d\n\n", atomic.LoadInt64(&s.metrics.totalExpenses))

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total %d\n\n", atomic.LoadInt64(&s.metrics.cacheHits))

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total %d\n\n", atomic.LoadInt64(&s.metrics.cacheMisses))

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"list\"} %d\n", s.listCache.Size())
	fmt.Fprintf(w, "cache_entries{type=\"monthly\"} %d\n\n", s.monthlyCache.Size())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limited requests\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", secMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.startedAt).Seconds())
}

type statsResponse struct {
	TotalCents   int64               `json:"total_cents"`
	Count        int64               `json:"count"`
	AverageCents float64             `json:"average_cents"`
	MinCents     int64               `json:"min_cents,omitempty"`
	MaxCents     int64               `json:"max_cents,omitempty"`
	ByCategory   []statsCategoryRow  `json:"by_category"`
	Largest      *statsLargestRow    `json:"largest,omitempty"`
	MonthlyTotals []statsMonthlyRow  `json:"monthly_totals"`
}

type statsCategoryRow struct {
	Category   string  `json:"category"`
	TotalCents int64   `json:"total_cents"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type statsLargestRow struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	OccurredAt  string `json:"occurred_at"`
}

type statsMonthlyRow struct {
	Year       int   `json:"year"`
	Month      int   `json:"month"`
	TotalCents int64 `json:"total_cents"`
	Count      int64 `json:"count"`
}

// handleAPIStats returns the owner's all-time statistics as JSON.
func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	ctx := r.Context()

	overall, err := s.backend.OverallAggregate(ctx, user.ID, core.Filter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "Stats aggregate failed",
			log.FieldError, err, log.FieldOwnerID, user.ID, log.FieldOperation, log.OpRead)
		writeJSONError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	resp := statsResponse{
		TotalCents: overall.TotalCents,
		Count:      overall.Count,
		ByCategory: []statsCategoryRow{},
		MonthlyTotals: []statsMonthlyRow{},
	}
	if overall.Count > 0 {
		resp.AverageCents = float64(overall.TotalCents) / float64(overall.Count)
		resp.MinCents = overall.MinCents
		resp.MaxCents = overall.MaxCents
	}

	aggs, err := s.backend.CategoryAggregates(ctx, user.ID, core.Filter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "Stats category aggregates failed",
			log.FieldError, err, log.FieldOwnerID, user.ID, log.FieldOperation, log.OpRead)
		writeJSONError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	counts := make(map[core.Category]int64, len(aggs))
	for _, a := range aggs {
		counts[a.Category] = a.Count
	}
	for _, entry := range report.BreakdownFromAggregates(aggs) {
		resp.ByCategory = append(resp.ByCategory, statsCategoryRow{
			Category:   entry.Category.String(),
			TotalCents: entry.TotalCents,
			Count:      counts[entry.Category],
			Percentage: entry.Percentage,
		})
	}

	if largest, err := s.backend.LargestExpense(ctx, user.ID); err == nil && largest != nil {
		resp.Largest = &statsLargestRow{
			ID:          largest.ID,
			Description: largest.Description,
			AmountCents: largest.Amount.Cents,
			Category:    largest.Category.String(),
			OccurredAt:  largest.OccurredAt.Format(time.RFC3339),
		}
	}

	resp.MonthlyTotals = s.trailingMonthlyTotals(ctx, user.ID, time.Now().UTC(), 6)

	writeJSON(w, http.StatusOK, resp)
}

// trailingMonthlyTotals returns per-month totals for the n calendar
// months ending at now's month, oldest first. The window crosses the
// year boundary when needed; months without records report zeros.
func (s *Server) trailingMonthlyTotals(ctx context.Context, owner int64, now time.Time, n int) []statsMonthlyRow {
	byYear := make(map[int]map[int]core.MonthTotal)
	rows := make([]statsMonthlyRow, 0, n)

	for i := n - 1; i >= 0; i-- {
		m := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		months, ok := byYear[m.Year()]
		if !ok {
			months = make(map[int]core.MonthTotal)
			if totals, err := s.backend.MonthlyTotals(ctx, owner, m.Year()); err == nil {
				for _, t := range totals {
					months[t.Month] = t
				}
			} else {
				s.logger.ErrorContext(ctx, "Stats monthly totals failed",
					log.FieldError, err, log.FieldOwnerID, owner, log.FieldOperation, log.OpRead)
			}
			byYear[m.Year()] = months
		}
		t := months[int(m.Month())]
		rows = append(rows, statsMonthlyRow{
			Year:       m.Year(),
			Month:      int(m.Month()),
			TotalCents: t.TotalCents,
			Count:      t.Count,
		})
	}
	return rows
}
