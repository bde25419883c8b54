package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtrack/internal/auth"
	"spendtrack/internal/config"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/memstore"
	"spendtrack/internal/services"
)

func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()

	store := memstore.New()
	svc := services.NewExpenseService(store, nil)
	cfg := &config.Config{
		Port:                   "8081",
		SessionTTL:             time.Hour,
		SessionCleanupInterval: time.Hour,
	}
	logger := log.NewWithHandler(log.ComponentHTTP, slog.NewTextHandler(io.Discard, nil))

	srv, err := NewServer(cfg, store, svc, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, store
}

// createUser registers an account directly in the store.
func createUser(t *testing.T, store *memstore.Store, username, password string) int64 {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user, err := store.CreateUser(context.Background(), username, hash)
	require.NoError(t, err)
	return user.ID
}

// login performs the form login and returns the session cookie.
func login(t *testing.T, srv *Server, username, password string) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set after login")
	return nil
}

func authedRequest(method, target string, body io.Reader, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.AddCookie(cookie)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown user", "nobody", "whatever"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := url.Values{"username": {tc.username}, "password": {tc.password}}
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "Invalid username or password")
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")

	cookie := login(t, srv, "alice", "correct horse")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/", nil, cookie))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestUnauthenticatedRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("browser redirects to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("api gets 401 json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})

	t.Run("htmx gets redirect header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
	})
}

func TestLogoutInvalidatesSession(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/logout", nil, cookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/", nil, cookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestCreateAndListExpenses(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	form := url.Values{
		"description": {"weekly groceries"},
		"amount":      {"45.50"},
		"category":    {"Food"},
		"date":        {"2026-08-15"},
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/expenses", strings.NewReader(form.Encode()), cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "expenses:changed")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/expenses", nil, cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weekly groceries")
	assert.Contains(t, rec.Body.String(), "$45.50")
}

func TestCreateExpenseValidation(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	cases := []struct {
		name string
		form url.Values
	}{
		{"bad amount", url.Values{"description": {"x"}, "amount": {"abc"}, "category": {"Food"}}},
		{"zero amount", url.Values{"description": {"x"}, "amount": {"0"}, "category": {"Food"}}},
		{"unknown category", url.Values{"description": {"x"}, "amount": {"5"}, "category": {"Gadgets"}}},
		{"empty description", url.Values{"description": {"   "}, "amount": {"5"}, "category": {"Food"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/expenses", strings.NewReader(tc.form.Encode()), cookie))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestDeleteExpense(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	form := url.Values{"description": {"cinema"}, "amount": {"12"}, "category": {"Entertainment"}}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/expenses", strings.NewReader(form.Encode()), cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodDelete, "/expenses/1", nil, cookie))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodDelete, "/expenses/1", nil, cookie))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFiltersRejectBadInput(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/expenses?window=lastcentury", nil, cookie))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown window")
}

func TestExpensesScopedToOwner(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "pw-alice-1")
	createUser(t, store, "bob", "pw-bob-1")
	aliceCookie := login(t, srv, "alice", "pw-alice-1")
	bobCookie := login(t, srv, "bob", "pw-bob-1")

	form := url.Values{"description": {"alice only"}, "amount": {"9.99"}, "category": {"Other"}}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/expenses", strings.NewReader(form.Encode()), aliceCookie))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/expenses", nil, bobCookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "alice only")

	// Bob cannot delete Alice's record either.
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodDelete, "/expenses/1", nil, bobCookie))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMonthOverviewPartial(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	form := url.Values{"description": {"train pass"}, "amount": {"60"}, "category": {"Transport"}, "date": {"2026-08-03"}}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/expenses", strings.NewReader(form.Encode()), cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/ui/month-overview?year=2026&month=8", nil, cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "August 2026")
	assert.Contains(t, rec.Body.String(), "$60.00")
	assert.Contains(t, rec.Body.String(), "Transport")
}

func TestMonthOverviewRejectsBadMonth(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/ui/month-overview?year=2026&month=13", nil, cookie))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPIStats(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	for _, f := range []url.Values{
		{"description": {"groceries"}, "amount": {"30"}, "category": {"Food"}},
		{"description": {"more groceries"}, "amount": {"20"}, "category": {"Food"}},
		{"description": {"bus"}, "amount": {"10"}, "category": {"Transport"}},
	} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/expenses", strings.NewReader(f.Encode()), cookie))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/stats", nil, cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(6000), stats.TotalCents)
	assert.Equal(t, int64(3), stats.Count)
	assert.InDelta(t, 2000.0, stats.AverageCents, 0.01)
	require.Len(t, stats.ByCategory, 2)
	assert.Equal(t, "Food", stats.ByCategory[0].Category)
	assert.Equal(t, int64(5000), stats.ByCategory[0].TotalCents)
	require.NotNil(t, stats.Largest)
	assert.Equal(t, int64(3000), stats.Largest.AmountCents)
}

func TestStatsMonthlyTrendCrossesYearBoundary(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	insert := func(cents int64, at time.Time) {
		_, err := store.InsertExpense(ctx, core.Expense{
			OwnerID:     1,
			Amount:      core.Money{Cents: cents},
			Description: "seed",
			Category:    core.CategoryOther,
			OccurredAt:  at,
		})
		require.NoError(t, err)
	}
	insert(9000, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	insert(1000, time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC))
	insert(2000, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	now := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	rows := srv.trailingMonthlyTotals(ctx, 1, now, 6)
	require.Len(t, rows, 6)

	// September 2025 through February 2026; August falls outside.
	assert.Equal(t, statsMonthlyRow{Year: 2025, Month: 9}, rows[0])
	assert.Equal(t, statsMonthlyRow{Year: 2025, Month: 12, TotalCents: 1000, Count: 1}, rows[3])
	assert.Equal(t, statsMonthlyRow{Year: 2026, Month: 1, TotalCents: 2000, Count: 1}, rows[4])
	assert.Equal(t, statsMonthlyRow{Year: 2026, Month: 2}, rows[5])
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestWriteInvalidatesCachedList(t *testing.T) {
	srv, store := newTestServer(t)
	createUser(t, store, "alice", "correct horse")
	cookie := login(t, srv, "alice", "correct horse")

	// Prime the list cache.
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/expenses", nil, cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	form := url.Values{"description": {"fresh entry"}, "amount": {"5"}, "category": {"Other"}}
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/expenses", strings.NewReader(form.Encode()), cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/expenses", nil, cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fresh entry")
}
