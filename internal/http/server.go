// Package http serves the web frontend: session-based auth, server-side
// rendered pages with htmx partials, and a small JSON API for scripts.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"spendtrack/internal/backend"
	"spendtrack/internal/cache"
	"spendtrack/internal/config"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/middleware/ratelimit"
	"spendtrack/internal/middleware/security"
	"spendtrack/internal/middleware/trace"
	"spendtrack/internal/report"
	"spendtrack/internal/services"
	appweb "spendtrack/web"
)

// appMetrics tracks application-level counters exposed on /metrics.
type appMetrics struct {
	startedAt     time.Time
	totalExpenses int64
	cacheHits     int64
	cacheMisses   int64
}

type Server struct {
	http.Server

	backend backend.Backend
	service *services.ExpenseService
	engine  *report.Engine

	templates *template.Template
	logger    *log.Logger

	sessionTTL   time.Duration
	secureCookie bool

	// Read caches keyed by "<owner>:<shape>". A write drops every key of
	// the writing owner, so other owners keep their cached reads.
	listCache    *cache.LRUCache[[]core.Expense]
	monthlyCache *cache.LRUCache[*core.MonthlyReport]
	cacheManager *cache.Manager

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	metrics appMetrics

	stopSessionCleanup chan struct{}
	shutdownOnce       sync.Once
}

// NewServer wires routes, templates and middleware into a ready-to-run
// server. The caller owns the backend and must close it after Shutdown.
func NewServer(cfg *config.Config, b backend.Backend, svc *services.ExpenseService, logger *log.Logger) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		backend:            b,
		service:            svc,
		engine:             report.New(b),
		logger:             logger.WithComponent(log.ComponentHTTP),
		sessionTTL:         cfg.SessionTTL,
		secureCookie:       cfg.SecureCookie,
		listCache:          cache.NewLRUCache[[]core.Expense](200, 5*time.Minute),
		monthlyCache:       cache.NewLRUCache[*core.MonthlyReport](100, 5*time.Minute),
		cacheManager:       cache.NewManager(),
		rateLimiter:        ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:           security.NewDetector(),
		metrics:            appMetrics{startedAt: time.Now()},
		stopSessionCleanup: make(chan struct{}),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := template.New("").Funcs(template.FuncMap{
		"money": func(cents int64) string { return core.Money{Cents: cents}.String() },
		"monthName": func(m int) string {
			if m < 1 || m > 12 {
				return strconv.Itoa(m)
			}
			return time.Month(m).String()
		},
		"pct": func(p float64) string { return strconv.FormatFloat(p, 'f', 1, 64) },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s.templates = t

	s.cacheManager.Register(s.listCache)
	s.cacheManager.Register(s.monthlyCache)
	s.cacheManager.StartCleanup(10 * time.Minute)
	go s.sessionCleanupLoop(cfg.SessionCleanupInterval)

	if static, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(fileServer))
	} else {
		s.logger.Warn("Failed to mount embedded static assets", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /{$}", s.requireAuth(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("GET /expenses", s.requireAuth(http.HandlerFunc(s.handleListExpenses)))
	mux.Handle("POST /expenses", s.requireAuth(http.HandlerFunc(s.handleCreateExpense)))
	mux.Handle("PUT /expenses/{id}", s.requireAuth(http.HandlerFunc(s.handleUpdateExpense)))
	mux.Handle("DELETE /expenses/{id}", s.requireAuth(http.HandlerFunc(s.handleDeleteExpense)))

	mux.Handle("GET /reports", s.requireAuth(http.HandlerFunc(s.handleReportsPage)))
	mux.Handle("GET /ui/month-overview", s.requireAuth(http.HandlerFunc(s.handleMonthOverview)))
	mux.Handle("GET /ui/yearly-summary", s.requireAuth(http.HandlerFunc(s.handleYearlySummary)))
	mux.Handle("GET /ui/insights", s.requireAuth(http.HandlerFunc(s.handleInsights)))
	mux.Handle("GET /ui/comparison", s.requireAuth(http.HandlerFunc(s.handleComparison)))

	mux.Handle("GET /api/stats", s.requireAuth(http.HandlerFunc(s.handleAPIStats)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.tracer.Middleware(headers.Middleware(limit(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// sessionCleanupLoop periodically removes expired sessions from the store.
func (s *Server) sessionCleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.backend.CleanExpiredSessions(ctx); err != nil {
				s.logger.Warn("Session cleanup failed", log.FieldError, err)
			}
			cancel()
		case <-s.stopSessionCleanup:
			return
		}
	}
}

// Shutdown stops the background goroutines, then the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopSessionCleanup)
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func ownerCachePrefix(owner int64) string {
	return strconv.FormatInt(owner, 10) + ":"
}

// invalidateOwner drops every cached read of the given owner.
func (s *Server) invalidateOwner(owner int64) {
	s.listCache.DeletePrefix(ownerCachePrefix(owner))
	s.monthlyCache.DeletePrefix(ownerCachePrefix(owner))
}

// cachedMonthlyReport serves a monthly report from cache when possible.
func (s *Server) cachedMonthlyReport(ctx context.Context, owner int64, year, month int) (*core.MonthlyReport, error) {
	key := ownerCachePrefix(owner) + "monthly:" + strconv.Itoa(year) + "-" + strconv.Itoa(month)
	if rep, ok := s.monthlyCache.Get(key); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		return rep, nil
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	rep, err := s.engine.MonthlyReport(ctx, owner, year, month)
	if err != nil {
		return nil, err
	}
	s.monthlyCache.Set(key, rep)
	return rep, nil
}

// cachedList serves a filtered expense list from cache when possible. The
// key must be canonical for the filter so equal queries share an entry.
func (s *Server) cachedList(ctx context.Context, owner int64, key string, load func() ([]core.Expense, error)) ([]core.Expense, error) {
	fullKey := ownerCachePrefix(owner) + "list:" + key
	if items, ok := s.listCache.Get(fullKey); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		out := make([]core.Expense, len(items))
		copy(out, items)
		return out, nil
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	items, err := load()
	if err != nil {
		return nil, err
	}
	s.listCache.Set(fullKey, items)
	return items, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
