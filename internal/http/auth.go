package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
)

type contextKey string

const userContextKey contextKey = "user"

const sessionCookieName = "session"

// currentUser returns the authenticated user, or nil outside requireAuth.
func currentUser(ctx context.Context) *core.User {
	u, _ := ctx.Value(userContextKey).(*core.User)
	return u
}

// requireAuth resolves the session cookie to a user and stores the user in
// the request context. Sessions past the halfway point of their lifetime
// are renewed, so active users never get logged out mid-use.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			s.unauthenticated(w, r)
			return
		}

		info, err := s.backend.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, core.ErrUserNotFound) {
				s.logger.ErrorContext(r.Context(), "Session validation failed", log.FieldError, err)
			}
			s.clearSessionCookie(w)
			s.unauthenticated(w, r)
			return
		}

		if time.Until(info.ExpiresAt) < s.sessionTTL/2 {
			newExpiry := time.Now().Add(s.sessionTTL)
			if err := s.backend.RenewSession(r.Context(), cookie.Value, newExpiry); err != nil {
				s.logger.WarnContext(r.Context(), "Session renewal failed", log.FieldError, err)
			} else {
				s.setSessionCookie(w, cookie.Value, newExpiry)
			}
		}

		ctx := context.WithValue(r.Context(), userContextKey, info.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// unauthenticated redirects browsers to the login page; API and htmx
// callers get a plain 401 instead so they can react client-side.
func (s *Server) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
