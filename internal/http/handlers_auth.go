package http

import (
	"errors"
	"net/http"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// Already logged in: straight to the dashboard.
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if _, err := s.backend.ValidateSession(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	s.render(w, r, "login.html", loginPageData{})
}

type loginPageData struct {
	Error    string
	Username string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")
	if username == "" || password == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "login.html", loginPageData{Error: "Username and password are required", Username: username})
		return
	}

	user, err := s.backend.GetUserByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, core.ErrUserNotFound) {
			s.logger.ErrorContext(r.Context(), "User lookup failed",
				log.FieldError, err, log.FieldUsername, username)
			InternalServerError("Login failed").Write(w)
			return
		}
		// Unknown user and wrong password produce the same message.
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		s.logger.WarnContext(r.Context(), "Failed login attempt",
			log.FieldUsername, username, log.FieldOperation, log.OpLogin)
		w.WriteHeader(http.StatusUnauthorized)
		s.render(w, r, "login.html", loginPageData{Error: "Invalid username or password", Username: username})
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Session token generation failed", log.FieldError, err)
		InternalServerError("Login failed").Write(w)
		return
	}

	expiresAt := time.Now().Add(s.sessionTTL)
	if err := s.backend.CreateSession(r.Context(), token, user.ID, expiresAt); err != nil {
		s.logger.ErrorContext(r.Context(), "Session creation failed",
			log.FieldError, err, log.FieldOwnerID, user.ID)
		InternalServerError("Login failed").Write(w)
		return
	}

	s.setSessionCookie(w, token, expiresAt)
	s.logger.InfoContext(r.Context(), "User logged in",
		log.FieldUsername, user.Username, log.FieldOwnerID, user.ID,
		log.FieldOperation, log.OpLogin)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.backend.DeleteSession(r.Context(), cookie.Value); err != nil {
			s.logger.WarnContext(r.Context(), "Session deletion failed",
				log.FieldError, err, log.FieldOperation, log.OpLogout)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
