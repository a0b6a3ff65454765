package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"ainastudio/internal/ratelimit"
	"ainastudio/internal/servicetoken"
	"ainastudio/internal/util"
	"ainastudio/pkg/auth"
	"ainastudio/pkg/domain"
	"ainastudio/services/auth/internal/app"
	"ainastudio/services/auth/internal/security"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	SignupLimiter  *ratelimit.FixedWindowLimiter
	LoginLimiter   *ratelimit.FixedWindowLimiter
	Alerter        *security.AuditAlerter
	TrustedProxies *util.TrustedProxies
}

// Server exposes the account endpoints.
type Server struct {
	cfg Config
	app *app.App
	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg, app: cfg.App, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.HandleFunc("POST /auth/signup", s.handleSignup)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /auth/logout", s.handleLogout)
	s.mux.HandleFunc("GET /auth/me", s.withUser(s.handleMe))
	s.mux.HandleFunc("PATCH /auth/me/password", s.withUser(s.handleChangePassword))
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := servicetoken.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			s.audit(r, "auth.authorize", "fail")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.cfg.SignupLimiter, "auth.signup") {
		return
	}
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := util.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.app.SignUp(req.Email, req.Password)
	switch {
	case err == nil:
		s.audit(r, "auth.signup", "success", "user_id", sess.User.ID)
		writeJSON(w, http.StatusCreated, sess)
		return
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrEmailAndPasswordRequired), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	s.audit(r, "auth.signup", "fail", "err", err)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.cfg.LoginLimiter, "auth.login") {
		return
	}
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.app.Login(req.Email, req.Password)
	switch {
	case err == nil:
		s.audit(r, "auth.login", "success", "user_id", sess.User.ID)
		writeJSON(w, http.StatusOK, sess)
		return
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrUserDisabled):
		writeError(w, http.StatusUnauthorized, app.ErrInvalidCredentials.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	s.audit(r, "auth.login", "fail", "err", err)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := servicetoken.BearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		s.audit(r, "auth.logout", "fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.audit(r, "auth.logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user domain.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req passwordChange
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := util.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := s.app.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		s.audit(r, "auth.password.change", "success", "user_id", user.ID)
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, app.ErrPasswordUnchanged),
		errors.Is(err, app.ErrCurrentPasswordRequired),
		errors.Is(err, app.ErrNewPasswordRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	s.audit(r, "auth.password.change", "fail", "user_id", user.ID, "err", err)
}

// allow charges one attempt against the caller's IP and answers 429 once the
// window is spent.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, event string) bool {
	d := limiter.Allow(r.Context(), event+":"+util.ClientIP(r, s.cfg.TrustedProxies))
	if d.Allowed {
		return true
	}
	s.audit(r, event, "rate_limited")
	w.Header().Set("Retry-After", strconv.Itoa(max(1, int(d.RetryAfter.Seconds()))))
	writeError(w, http.StatusTooManyRequests, "too many requests")
	return false
}

// audit records a security event. Failures also count toward the alert
// threshold for the client IP.
func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	ip := util.ClientIP(r, s.cfg.TrustedProxies)
	logger := util.LoggerFromContext(r.Context()).With("event", event, "outcome", outcome, "client_ip", ip)
	if outcome == "success" {
		logger.Info("audit", attrs...)
	} else {
		logger.Warn("audit", attrs...)
	}
	if s.cfg.Alerter == nil {
		return
	}
	res, err := s.cfg.Alerter.Observe(context.WithoutCancel(r.Context()), event, outcome, ip)
	if err != nil {
		slog.Warn("audit alerter unavailable", "err", err)
		return
	}
	if res.Triggered {
		logger.Error("security_alert", "count", res.Count, "threshold", res.Threshold, "window", res.Window.String())
	}
}

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type passwordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
