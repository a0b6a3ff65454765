package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"ainastudio/internal/metrics"
	"ainastudio/internal/ratelimit"
	"ainastudio/internal/servicetoken"
	"ainastudio/internal/util"
	"ainastudio/services/relay/internal/app"
)

// RelayKeyHeader carries the shared secret on service-to-service calls.
const RelayKeyHeader = "X-Relay-Key"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	RelayKey       string
	ServiceTokens  *servicetoken.Verifier
	Limiter        *ratelimit.FixedWindowLimiter
	Metrics        *metrics.Metrics
	TrustedProxies *util.TrustedProxies
}

// Server exposes the generation endpoints.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	relayKey       string
	serviceTokens  *servicetoken.Verifier
	limiter        *ratelimit.FixedWindowLimiter
	metrics        *metrics.Metrics
	trustedProxies *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		relayKey:       cfg.RelayKey,
		serviceTokens:  cfg.ServiceTokens,
		limiter:        cfg.Limiter,
		metrics:        cfg.Metrics,
		trustedProxies: cfg.TrustedProxies,
	}
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
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	s.handle("POST /api/generate-image", s.handleGenerateImage)
	s.handle("POST /api/generate-text", s.handleGenerateText)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.metrics.InstrumentRoute(pattern, s.guard(h)))
}

// guard checks the caller credentials and the per-IP rate limit.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorizeCaller(r) {
			writeFailure(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		decision := s.limiter.Allow(r.Context(), "relay:"+util.ClientIP(r, s.trustedProxies))
		if !decision.Allowed {
			secs := int(decision.RetryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			util.LoggerFromContext(r.Context()).Warn("audit", "event", "relay.generate", "outcome", "rate_limited")
			writeFailure(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

// authorizeCaller accepts a service token when a verifier is configured,
// then falls back to the shared relay key.
func (s *Server) authorizeCaller(r *http.Request) bool {
	if s.serviceTokens != nil {
		if _, ok := servicetoken.BearerToken(r); ok {
			caller, err := s.serviceTokens.Authorize(r)
			if err != nil {
				util.LoggerFromContext(r.Context()).Warn("service token rejected", "err", err)
				return false
			}
			util.LoggerFromContext(r.Context()).Debug("service token accepted", "caller", caller)
			return true
		}
		if s.relayKey == "" {
			return false
		}
	}
	if s.relayKey == "" {
		return true
	}
	got := r.Header.Get(RelayKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.relayKey)) == 1
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePrompt(w, r)
	if !ok {
		return
	}
	image, err := s.app.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{Success: true, Image: image})
}

func (s *Server) handleGenerateText(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePrompt(w, r)
	if !ok {
		return
	}
	text, err := s.app.GenerateText(r.Context(), req.Prompt)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Success: true, Text: text})
}

func decodePrompt(w http.ResponseWriter, r *http.Request) (promptRequest, bool) {
	var req promptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if err := util.ValidateStruct(req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrPromptRequired), errors.Is(err, app.ErrPromptTooLong):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrProviderFailed):
		// Upstream details stay in the logs.
		writeFailure(w, http.StatusBadGateway, app.ErrProviderFailed.Error())
	default:
		writeFailure(w, http.StatusInternalServerError, "internal error")
	}
}

type promptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type imageResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
}

type textResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failureResponse{Success: false, Error: msg})
}
