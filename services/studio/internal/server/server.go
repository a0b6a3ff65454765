package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ainastudio/internal/metrics"
	"ainastudio/internal/servicetoken"
	"ainastudio/internal/util"
	"ainastudio/pkg/domain"
	"ainastudio/pkg/onboarding"
	"ainastudio/pkg/pricing"
	"ainastudio/pkg/storage"
	"ainastudio/services/studio/internal/app"
	"ainastudio/services/studio/internal/authclient"
	"ainastudio/services/studio/internal/billingclient"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Auth           *authclient.Client
	Metrics        *metrics.Metrics
	TrustedProxies *util.TrustedProxies
}

// Server exposes the product API.
type Server struct {
	app            *app.App
	auth           *authclient.Client
	metrics        *metrics.Metrics
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:            cfg.App,
		auth:           cfg.Auth,
		metrics:        cfg.Metrics,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
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
	s.mux.Handle("GET /api/pricing/quote", s.metrics.InstrumentRoute("GET /api/pricing/quote", http.HandlerFunc(s.handleQuote)))

	// onboarding
	s.handle("GET /api/onboarding", s.handleOnboarding)
	s.handle("POST /api/onboarding/reset", s.handleOnboardingReset)
	s.handle("PUT /api/onboarding/basic-info", s.handleBasicInfo)
	s.handle("POST /api/onboarding/logo", s.handleUploadLogo)
	s.handle("DELETE /api/onboarding/logo", s.handleClearLogo)
	s.handle("POST /api/onboarding/photos", s.handleUploadPhotos)
	s.handle("DELETE /api/onboarding/photos/{index}", s.handleRemovePhoto)
	s.handle("POST /api/onboarding/keywords", s.handleAddKeyword)
	s.handle("DELETE /api/onboarding/keywords/{keyword}", s.handleRemoveKeyword)
	s.handle("PUT /api/onboarding/tone-platforms", s.handleTonePlatforms)
	s.handle("POST /api/onboarding/platforms/{platform}/toggle", s.handleTogglePlatform)
	s.handle("POST /api/onboarding/calibration", s.handleStartCalibration)
	s.handle("POST /api/onboarding/calibration/select", s.handleSelectCandidate)
	s.handle("POST /api/onboarding/calibration/confirm", s.handleConfirmCalibration)
	s.handle("POST /api/onboarding/calibration/regenerate", s.handleRegenerate)
	s.handle("POST /api/onboarding/continue", s.handleContinue)
	s.handle("POST /api/onboarding/back", s.handleBack)

	// business profile
	s.handle("GET /api/business", s.handleGetBusiness)
	s.handle("PATCH /api/business", s.handlePatchBusiness)
	s.handle("DELETE /api/business", s.handleDeleteBusiness)

	// templates
	s.handle("GET /api/templates", s.handleListTemplates)
	s.handle("POST /api/templates", s.handleCreateTemplate)
	s.handle("GET /api/templates/{id}", s.handleGetTemplate)
	s.handle("PATCH /api/templates/{id}", s.handlePatchTemplate)
	s.handle("DELETE /api/templates/{id}", s.handleDeleteTemplate)
	s.handle("POST /api/templates/{id}/favorite", s.handleToggleFavorite)
	s.handle("POST /api/templates/{id}/use", s.handleUseTemplate)

	// content and billing
	s.handle("POST /api/content/generate", s.handleGenerateContent)
	s.handle("GET /api/subscription", s.handleGetSubscription)
	s.handle("POST /api/subscription/checkout", s.handleCheckout)
	s.handle("POST /api/subscription/test-mode", s.handleTestMode)
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) handle(pattern string, h authHandler) {
	s.mux.Handle(pattern, s.metrics.InstrumentRoute(pattern, s.authenticated(h)))
}

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := servicetoken.BearerToken(r)
		if !ok {
			s.audit(r, "studio.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.auth.Me(r.Context(), token)
		switch {
		case errors.Is(err, authclient.ErrUnauthorized):
			s.audit(r, "studio.authorize", "fail", "reason", "token_rejected")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		case err != nil:
			util.LoggerFromContext(r.Context()).Error("auth service call failed", "err", err)
			writeError(w, http.StatusBadGateway, "auth service unavailable")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

// decodeJSON reads a bounded JSON body and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeJSONLimit(w, r, dst, 1<<20)
}

func decodeJSONLimit(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, limit)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := util.ValidateStruct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
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

func writeErrorCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// writeAppError maps app and domain errors onto HTTP responses.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var billingErr *billingclient.APIError
	switch {
	case errors.As(err, &billingErr):
		writeError(w, billingErr.Status, billingErr.Message)
	case errors.Is(err, onboarding.ErrGateClosed):
		writeErrorCode(w, http.StatusConflict, err.Error(), "step_incomplete")
	case errors.Is(err, app.ErrPaymentUnavailable):
		writeErrorCode(w, http.StatusServiceUnavailable, app.ErrPaymentUnavailable.Error(), "payment_unavailable")
	case errors.Is(err, app.ErrAlreadyOnboarded):
		writeErrorCode(w, http.StatusConflict, err.Error(), "already_onboarded")
	case errors.Is(err, onboarding.ErrWrongStep),
		errors.Is(err, onboarding.ErrCompleted),
		errors.Is(err, onboarding.ErrRoundInProgress),
		errors.Is(err, onboarding.ErrNotSelecting),
		errors.Is(err, onboarding.ErrNothingToRegenerate),
		errors.Is(err, onboarding.ErrStaleRound),
		errors.Is(err, app.ErrAlreadySubscribed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, onboarding.ErrInvalidStep),
		errors.Is(err, onboarding.ErrInvalidField),
		errors.Is(err, onboarding.ErrDescriptionRequired),
		errors.Is(err, onboarding.ErrInvalidSelection),
		errors.Is(err, onboarding.ErrNoSelection),
		errors.Is(err, app.ErrDescriptionRequired),
		errors.Is(err, app.ErrTemplateNameMissing),
		errors.Is(err, app.ErrInvalidPlatform),
		errors.Is(err, app.ErrInvalidTone),
		errors.Is(err, app.ErrInvalidPlan),
		errors.Is(err, app.ErrConfirmRequired),
		errors.Is(err, pricing.ErrInvalidPromoCode),
		errors.Is(err, storage.ErrEmptyFile),
		errors.Is(err, storage.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, app.ErrBusinessNotFound),
		errors.Is(err, app.ErrTemplateNotFound),
		errors.Is(err, app.ErrNoSubscription):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrTestModeDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrTextGeneration):
		util.LoggerFromContext(r.Context()).Warn("content generation failed", "err", err)
		writeError(w, http.StatusBadGateway, app.ErrTextGeneration.Error())
	case errors.Is(err, onboarding.ErrPersistFailed):
		util.LoggerFromContext(r.Context()).Error("business insert failed", "err", err)
		writeError(w, http.StatusInternalServerError, onboarding.ErrPersistFailed.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
