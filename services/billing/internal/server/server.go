package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ainastudio/internal/servicetoken"
	"ainastudio/internal/util"
	"ainastudio/pkg/pricing"
	"ainastudio/services/billing/internal/app"
)

// ServiceKeyHeader carries the shared secret on service-to-service calls.
const ServiceKeyHeader = "X-Relay-Key"

// Stripe webhooks are small; anything bigger is not from Stripe.
const maxWebhookBytes = 64 << 10

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	ServiceKey     string
	ServiceTokens  *servicetoken.Verifier
	TrustedProxies *util.TrustedProxies
}

// Server exposes the payment relay endpoints.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	serviceKey     string
	serviceTokens  *servicetoken.Verifier
	trustedProxies *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		serviceKey:     cfg.ServiceKey,
		serviceTokens:  cfg.ServiceTokens,
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
	s.mux.HandleFunc("POST /api/create-checkout-session", s.handleCreateCheckoutSession)
	s.mux.HandleFunc("POST /api/webhooks/stripe", s.handleStripeWebhook)
}

// callerAllowed prefers a bearer service token and falls back to the
// shared key. With neither configured the endpoint is open.
func (s *Server) callerAllowed(r *http.Request) bool {
	if _, ok := servicetoken.BearerToken(r); ok && s.serviceTokens != nil {
		_, err := s.serviceTokens.Authorize(r)
		if err != nil {
			util.LoggerFromContext(r.Context()).Warn("service token rejected", "err", err)
		}
		return err == nil
	}
	if s.serviceKey == "" {
		return s.serviceTokens == nil
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get(ServiceKeyHeader)), []byte(s.serviceKey)) == 1
}

func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if !s.callerAllowed(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := util.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	promo := ""
	if req.PromoCode != nil {
		promo = *req.PromoCode
	}
	url, err := s.app.CreateCheckoutSession(r.Context(), app.CheckoutInput{
		UserID:    req.UserID,
		Email:     req.Email,
		PriceType: req.PriceType,
		PromoCode: promo,
	})
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrInvalidPromoCode),
			errors.Is(err, app.ErrInvalidPlan),
			errors.Is(err, app.ErrUserRequired),
			errors.Is(err, app.ErrPromoUnavailable):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrCheckoutFailed):
			util.LoggerFromContext(r.Context()).Error("checkout failed", "user_id", req.UserID, "err", err)
			writeError(w, http.StatusBadGateway, app.ErrCheckoutFailed.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := s.app.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		logger := util.LoggerFromContext(r.Context())
		switch {
		case errors.Is(err, app.ErrInvalidSignature):
			logger.Warn("audit", "event", "billing.webhook", "outcome", "fail",
				"client_ip", util.ClientIP(r, s.trustedProxies), "err", err)
			writeError(w, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, app.ErrInvalidEvent):
			logger.Warn("webhook event rejected", "err", err)
			writeError(w, http.StatusBadRequest, "invalid event")
		default:
			// 5xx makes Stripe retry.
			logger.Error("webhook processing failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type checkoutRequest struct {
	UserID    string  `json:"userId" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	PriceType string  `json:"priceType" validate:"required,oneof=monthly yearly"`
	PromoCode *string `json:"promoCode"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
