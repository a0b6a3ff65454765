package server

import (
	"errors"
	"net/http"

	"ainastudio/pkg/domain"
	"ainastudio/pkg/pricing"
	"ainastudio/services/studio/internal/app"
)

func (s *Server) handleGenerateContent(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req contentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.app.GenerateContent(r.Context(), user.ID, app.ContentRequest{
		Description: req.Description,
		Platform:    domain.Platform(req.Platform),
		WithImage:   req.WithImage,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleQuote is public so the pricing page can show discounts before login.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	plan := app.ParsePlan(q.Get("plan"))
	if plan == "" {
		plan = domain.PlanMonthly
	}
	quote, err := s.app.Quote(plan, q.Get("code"))
	resp := quoteResponse{Quote: quote, Base: quote.Base(), Final: quote.Final()}
	if err != nil {
		if !errors.Is(err, pricing.ErrInvalidPromoCode) {
			writeAppError(w, r, err)
			return
		}
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, err := s.app.Subscription(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	url, err := s.app.StartCheckout(r.Context(), user, app.ParsePlan(req.Plan), req.PromoCode)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

func (s *Server) handleTestMode(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req testModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := s.app.ActivateTestMode(r.Context(), user.ID, app.ParsePlan(req.Plan), req.Confirm)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "studio.subscription.test_mode", "success", "user_id", user.ID, "plan", sub.Plan)
	writeJSON(w, http.StatusCreated, sub)
}

type contentRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
	Platform    string `json:"platform"`
	WithImage   bool   `json:"withImage"`
}

type quoteResponse struct {
	pricing.Quote
	Base  float64 `json:"base"`
	Final float64 `json:"final"`
	Error string  `json:"error,omitempty"`
}

type checkoutRequest struct {
	Plan      string `json:"plan" validate:"required"`
	PromoCode string `json:"promoCode"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type testModeRequest struct {
	Plan    string `json:"plan" validate:"required"`
	Confirm bool   `json:"confirm"`
}
