package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ainastudio/internal/servicetoken"
	"ainastudio/pkg/domain"
	"ainastudio/pkg/store"
	"ainastudio/services/billing/internal/app"
)

const webhookSecret = "whsec_server_test"

type stubProvider struct {
	err error
}

func (p stubProvider) CreateCheckoutSession(context.Context, app.CheckoutRequest) (app.CheckoutSession, error) {
	if p.err != nil {
		return app.CheckoutSession{}, p.err
	}
	return app.CheckoutSession{ID: "cs_1", URL: "https://checkout.test/cs_1"}, nil
}

func newTestServer(t *testing.T, provider stubProvider, subs *store.MemoryStore, serviceKey string) http.Handler {
	t.Helper()
	core, err := app.New(app.Config{
		Store:         subs,
		Provider:      provider,
		WebhookSecret: webhookSecret,
		Prices:        map[domain.Plan]string{domain.PlanMonthly: "price_m", domain.PlanYearly: "price_y"},
		Coupons:       map[string]string{"AINA20": "c1", "PEPE20": "c2"},
		SuccessURL:    "http://app/ok",
		CancelURL:     "http://app/cancel",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return New(Config{App: core, ServiceKey: serviceKey}).Router()
}

func postJSON(t *testing.T, h http.Handler, path, body string, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestCreateCheckoutSessionEndpoint(t *testing.T) {
	h := newTestServer(t, stubProvider{}, store.NewMemoryStore(), "")
	cases := []struct {
		name   string
		body   string
		status int
		key    string
		value  string
	}{
		{"ok with null promo", `{"userId":"u1","email":"a@b.fr","priceType":"monthly","promoCode":null}`, http.StatusOK, "url", "https://checkout.test/cs_1"},
		{"ok with promo", `{"userId":"u1","email":"a@b.fr","priceType":"yearly","promoCode":"pepe20"}`, http.StatusOK, "url", "https://checkout.test/cs_1"},
		{"invalid promo", `{"userId":"u1","email":"a@b.fr","priceType":"monthly","promoCode":"FOO"}`, http.StatusBadRequest, "error", "invalid promo code"},
		{"bad price type", `{"userId":"u1","email":"a@b.fr","priceType":"weekly"}`, http.StatusBadRequest, "error", "priceType must be one of: monthly yearly"},
		{"missing email", `{"userId":"u1","priceType":"monthly"}`, http.StatusBadRequest, "error", "email is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := postJSON(t, h, "/api/create-checkout-session", tc.body, nil)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if out[tc.key] != tc.value {
				t.Fatalf("expected %s=%q, got %v", tc.key, tc.value, out)
			}
		})
	}
}

func TestCreateCheckoutSessionProviderDown(t *testing.T) {
	h := newTestServer(t, stubProvider{err: errors.New("timeout")}, store.NewMemoryStore(), "")
	rec, _ := postJSON(t, h, "/api/create-checkout-session", `{"userId":"u1","email":"a@b.fr","priceType":"monthly"}`, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestCreateCheckoutSessionServiceKey(t *testing.T) {
	h := newTestServer(t, stubProvider{}, store.NewMemoryStore(), "k1")
	body := `{"userId":"u1","email":"a@b.fr","priceType":"monthly"}`
	if rec, _ := postJSON(t, h, "/api/create-checkout-session", body, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}
	if rec, _ := postJSON(t, h, "/api/create-checkout-session", body, http.Header{ServiceKeyHeader: {"k1"}}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", rec.Code)
	}
}

func TestCreateCheckoutSessionServiceToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	verifier, _ := servicetoken.NewVerifierFromKeys("billing", []string{"studio"}, map[string]*rsa.PublicKey{servicetoken.DefaultKeyID: &key.PublicKey})
	signer, _ := servicetoken.NewSignerFromKey("studio", servicetoken.DefaultKeyID, key, time.Minute)
	core, err := app.New(app.Config{
		Store:         store.NewMemoryStore(),
		Provider:      stubProvider{},
		WebhookSecret: webhookSecret,
		Prices:        map[domain.Plan]string{domain.PlanMonthly: "price_m", domain.PlanYearly: "price_y"},
		Coupons:       map[string]string{"AINA20": "c1", "PEPE20": "c2"},
		SuccessURL:    "http://app/ok",
		CancelURL:     "http://app/cancel",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	h := New(Config{App: core, ServiceTokens: verifier}).Router()
	body := `{"userId":"u1","email":"a@b.fr","priceType":"monthly"}`

	if rec, _ := postJSON(t, h, "/api/create-checkout-session", body, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	relayToken, _ := signer.Sign("relay")
	if rec, _ := postJSON(t, h, "/api/create-checkout-session", body, http.Header{"Authorization": {"Bearer " + relayToken}}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for relay audience, got %d", rec.Code)
	}
	token, _ := signer.Sign("billing")
	if rec, _ := postJSON(t, h, "/api/create-checkout-session", body, http.Header{"Authorization": {"Bearer " + token}}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestStripeWebhookEndpoint(t *testing.T) {
	subs := store.NewMemoryStore()
	h := newTestServer(t, stubProvider{}, subs, "")
	payload := fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2020-08-27","created":%d,"type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"u7","subscription":"sub_1","metadata":{"plan":"yearly"}}}}`, time.Now().Unix())
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	sig := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	rec, _ := postJSON(t, h, "/api/webhooks/stripe", payload, http.Header{"Stripe-Signature": {sig}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sub, ok, _ := subs.GetSubscriptionByUser("u7")
	if !ok || sub.Plan != domain.PlanYearly || sub.Status != domain.SubscriptionActive {
		t.Fatalf("unexpected subscription %+v", sub)
	}

	rec, _ = postJSON(t, h, "/api/webhooks/stripe", payload, http.Header{"Stripe-Signature": {"t=1,v1=deadbeef"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
	}
}
