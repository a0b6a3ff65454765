package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ainastudio/pkg/domain"
	"ainastudio/pkg/storage"
	"ainastudio/pkg/store"
	"ainastudio/services/studio/internal/app"
	"ainastudio/services/studio/internal/authclient"
	"ainastudio/services/studio/internal/billingclient"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubRelay struct{}

func (stubRelay) GenerateImage(context.Context, string) (string, error) {
	return storage.DataURL("image/png", pngBytes), nil
}

func (stubRelay) GenerateText(context.Context, string) (string, error) {
	return "Bon appétit !", nil
}

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	users := map[string]domain.User{
		"tok-u1": {ID: "u1", Email: "u1@example.com", Role: domain.RoleUser},
		"tok-u2": {ID: "u2", Email: "u2@example.com", Role: domain.RoleUser},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := users[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(user)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, checkout app.CheckoutCreator) (http.Handler, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	core, err := app.New(app.Config{
		Store:         mem,
		Images:        stubRelay{},
		Text:          stubRelay{},
		Checkout:      checkout,
		AllowTestMode: true,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(core.Close)
	auth := authclient.NewClient(newAuthServer(t).URL)
	return New(Config{App: core, Auth: auth}).Router(), mem
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestRequiresBearerToken(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec, _ := doJSON(t, h, http.MethodGet, "/api/onboarding", "", "")
	expectStatus(t, rec, http.StatusUnauthorized)
	rec, _ = doJSON(t, h, http.MethodGet, "/api/onboarding", "nope", "")
	expectStatus(t, rec, http.StatusUnauthorized)
	rec, _ = doJSON(t, h, http.MethodGet, "/healthz", "", "")
	expectStatus(t, rec, http.StatusOK)
}

func TestAuthServiceDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	down.Close()
	core, err := app.New(app.Config{Store: store.NewMemoryStore(), Images: stubRelay{}, Text: stubRelay{}})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(core.Close)
	h := New(Config{App: core, Auth: authclient.NewClient(down.URL)}).Router()
	rec, _ := doJSON(t, h, http.MethodGet, "/api/onboarding", "tok-u1", "")
	expectStatus(t, rec, http.StatusBadGateway)
}

func TestContinueWithClosedGate(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec, out := doJSON(t, h, http.MethodPost, "/api/onboarding/continue", "tok-u1", "")
	expectStatus(t, rec, http.StatusConflict)
	if out["code"] != "step_incomplete" {
		t.Fatalf("expected step_incomplete, got %v", out)
	}
}

func TestOnboardingFlowOverHTTP(t *testing.T) {
	h, mem := newTestServer(t, nil)
	tok := "tok-u1"

	rec, _ := doJSON(t, h, http.MethodPut, "/api/onboarding/basic-info", tok, `{"businessName":"Le Petit Bistrot","businessType":"Restaurant"}`)
	expectStatus(t, rec, http.StatusOK)
	rec, _ = doJSON(t, h, http.MethodPut, "/api/onboarding/basic-info", tok, `{"businessName":"X","businessType":"Garage"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/continue", tok, "")
	expectStatus(t, rec, http.StatusOK)

	rec, out := doJSON(t, h, http.MethodPost, "/api/onboarding/keywords", tok, `{"keyword":"terrasse"}`)
	expectStatus(t, rec, http.StatusOK)
	if out["changed"] != true {
		t.Fatalf("expected keyword added, got %v", out)
	}
	rec, out = doJSON(t, h, http.MethodPost, "/api/onboarding/keywords", tok, `{"keyword":"Terrasse"}`)
	expectStatus(t, rec, http.StatusOK)
	if out["changed"] != false {
		t.Fatalf("expected duplicate keyword ignored, got %v", out)
	}
	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/continue", tok, "")
	expectStatus(t, rec, http.StatusOK)

	rec, _ = doJSON(t, h, http.MethodPut, "/api/onboarding/tone-platforms", tok, `{"tone":"Familial","platforms":["Instagram","Facebook","Instagram"]}`)
	expectStatus(t, rec, http.StatusOK)
	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/continue", tok, "")
	expectStatus(t, rec, http.StatusOK)

	rec, out = doJSON(t, h, http.MethodPost, "/api/onboarding/calibration", tok, `{"description":"Nouveau plat du jour"}`)
	expectStatus(t, rec, http.StatusAccepted)
	if out["stepName"] != "calibration" {
		t.Fatalf("expected calibration step, got %v", out["stepName"])
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, out = doJSON(t, h, http.MethodGet, "/api/onboarding", tok, "")
		cal, _ := out["calibration"].(map[string]any)
		if cal != nil && cal["phase"] == "selecting" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("calibration never reached selecting: %v", out)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/calibration/select", tok, `{"index":9}`)
	expectStatus(t, rec, http.StatusBadRequest)
	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/calibration/select", tok, `{"index":2}`)
	expectStatus(t, rec, http.StatusOK)
	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/calibration/confirm", tok, "")
	expectStatus(t, rec, http.StatusOK)
	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/continue", tok, "")
	expectStatus(t, rec, http.StatusOK)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/back", tok, `{"step":5}`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec, out = doJSON(t, h, http.MethodPost, "/api/onboarding/continue", tok, "")
	expectStatus(t, rec, http.StatusCreated)
	if out["next"] != "pricing" {
		t.Fatalf("expected pricing hint, got %v", out)
	}
	b, ok, _ := mem.GetBusinessByOwner("u1")
	if !ok || b.Tone != domain.ToneFamily || len(b.Platforms) != 2 || len(b.Keywords) != 1 {
		t.Fatalf("unexpected stored business %+v", b)
	}

	rec, out = doJSON(t, h, http.MethodPut, "/api/onboarding/basic-info", tok, `{"businessName":"Autre","businessType":"Bar"}`)
	expectStatus(t, rec, http.StatusConflict)
	if out["code"] != "already_onboarded" {
		t.Fatalf("expected already_onboarded, got %v", out)
	}

	rec, _ = doJSON(t, h, http.MethodPatch, "/api/business", tok, `{"businessName":"Renamed"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	rec, out = doJSON(t, h, http.MethodPatch, "/api/business", tok, `{"address":"3 place du Marché"}`)
	expectStatus(t, rec, http.StatusOK)
	if out["address"] != "3 place du Marché" || out["businessName"] != "Le Petit Bistrot" {
		t.Fatalf("unexpected patched business %v", out)
	}
}

func TestUploadLogo(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec, _ := doJSON(t, h, http.MethodPut, "/api/onboarding/basic-info", "tok-u1", `{"businessName":"Chez Lou","businessType":"Bar"}`)
	expectStatus(t, rec, http.StatusOK)
	rec, _ = doJSON(t, h, http.MethodPost, "/api/onboarding/continue", "tok-u1", "")
	expectStatus(t, rec, http.StatusOK)

	upload := func(data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", "logo.png")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write(data)
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/onboarding/logo", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer tok-u1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec = upload(pngBytes)
	expectStatus(t, rec, http.StatusOK)
	var st app.OnboardingState
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(st.Profile.LogoURL, "data:image/png;base64,") {
		t.Fatalf("expected inline logo, got %q", st.Profile.LogoURL)
	}
	rec = upload([]byte("not an image"))
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestTemplatesOwnerScoped(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec, out := doJSON(t, h, http.MethodPost, "/api/templates", "tok-u1", `{"name":"Menu","category":"menu","text":"<p>Salut</p>","platform":"Instagram"}`)
	expectStatus(t, rec, http.StatusCreated)
	id, _ := out["id"].(string)
	if out["text"] != "Salut" {
		t.Fatalf("expected stripped text, got %v", out["text"])
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/api/templates/"+id, "tok-u2", "")
	expectStatus(t, rec, http.StatusNotFound)
	rec, _ = doJSON(t, h, http.MethodDelete, "/api/templates/"+id, "tok-u2", "")
	expectStatus(t, rec, http.StatusNotFound)

	rec, out = doJSON(t, h, http.MethodPost, "/api/templates/"+id+"/favorite", "tok-u1", "")
	expectStatus(t, rec, http.StatusOK)
	if out["favorite"] != true {
		t.Fatalf("expected favourite, got %v", out)
	}
	rec, out = doJSON(t, h, http.MethodPost, "/api/templates/"+id+"/use", "tok-u1", "")
	expectStatus(t, rec, http.StatusOK)
	if out["useCount"] != float64(1) {
		t.Fatalf("expected use count 1, got %v", out["useCount"])
	}
	rec, out = doJSON(t, h, http.MethodGet, "/api/templates?favorite=true", "tok-u1", "")
	expectStatus(t, rec, http.StatusOK)
	if out["count"] != float64(1) {
		t.Fatalf("expected one template, got %v", out)
	}
	rec, out = doJSON(t, h, http.MethodGet, "/api/templates", "tok-u2", "")
	expectStatus(t, rec, http.StatusOK)
	if out["count"] != float64(0) {
		t.Fatalf("expected no templates for u2, got %v", out)
	}
	rec, _ = doJSON(t, h, http.MethodDelete, "/api/templates/"+id, "tok-u1", "")
	expectStatus(t, rec, http.StatusNoContent)
}

func TestGenerateContentNeedsBusiness(t *testing.T) {
	h, mem := newTestServer(t, nil)
	rec, _ := doJSON(t, h, http.MethodPost, "/api/content/generate", "tok-u1", `{"description":"Brunch"}`)
	expectStatus(t, rec, http.StatusNotFound)

	_ = mem.CreateBusiness(domain.Business{ID: "b1", OwnerID: "u1", Name: "Chez Lou", Type: domain.BusinessBar,
		Tone: domain.ToneYoung, Platforms: []domain.Platform{domain.PlatformTikTok}})
	rec, out := doJSON(t, h, http.MethodPost, "/api/content/generate", "tok-u1", `{"description":"Brunch","withImage":true}`)
	expectStatus(t, rec, http.StatusOK)
	if out["text"] != "Bon appétit !" || out["platform"] != "TikTok" || out["image"] == nil {
		t.Fatalf("unexpected content %v", out)
	}
}

func TestQuoteIsPublic(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec, out := doJSON(t, h, http.MethodGet, "/api/pricing/quote?plan=monthly&code=aina20", "", "")
	expectStatus(t, rec, http.StatusOK)
	if out["finalCents"] != float64(3920) || out["final"] != 39.2 {
		t.Fatalf("unexpected quote %v", out)
	}
	rec, out = doJSON(t, h, http.MethodGet, "/api/pricing/quote?plan=monthly&code=NOPE", "", "")
	expectStatus(t, rec, http.StatusOK)
	if out["invalid"] != true || out["error"] != "invalid promo code" || out["finalCents"] != float64(4900) {
		t.Fatalf("unexpected invalid quote %v", out)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/api/pricing/quote?plan=weekly", "", "")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestCheckoutPaymentUnavailable(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	down.Close()
	h, _ := newTestServer(t, billingclient.NewClient(down.URL, ""))
	rec, out := doJSON(t, h, http.MethodPost, "/api/subscription/checkout", "tok-u1", `{"plan":"monthly"}`)
	expectStatus(t, rec, http.StatusServiceUnavailable)
	if out["code"] != "payment_unavailable" {
		t.Fatalf("expected payment_unavailable, got %v", out)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/subscription/test-mode", "tok-u1", `{"plan":"monthly"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	rec, out = doJSON(t, h, http.MethodPost, "/api/subscription/test-mode", "tok-u1", `{"plan":"monthly","confirm":true}`)
	expectStatus(t, rec, http.StatusCreated)
	if out["testMode"] != true || out["status"] != "active" {
		t.Fatalf("unexpected subscription %v", out)
	}
	rec, out = doJSON(t, h, http.MethodGet, "/api/subscription", "tok-u1", "")
	expectStatus(t, rec, http.StatusOK)
	if out["active"] != true {
		t.Fatalf("expected active subscription, got %v", out)
	}
	rec, _ = doJSON(t, h, http.MethodPost, "/api/subscription/checkout", "tok-u1", `{"plan":"yearly"}`)
	expectStatus(t, rec, http.StatusConflict)
}

func TestCheckoutPassesRelayErrors(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"promo code not available"}`))
	}))
	defer relay.Close()
	h, _ := newTestServer(t, billingclient.NewClient(relay.URL, ""))
	rec, out := doJSON(t, h, http.MethodPost, "/api/subscription/checkout", "tok-u1", `{"plan":"monthly","promoCode":"PEPE20"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if out["error"] != "promo code not available" {
		t.Fatalf("expected relay message, got %v", out)
	}
	rec, out = doJSON(t, h, http.MethodPost, "/api/subscription/checkout", "tok-u1", `{"plan":"monthly","promoCode":"BAD"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if out["error"] != "invalid promo code" {
		t.Fatalf("expected local promo validation, got %v", out)
	}
}
