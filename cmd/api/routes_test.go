package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"carecall-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

type stubProvider struct{ err error }

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) HealthCheck(ctx context.Context) error { return p.err }

func (p stubProvider) PlaceCall(ctx context.Context, to, base string) (string, error) {
	return "CA1", nil
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func newEngine(d routeDeps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, d)
	return r
}

func TestRoutes_Health(t *testing.T) {
	r := newEngine(routeDeps{})
	if w := get(r, "/healthz"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", w.Code)
	}
	if w := get(r, "/metrics"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", w.Code)
	}
}

func TestRoutes_ReadinessReportsProvider(t *testing.T) {
	w := get(newEngine(routeDeps{provider: stubProvider{}}), "/readyz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = get(newEngine(routeDeps{provider: stubProvider{err: errors.New("401")}}), "/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"stub":"401"`) {
		t.Fatalf("expected provider check in body: %s", w.Body.String())
	}
}

func TestRoutes_WebhooksRequireSignatureWhenConfigured(t *testing.T) {
	d := routeDeps{signature: telephony.NewSignatureValidator("token", "https://calls.example.com")}
	r := newEngine(d)

	form := url.Values{"CallSid": {"CA1"}}
	req := httptest.NewRequest(http.MethodPost, telephony.WelcomePath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unsigned webhook, got %d", w.Code)
	}
}

func TestRoutes_MemberAPIMounted(t *testing.T) {
	w := get(newEngine(routeDeps{}), "/v1/members/m-1/calls")
	// Mounted but unconfigured: the handler answers, not the router.
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from unconfigured handler, got %d", w.Code)
	}
}
