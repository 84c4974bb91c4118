package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupCORSRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	r.GET("/static/general/app.js", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func corsRequest(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/static/general/app.js", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORS_DefaultConfig_SimpleRequest(t *testing.T) {
	r := setupCORSRouter(CORS())

	w := corsRequest(r, http.MethodGet, "http://example.com")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Allow-Origin *, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got == "" {
		t.Error("expected Expose-Headers to be set")
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Errorf("Allow-Methods belongs on preflight only, got %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary Origin, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := setupCORSRouter(CORS())

	w := corsRequest(r, http.MethodOptions, "http://example.com")

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, HEAD, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Error("expected Allow-Headers header to be set")
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "86400" {
		t.Errorf("expected Max-Age 86400, got %q", got)
	}
}

func TestCORS_NoOrigin_PassesThrough(t *testing.T) {
	r := setupCORSRouter(CORS())

	w := corsRequest(r, http.MethodGet, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no Allow-Origin, got %q", got)
	}
	if got := w.Header().Get("Vary"); got != "" {
		t.Errorf("expected no Vary, got %q", got)
	}
}

func TestCORS_Allowlist(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://aide.example.org"}
	r := setupCORSRouter(CORSWithConfig(cfg))

	w := corsRequest(r, http.MethodGet, "https://aide.example.org")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://aide.example.org" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}

	w = corsRequest(r, http.MethodGet, "https://evil.example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("expected request to pass through, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no Allow-Origin for disallowed origin, got %q", got)
	}
}

func TestCORS_EmptyAllowlistDeniesAll(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{}
	r := setupCORSRouter(CORSWithConfig(cfg))

	w := corsRequest(r, http.MethodOptions, "http://example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no Allow-Origin, got %q", got)
	}
	if w.Code == http.StatusNoContent {
		t.Error("preflight from a denied origin must not be answered")
	}
}

func TestCORS_WildcardWithCredentialsEchoesOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true
	r := setupCORSRouter(CORSWithConfig(cfg))

	w := corsRequest(r, http.MethodGet, "http://example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("expected origin echoed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected Allow-Credentials true, got %q", got)
	}
}

func TestCORS_MaxAge(t *testing.T) {
	tests := []struct {
		maxAge time.Duration
		want   string
	}{
		{90 * time.Minute, "5400"},
		{0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.maxAge.String(), func(t *testing.T) {
			cfg := DefaultCORSConfig()
			cfg.MaxAge = tt.maxAge
			r := setupCORSRouter(CORSWithConfig(cfg))

			w := corsRequest(r, http.MethodOptions, "http://example.com")
			if got := w.Header().Get("Access-Control-Max-Age"); got != tt.want {
				t.Errorf("Max-Age = %q, want %q", got, tt.want)
			}
		})
	}
}
