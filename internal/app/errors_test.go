package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/assetsrv/internal/pkg"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAcceptsHTML(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   bool
	}{
		{"text/html", "text/html", true},
		{"browser default", "text/html,application/xhtml+xml,*/*;q=0.8", true},
		{"case insensitive", "Text/HTML", true},
		{"json first", "application/json, text/html", false},
		{"application/json only", "application/json", false},
		{"empty accept", "", false},
		{"wildcard accept", "*/*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				c.Request.Header.Set("Accept", tt.accept)
			}

			if got := acceptsHTML(c); got != tt.want {
				t.Fatalf("acceptsHTML() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderError_JSON(t *testing.T) {
	tests := []struct {
		name    string
		accept  string
		code    int
		message string
	}{
		{"404 no accept", "", http.StatusNotFound, "not found"},
		{"404 wildcard", "*/*", http.StatusNotFound, "not found"},
		{"500 json", "application/json", http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/nope", nil)
			if tt.accept != "" {
				c.Request.Header.Set("Accept", tt.accept)
			}

			renderError(c, tt.code, tt.message)

			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			var resp pkg.Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json decode error: %v", err)
			}
			if resp.Code != tt.code || resp.Message != tt.message {
				t.Errorf("response = %+v, want code %d message %q", resp, tt.code, tt.message)
			}
		})
	}
}

func TestRenderError_PlainTextForBrowsers(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/nope", nil)
	c.Request.Header.Set("Accept", "text/html")

	renderError(c, http.StatusNotFound, "not found")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := w.Body.String(); got != "404 Not Found" {
		t.Errorf("body = %q, want %q", got, "404 Not Found")
	}
}
