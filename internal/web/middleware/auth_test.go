package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAPIToken(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{"disabled without token", "", "", http.StatusOK},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"wrong token", "secret", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "secret", "Basic secret", http.StatusUnauthorized},
		{"no credential", "secret", "Bearer", http.StatusUnauthorized},
		{"valid", "secret", "Bearer secret", http.StatusOK},
		{"case-insensitive scheme", "secret", "bearer secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAPIToken(tt.token)(okHandler())
			req := httptest.NewRequest("POST", "/api/v1/collect", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, req)

			if recorder.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, recorder.Code)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("expected JSON error, got Content-Type %q", ct)
				}
				if recorder.Body.String() != `{"error":"unauthorized"}` {
					t.Errorf("unexpected body %q", recorder.Body.String())
				}
			}
		})
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://attendance.example.com/"})(okHandler())

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://attendance.example.com", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:8000", true},
		{"http://localhost.evil.com", false},
		{"https://evil.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/health", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, req)

			got := recorder.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed && got != tt.origin {
				t.Errorf("expected origin %q to be allowed, got %q", tt.origin, got)
			}
			if !tt.allowed && got != "" {
				t.Errorf("expected origin %q to be rejected, got %q", tt.origin, got)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recognize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}
	if called {
		t.Error("preflight must not reach the next handler")
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	if csp := recorder.Header().Get("Content-Security-Policy"); csp == "" {
		t.Error("expected Content-Security-Policy header")
	}
	if v := recorder.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("expected nosniff, got %q", v)
	}
	if v := recorder.Header().Get("X-Frame-Options"); v != "DENY" {
		t.Errorf("expected DENY, got %q", v)
	}
}
