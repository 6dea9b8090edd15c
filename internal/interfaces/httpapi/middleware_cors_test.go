package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const consoleOrigin = "https://cage-console.example.com"

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "configured origin",
			allowed:    []string{consoleOrigin},
			method:     http.MethodGet,
			origin:     consoleOrigin,
			wantOrigin: consoleOrigin,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "preflight answered without reaching handler",
			allowed:    []string{"*"},
			method:     http.MethodOptions,
			origin:     consoleOrigin,
			wantOrigin: "*",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "unknown origin gets no header",
			allowed:    []string{"https://allowed.example.com", "  "},
			method:     http.MethodGet,
			origin:     "https://not-allowed.example.com",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reached := false
			handler := CORS(tc.allowed, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tc.method, "/v1/games/game-1/queue", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("Access-Control-Allow-Origin = %q, want %q", got, tc.wantOrigin)
			}
			if reached != tc.wantNext {
				t.Fatalf("handler reached = %t, want %t", reached, tc.wantNext)
			}
		})
	}
}
