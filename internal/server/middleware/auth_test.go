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

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header map[string]string
		want   int
	}{
		{"disabled when empty", "", nil, http.StatusOK},
		{"missing token", "secret", nil, http.StatusUnauthorized},
		{"bearer ok", "secret", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"bearer wrong", "secret", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"api key ok", "secret", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"api key wrong", "secret", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth(tt.key)(okHandler())
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
