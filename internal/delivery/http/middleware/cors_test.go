package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORS([]string{"https://cafe.example/", " "}, next)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"preflight allowed", http.MethodOptions, "https://cafe.example", http.StatusNoContent, "https://cafe.example"},
		{"preflight foreign", http.MethodOptions, "https://evil.example", http.StatusNoContent, ""},
		{"request allowed", http.MethodGet, "https://cafe.example", http.StatusTeapot, "https://cafe.example"},
		{"request foreign", http.MethodGet, "https://evil.example", http.StatusTeapot, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/events", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := CORS([]string{"*"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("BEGIN:VCALENDAR"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/events/ev-1/calendar.ics", nil)
	req.Header.Set("Origin", "https://any.example")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, "https://any.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Disposition", rr.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "Origin", rr.Header().Get("Vary"))
}
