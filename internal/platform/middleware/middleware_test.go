package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	waLog "go.mau.fi/whatsmeow/util/log"
)

func TestBearerAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := BearerAuth(MasterToken("secret"))(ok)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "bearer", header: "Authorization", value: "Bearer secret", want: http.StatusTeapot},
		{name: "lowercase scheme", header: "Authorization", value: "bearer secret", want: http.StatusTeapot},
		{name: "apikey", header: "apikey", value: "secret", want: http.StatusTeapot},
		{name: "wrong", header: "Authorization", value: "Bearer nope", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestBearerAuthDisabled(t *testing.T) {
	h := BearerAuth(MasterToken(""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("empty master token must disable auth, got %d", rec.Code)
	}
}

func TestCORSPreflightAndLogging(t *testing.T) {
	called := false
	h := Logging(waLog.Noop)(CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/sessions", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("preflight should short-circuit, code=%d called=%v", rec.Code, called)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}
