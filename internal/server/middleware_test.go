package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func newTestServer(origins ...string) *Server {
	return &Server{
		logger:      arbor.NewLogger(),
		corsOrigins: originSet(origins),
	}
}

func TestCORSMiddleware(t *testing.T) {
	s := newTestServer("http://localhost:3000")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := s.corsMiddleware(next)

	tests := []struct {
		name        string
		method      string
		origin      string
		status      int
		allowOrigin string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "http://localhost:3000", status: http.StatusTeapot, allowOrigin: "http://localhost:3000"},
		{name: "other origin", method: http.MethodGet, origin: "http://evil.example", status: http.StatusTeapot, allowOrigin: ""},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:3000", status: http.StatusNoContent, allowOrigin: "http://localhost:3000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/search", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.allowOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer()
	handler := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"type":"error","error":"서버 내부 오류가 발생했습니다."}`, rec.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	s := newTestServer()
	var seen string
	handler := s.requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(requestIDHeader)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRequireAdmin(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	tests := []struct {
		name   string
		token  string
		header string
		status int
	}{
		{name: "no token configured", token: "", header: "", status: http.StatusOK},
		{name: "missing header", token: "s3cret", header: "", status: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "wrong scheme", token: "s3cret", header: "Basic s3cret", status: http.StatusUnauthorized},
		{name: "matching token", token: "s3cret", header: "Bearer s3cret", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.adminToken = tt.token

			req := httptest.NewRequest(http.MethodPost, "/api/admin/reload", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.requireAdmin(ok)(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
