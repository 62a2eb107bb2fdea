package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcore/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareAllows(t *testing.T) {
	handler := Middleware(newTestLimiter(t, 60, 5))(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/css/site.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestMiddlewareDenies(t *testing.T) {
	handler := Middleware(newTestLimiter(t, 60, 1))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.ErrorCodeRateLimitExceeded, body.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.10:54321", want: "192.0.2.10"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "no port", remoteAddr: "192.0.2.10", want: "192.0.2.10"},
		{name: "forwarded for", remoteAddr: "10.0.0.1:1", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, want: "203.0.113.7"},
		{name: "real ip", remoteAddr: "10.0.0.1:1", headers: map[string]string{"X-Real-IP": "203.0.113.8"}, want: "203.0.113.8"},
		{name: "forwarded wins", remoteAddr: "10.0.0.1:1", headers: map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "203.0.113.8"}, want: "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestMiddlewareKeysByClient(t *testing.T) {
	handler := Middleware(newTestLimiter(t, 60, 1))(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.1")
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.2")

	for _, req := range []*http.Request{first, second} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
