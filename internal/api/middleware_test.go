package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcore/internal/models"
	"webcore/internal/ratelimit"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, models.ErrorCodeInternalError, resp.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestRecoveryMiddlewareAfterHeadersSent(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("partial"))
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "partial", w.Body.String())
	assert.NotContains(t, w.Body.String(), models.ErrorCodeInternalError)
}

func TestRecoveredPanicIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	env := newTestEnv(t, nil)
	env.router.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}).Methods(http.MethodGet)

	w := env.do(httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, models.ErrorCodeInternalError, decodeError(t, w).Code)
	assert.Contains(t, buf.String(), "Panic recovered")
	assert.Contains(t, buf.String(), `msg="HTTP request"`)
	assert.Contains(t, buf.String(), "status=500")
}

func TestLoggingMiddlewareKeepsStatus(t *testing.T) {
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestWithRateLimiterThrottlesSiteOnly(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(models.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	t.Cleanup(limiter.Close)

	env := newTestEnv(t, nil, WithRateLimiter(ratelimit.Middleware(limiter)))

	first := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := env.do(httptest.NewRequest(http.MethodGet, "/css/site.css", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	health := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)

	apiCall := env.do(signed(httptest.NewRequest(http.MethodGet, "/api/v1/access_token", nil), testAppID))
	assert.Equal(t, http.StatusNotImplemented, apiCall.Code)
	assert.Equal(t, "5", apiCall.Header().Get("X-RateLimit-Limit"))
}

func TestWithOTelMiddleware(t *testing.T) {
	env := newTestEnv(t, nil, WithOTelMiddleware("webcore-test"))

	w := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
