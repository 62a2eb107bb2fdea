package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"webcore/internal/compress"
	"webcore/internal/models"
)

// Middleware throttles requests per client address. Every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset; denied
// requests get 429 with Retry-After and a JSON error envelope.
func Middleware(l Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			allowed, info := l.Allow(key)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(info.RetryAfter.Seconds()) + 1
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			slog.Warn("Client throttled", "client", key, "path", r.URL.Path, "retry_after", retryAfter)

			resp, err := compress.JSON(http.StatusTooManyRequests,
				models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimitExceeded))
			if err != nil {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			compress.Write(w, r, resp)
		})
	}
}

// ClientIP returns the address the request originated from: the first
// X-Forwarded-For hop, then X-Real-IP, then the connection's remote host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
