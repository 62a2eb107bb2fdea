package api

import (
	"log/slog"
	"net/http"
	"time"

	"webcore/internal/auth"
	"webcore/internal/models"
)

// statusRecorder captures the status code written by the next handler
// and whether the response has been committed.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wrote {
		return
	}
	s.status = code
	s.wrote = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr)
	})
}

// recoveryMiddleware handles panics. It sits inside loggingMiddleware so
// the recovered 500 is logged, and it leaves committed responses alone.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered", "error", err, "path", r.URL.Path, "committed", rec.wrote)
				if rec.wrote {
					return
				}
				writeJSON(rec, r, http.StatusInternalServerError,
					models.NewErrorResponse(auth.ReasonUnknownError, models.ErrorCodeInternalError))
			}
		}()
		next.ServeHTTP(rec, r)
	})
}
