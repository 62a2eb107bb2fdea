package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"webcore/internal/compress"
	"webcore/internal/models"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying the admitted application.
func NewContext(ctx context.Context, app *models.AuthenticatedApplication) context.Context {
	return context.WithValue(ctx, contextKey{}, app)
}

// FromContext returns the application admitted for the current request.
func FromContext(ctx context.Context) (*models.AuthenticatedApplication, bool) {
	app, ok := ctx.Value(contextKey{}).(*models.AuthenticatedApplication)
	return app, ok && app != nil
}

// Middleware guards the wrapped handler with the authenticator. Rejected
// requests never reach the handler; they receive a JSON error envelope,
// compressed when negotiated. Admitted requests get X-RateLimit-Limit and
// X-RateLimit-Remaining headers and the principal in their context.
func Middleware(a *Authenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			app, err := a.Authenticate(r.Context(), r.Header)
			if err != nil {
				var rej *Rejection
				if !errors.As(err, &rej) {
					rej = reject(CollaboratorFailure, err)
				}
				writeRejection(w, r, rej, a.window)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(app.HourlyLimit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(app.RequestsLeft, 10))

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), app)))
		})
	}
}

func writeRejection(w http.ResponseWriter, r *http.Request, rej *Rejection, window time.Duration) {
	if rej.ClientError() {
		slog.Debug("Request rejected",
			"kind", rej.Kind.String(),
			"status", rej.Status,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
	} else {
		slog.Error("Authentication failed",
			"kind", rej.Kind.String(),
			"error", rej.Err,
			"path", r.URL.Path,
		)
	}

	if rej.Kind == QuotaExceeded {
		w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	}

	resp, err := compress.JSON(rej.Status, models.NewErrorResponse(rej.Reason, rej.Code()))
	if err != nil {
		slog.Error("Failed to encode rejection", "error", err)
		http.Error(w, ReasonUnknownError, http.StatusInternalServerError)
		return
	}
	compress.Write(w, r, resp)
}
