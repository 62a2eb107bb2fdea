package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"webcore/internal/auth"
	"webcore/internal/models"
)

// routeSet collects what options attach: root middleware and the
// middleware wrapped around each anonymous site route.
type routeSet struct {
	root *mux.Router
	site []mux.MiddlewareFunc
}

// RouteOption configures optional route behavior.
type RouteOption func(*routeSet)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(rs *routeSet) {
		rs.root.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health"
			}),
		))
	}
}

// WithRateLimiter throttles the anonymous site routes. API routes are
// governed by application quotas and are not affected.
func WithRateLimiter(middleware mux.MiddlewareFunc) RouteOption {
	return func(rs *routeSet) {
		rs.site = append(rs.site, middleware)
	}
}

// siteHandler wraps h in the site middleware, first option outermost.
func (rs *routeSet) siteHandler(h http.HandlerFunc) http.Handler {
	var handler http.Handler = h
	for i := len(rs.site) - 1; i >= 0; i-- {
		handler = rs.site[i](handler)
	}
	return handler
}

// SetupRoutes configures the HTTP routes of the web core
func SetupRoutes(handlers *Handlers, authenticator *auth.Authenticator, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	rs := &routeSet{root: router}
	for _, opt := range opts {
		opt(rs)
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods(http.MethodGet)

	// The api subrouter answers wrong methods itself; later routes such as
	// the source map catch-all would otherwise claim the path.
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware(authenticator))
	api.HandleFunc("/refresh_token", handlers.RefreshToken).Methods(http.MethodPost)
	api.HandleFunc("/access_token", handlers.AccessToken).Methods(http.MethodGet)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	site := func(path string, h http.HandlerFunc) {
		router.Handle(path, rs.siteHandler(h)).Methods(http.MethodGet)
	}
	site("/", handlers.Homepage)
	site("/favicon.ico", handlers.Favicon)
	site("/img/{file:.+}", handlers.Image)
	site("/fav/browserconfig.xml", handlers.BrowserConfig)
	site("/fav/manifest.json", handlers.Manifest)
	site("/fav/{file:.+}", handlers.Favicons)
	site("/css/{file:.+}", handlers.CSS)
	site("/js/{file:.+}", handlers.JS)

	if config.Static.SourceMaps {
		site("/js-map/{file:.+}", handlers.JSSourceMap)
		site("/{file:.+}", handlers.SourceFile)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusNotFound, models.NewErrorResponse("Not found", models.ErrorCodeNotFound))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return router
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusMethodNotAllowed, models.NewErrorResponse("Method not allowed", models.ErrorCodeMethodNotAllowed))
}
