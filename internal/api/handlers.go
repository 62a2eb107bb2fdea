package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"webcore/internal/auth"
	"webcore/internal/compress"
	"webcore/internal/models"
	"webcore/internal/version"
)

//go:embed templates/*.html
var templateFS embed.FS

// Static asset locations, relative to the static root.
const (
	homepageCSS    = "css/_compiled/homepage.css"
	homepageScript = "js/_compiled/homepage.min.js"
	imgDir         = "img"
	favDir         = "fav"
	cssDir         = "css/_compiled"
	jsDir          = "js/_compiled"
	jsMapDir       = "js/_map"
	cssMapDir      = "css/_map"
	scssDir        = "css"
)

// Pinger is implemented by every backing service reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type component struct {
	name   string
	pinger Pinger
}

// homepageData is the template context of the homepage.
type homepageData struct {
	Title  string
	Lang   string
	CSS    template.CSS
	Script template.JS
}

// Handlers contains the HTTP handlers of the web core
type Handlers struct {
	static     fs.FS
	templates  *template.Template
	homepage   homepageData
	components []component
	version    version.Info
	started    time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handlers)

// WithComponent adds a backing service to the health report.
func WithComponent(name string, p Pinger) HandlerOption {
	return func(h *Handlers) {
		h.components = append(h.components, component{name: name, pinger: p})
	}
}

// WithVersion sets the build metadata reported by /health.
func WithVersion(info version.Info) HandlerOption {
	return func(h *Handlers) {
		h.version = info
	}
}

// NewHandlers creates the handlers serving assets from static. The homepage
// inlines its compiled stylesheet and script, read once here; missing assets
// leave the page unstyled rather than failing startup.
func NewHandlers(static fs.FS, opts ...HandlerOption) (*Handlers, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		static:    static,
		templates: tmpl,
		version:   version.GetInfo(),
		started:   time.Now(),
		homepage: homepageData{
			Title:  "Homepage",
			Lang:   "en",
			CSS:    template.CSS(readAsset(static, homepageCSS)),
			Script: template.JS(readAsset(static, homepageScript)),
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func readAsset(static fs.FS, name string) string {
	b, err := fs.ReadFile(static, name)
	if err != nil {
		slog.Warn("Homepage asset unavailable", "asset", name, "error", err)
		return ""
	}
	return string(b)
}

// Homepage renders the landing page
// GET /
func (h *Handlers) Homepage(w http.ResponseWriter, r *http.Request) {
	resp, err := compress.Template(h.templates, "homepage.html", h.homepage)
	if err != nil {
		slog.Error("Failed to render homepage", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, auth.ReasonUnknownError)
		return
	}
	compress.Write(w, r, resp)
}

// Image serves an image without compression
// GET /img/{file}
func (h *Handlers) Image(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, imgDir, mux.Vars(r)["file"], "", false)
}

// Favicon serves the site icon
// GET /favicon.ico
func (h *Handlers) Favicon(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, "", "favicon.ico", "", false)
}

// Favicons serves the remaining icon files
// GET /fav/{file}
func (h *Handlers) Favicons(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, favDir, mux.Vars(r)["file"], "", false)
}

// BrowserConfig serves the Windows tile configuration
// GET /fav/browserconfig.xml
func (h *Handlers) BrowserConfig(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, favDir, "browserconfig.xml", "application/xml", true)
}

// Manifest serves the web app manifest
// GET /fav/manifest.json
func (h *Handlers) Manifest(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, favDir, "manifest.json", "application/json", true)
}

// CSS serves a compiled stylesheet
// GET /css/{file}
func (h *Handlers) CSS(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, cssDir, mux.Vars(r)["file"], "text/css; charset=utf-8", true)
}

// JS serves a compiled script
// GET /js/{file}
func (h *Handlers) JS(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, jsDir, mux.Vars(r)["file"], "application/javascript", true)
}

// JSSourceMap serves a script source map. Only .map files are exposed.
// GET /js-map/{file}
func (h *Handlers) JSSourceMap(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	if path.Ext(file) != ".map" {
		h.notFound(w, r)
		return
	}
	h.serveFile(w, r, jsMapDir, file, "application/json", true)
}

// SourceFile serves the files a browser follows from a source map:
// stylesheet maps, Sass sources and scripts. Anything else is not found.
// GET /{file}
func (h *Handlers) SourceFile(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	switch path.Ext(file) {
	case ".map":
		h.serveFile(w, r, cssMapDir, file, "application/json", true)
	case ".scss":
		h.serveFile(w, r, scssDir, file, "text/x-scss", true)
	case ".sass":
		h.serveFile(w, r, scssDir, file, "text/x-sass", true)
	case ".js":
		h.serveFile(w, r, "", file, "application/javascript", true)
	default:
		h.notFound(w, r)
	}
}

// serveFile sends dir/file from the static root. Names escaping dir are
// treated as missing. Compressible files go through the compressor; the
// others are sent as stored.
func (h *Handlers) serveFile(w http.ResponseWriter, r *http.Request, dir, file, contentType string, compressible bool) {
	name, ok := resolve(dir, file)
	if !ok {
		h.notFound(w, r)
		return
	}

	resp, err := compress.File(h.static, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			h.notFound(w, r)
			return
		}
		slog.Error("Failed to read static file", "file", name, "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, auth.ReasonUnknownError)
		return
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}

	if compressible {
		compress.Write(w, r, resp)
		return
	}
	resp.Send(w)
}

// resolve joins file onto dir and rejects results outside dir.
func resolve(dir, file string) (string, bool) {
	if file == "" || strings.Contains(file, "\\") {
		return "", false
	}
	name := path.Join(dir, file)
	if dir != "" && !strings.HasPrefix(name, dir+"/") {
		return "", false
	}
	if !fs.ValidPath(name) || name == "." {
		return "", false
	}
	return name, true
}

// RefreshToken accepts refresh credentials from an admitted application.
// Token issuance is not available; well-formed requests get 501.
// POST /api/v1/refresh_token
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var creds models.RefreshCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid request body")
		return
	}

	if app, ok := auth.FromContext(r.Context()); ok {
		slog.Debug("Refresh token requested", "application", app.ID, "user", creds.Username)
	}
	h.writeErrorResponse(w, r, http.StatusNotImplemented, models.ErrorCodeNotImplemented, "Token issuance is not implemented")
}

// AccessToken would exchange a refresh token for an access token.
// GET /api/v1/access_token
func (h *Handlers) AccessToken(w http.ResponseWriter, r *http.Request) {
	h.writeErrorResponse(w, r, http.StatusNotImplemented, models.ErrorCodeNotImplemented, "Token issuance is not implemented")
}

// HealthCheck reports the state of every backing service
// GET /health, GET /api/v1/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version.Version
	response.Release = h.version.IsRelease()
	response.Uptime = time.Since(h.started).Round(time.Second).String()

	for _, c := range h.components {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := c.pinger.Ping(ctx)
		cancel()
		if err != nil {
			slog.Warn("Health check failed", "component", c.name, "error", err)
			response.AddComponent(c.name, models.StatusUnhealthy, "unreachable")
			continue
		}
		response.AddComponent(c.name, models.StatusHealthy, "operational")
	}

	status := http.StatusOK
	if response.Status != models.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSONResponse(w, r, status, response)
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeErrorResponse(w, r, http.StatusNotFound, models.ErrorCodeNotFound, "Not found")
}

// writeJSONResponse writes a JSON response through the compressor
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	writeJSON(w, r, statusCode, data)
}

// writeErrorResponse writes an error envelope
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	writeJSON(w, r, statusCode, models.NewErrorResponse(message, errorCode))
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	resp, err := compress.JSON(statusCode, data)
	if err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		http.Error(w, auth.ReasonUnknownError, http.StatusInternalServerError)
		return
	}
	compress.Write(w, r, resp)
}
