package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the Provider's Prometheus registry on its own port,
// away from the public router.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics server for provider. With a nil
// provider or disabled metrics the path answers 404.
func NewMetricsServer(port int, path string, provider *Provider) *MetricsServer {
	mux := http.NewServeMux()
	if provider != nil && provider.registry != nil {
		mux.Handle(path, promhttp.HandlerFor(provider.registry, promhttp.HandlerOpts{
			Registry:          provider.registry,
			EnableOpenMetrics: true,
		}))
	}

	return &MetricsServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the server's handler for in-process use.
func (ms *MetricsServer) Handler() http.Handler {
	return ms.server.Handler
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a graceful shutdown.
func (ms *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", ms.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics server listen: %w", err)
	}
	slog.Info("Starting metrics server", "addr", ln.Addr().String())
	return ms.server.Serve(ln)
}

// Shutdown gracefully stops the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}
