package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"webcore/internal/api"
	"webcore/internal/auth"
	"webcore/internal/config"
	"webcore/internal/counter"
	"webcore/internal/logger"
	"webcore/internal/models"
	"webcore/internal/observability"
	"webcore/internal/ratelimit"
	"webcore/internal/registry"
	"webcore/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Print version information and exit")
	exampleFile = flag.String("generate-config", "", "Write an example configuration file and exit")
)

func main() {
	flag.Parse()

	info := version.GetInfo()
	if *showVersion {
		fmt.Println(info.String())
		return
	}
	if *exampleFile != "" {
		if err := config.SaveExample(*exampleFile); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	closer, err := logger.Install(cfg.Logging, info)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	if err := run(cfg, info); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server shutdown complete")
}

func run(cfg *models.Config, info version.Info) error {
	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, info)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	apps, err := initializeRegistry(cfg)
	if err != nil {
		return err
	}
	defer apps.Close()

	counts, err := initializeCounter(cfg)
	if err != nil {
		return err
	}
	defer counts.Close()

	authOpts := []auth.Option{
		auth.WithFreshness(cfg.Auth.MaxAge, cfg.Auth.MaxSkew),
		auth.WithWindow(cfg.Counter.Window),
	}
	if cfg.Metrics.Enabled {
		admissions, err := observability.NewAdmissionMetrics()
		if err != nil {
			return fmt.Errorf("failed to create admission metrics: %w", err)
		}
		authOpts = append(authOpts, auth.WithRecorder(admissions))
	}
	authenticator := auth.New(apps, counts, authOpts...)

	handlerOpts := []api.HandlerOption{
		api.WithVersion(info),
		api.WithComponent("registry", apps),
	}
	if p, ok := counts.(api.Pinger); ok {
		handlerOpts = append(handlerOpts, api.WithComponent("counter", p))
	}
	handlers, err := api.NewHandlers(os.DirFS(cfg.Static.Root), handlerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create handlers: %w", err)
	}

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}
	if cfg.Security.RateLimit.Enabled {
		limiter := ratelimit.NewMemoryLimiter(cfg.Security.RateLimit)
		defer limiter.Close()
		routeOpts = append(routeOpts, api.WithRateLimiter(ratelimit.Middleware(limiter)))
	}

	router := api.SetupRoutes(handlers, authenticator, cfg, routeOpts...)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "addr", server.Addr, "tls", cfg.Server.TLSEnabled, "version", info.Version)

		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			slog.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var errs []error
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server forced to shutdown: %w", err))
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// initializeRegistry opens the configured application registry, wrapped
// with instrumentation when metrics are enabled.
func initializeRegistry(cfg *models.Config) (registry.Registry, error) {
	apps, err := registry.New(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}
	slog.Info("Application registry ready", "type", cfg.Registry.Type)

	if !cfg.Metrics.Enabled {
		return apps, nil
	}
	instrumented, err := observability.NewInstrumentedRegistry(apps)
	if err != nil {
		apps.Close()
		return nil, fmt.Errorf("failed to create instrumented registry: %w", err)
	}
	return instrumented, nil
}

// initializeCounter opens the configured counter store, wrapped with
// instrumentation when metrics are enabled.
func initializeCounter(cfg *models.Config) (counter.Counter, error) {
	counts, err := counter.New(cfg.Counter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize counter store: %w", err)
	}
	slog.Info("Counter store ready", "type", cfg.Counter.Type, "window", cfg.Counter.Window)

	if !cfg.Metrics.Enabled {
		return counts, nil
	}
	instrumented, err := observability.NewInstrumentedCounter(counts)
	if err != nil {
		counts.Close()
		return nil, fmt.Errorf("failed to create instrumented counter: %w", err)
	}
	return instrumented, nil
}
