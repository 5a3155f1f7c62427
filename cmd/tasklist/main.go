package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/tasklist/pkg/api"
	"github.com/platinummonkey/tasklist/pkg/audit"
	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/bootstrap"
	"github.com/platinummonkey/tasklist/pkg/config"
	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tasklist: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", ".env", "Dotenv file loaded before reading the environment")
	configFile := flag.String("config", "", "YAML configuration file (default $"+config.FileEnvVar+")")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", *envFile, err)
	}

	path := *configFile
	if path == "" {
		path = os.Getenv(config.FileEnvVar)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	logOutput, closeLog, err := openOutput(cfg.Observability.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closeLog()
	logger := observability.NewLogger(cfg.Observability.Level(), logOutput)

	auditOutput, closeAudit, err := openOutput(cfg.Observability.AuditLogFile)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer closeAudit()
	auditLogger := audit.NewLogrusLogger(auditOutput)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	defer func() {
		if err := shutdown.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Shutdown finished with errors")
		}
	}()
	shutdown.Register("audit", func(context.Context) error { return auditLogger.Close() })

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return err
	}
	if providers != nil {
		shutdown.Register("otel", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	var otelMetrics *observability.OTelMetrics
	if providers != nil {
		if otelMetrics, err = observability.NewOTelMetrics(); err != nil {
			return err
		}
	}

	deps, err := openDependencies(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	shutdown.Register("storage", func(context.Context) error { return deps.close() })

	hasher, err := auth.NewPasswordHasher(cfg.Auth.PasswordHash)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenManager(cfg.TokenConfig())
	if err != nil {
		return err
	}
	authenticator, err := auth.NewAuthenticator(deps.credentials, hasher, tokens, logger, auditLogger)
	if err != nil {
		return err
	}
	gate := auth.NewGate(tokens, deps.credentials)

	if cfg.Seed.Enabled {
		seeder := bootstrap.NewSeeder(deps.credentials, hasher, cfg.AdminConfig(), logger, auditLogger)
		if _, err := seeder.Seed(ctx); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}

	limiters := newLimiters(cfg, deps.redis)

	server, err := api.NewServer(api.Config{
		Authenticator: authenticator,
		Gate:          gate,
		Todos:         todo.NewService(deps.store.Todos(), gate, logger, auditLogger),
		Logger:        logger,
		Audit:         auditLogger,
		Metrics:       metrics,
		OTelMetrics:   otelMetrics,
		Tracing:       providers != nil,
		AuthLimiter:   limiters.auth,
		APILimiter:    limiters.api,
		FailOpen:      cfg.RateLimit.FailOpen,
		CORSOrigins:   cfg.Server.CORSOrigins,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		return err
	}

	scheduler, err := newScheduler(cfg, logger, metrics, deps, limiters)
	if err != nil {
		return err
	}
	scheduler.Start()
	shutdown.Register("maintenance", scheduler.Stop)

	apiServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:        cfg.Server.HealthAddr(),
		Handler:     healthMux(deps, registry, cfg.Observability.OTelServiceVersion),
		ReadTimeout: cfg.Server.ReadTimeout,
	}
	shutdown.Register("health server", healthServer.Shutdown)
	shutdown.Register("api server", apiServer.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer, logger, "api") })
	g.Go(func() error { return serve(healthServer, logger, "health") })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func serve(srv *http.Server, logger *observability.Logger, name string) error {
	logger.WithFields(map[string]interface{}{
		"server": name,
		"addr":   srv.Addr,
	}).Info("Listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

func healthMux(deps *dependencies, registry *prometheus.Registry, version string) http.Handler {
	mux := http.NewServeMux()
	observability.NewHealthChecker(deps.store, deps.redis, version).RegisterHealthRoutes(mux)
	if registry != nil {
		observability.RegisterMetricsEndpoint(mux, registry)
	}
	return mux
}

// openOutput returns stdout, or stdout plus an appended file when path is set
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(os.Stdout, f), func() { _ = f.Close() }, nil
}
