// Package observability provides structured logging, Prometheus metrics,
// health probes and OpenTelemetry setup for the tasklist service.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("todo_id", id).Info("Todo created")
//
// Request-scoped loggers come from the context:
//
//	observability.FromContext(ctx).Warn("Access denied")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.RecordAuth("login", observability.OutcomeRejected)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(store, redisClient, version)
//	checker.RegisterHealthRoutes(mux)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
