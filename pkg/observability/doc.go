// Package observability provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the marketplace server.
//
// # Structured Logging
//
// The logger is a thin wrapper over slog producing JSON output:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("extension_id", id).Info("version published")
//
// Request and user identifiers travel on the context and are folded back into
// the logger via FromContext.
//
// # Prometheus Metrics
//
// Metrics cover HTTP traffic, lifecycle transitions, signing, blob storage and
// manifest-cache effectiveness:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.LifecycleTransitionsTotal.WithLabelValues("publish", "ok").Inc()
//
// # OpenTelemetry
//
// Tracing is optional and exports spans over OTLP gRPC:
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
