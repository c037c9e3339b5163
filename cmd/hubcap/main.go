package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/hubcap/pkg/blobstore"
	"github.com/platinummonkey/hubcap/pkg/cleanup"
	"github.com/platinummonkey/hubcap/pkg/config"
	"github.com/platinummonkey/hubcap/pkg/events"
	"github.com/platinummonkey/hubcap/pkg/extensions"
	"github.com/platinummonkey/hubcap/pkg/httputil"
	"github.com/platinummonkey/hubcap/pkg/identity"
	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/search"
	"github.com/platinummonkey/hubcap/pkg/signing"

	"github.com/go-redis/redis/v8"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("starting hubcap")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("hubcap exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.ShutdownOTel(context.Background(), providers, logger); err != nil {
			logger.WithError(err).Warn("otel shutdown failed")
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	store, err := extensions.NewPostgresStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := extensions.RunMigrations(ctx, store.DB()); err != nil {
		return err
	}
	logger.Info("database migrations applied")

	var redisClient *redis.Client
	if cfg.Redis.CacheEnabled && cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, continuing without the shared cache tier")
		}
	}

	private, public, err := buildBlobstores(ctx, cfg)
	if err != nil {
		return err
	}
	private = blobstore.Instrument(private, "private", metrics)
	public = blobstore.Instrument(public, "public", metrics)

	tokens, err := extensions.NewTokenCache(cfg.Redis.L1CacheSize, redisClient, cfg.Redis.TTL, logger, metrics)
	if err != nil {
		return err
	}

	signer := signing.NewHTTPSigner(cfg.Signing.Endpoint, cfg.Signing.Timeout)

	var emitter events.Emitter
	if cfg.Events.WebhookURL != "" {
		emitter = events.NewWebhookEmitter(cfg.Events.WebhookURL, cfg.Events.WebhookSecret, cfg.Events.Timeout, logger)
	} else {
		emitter = events.NewLogEmitter(logger)
	}

	indexer := search.NewMemoryIndexer()

	service := extensions.NewService(store, private, public, signer, emitter, indexer, tokens, logger, metrics)
	handler := extensions.NewHandler(service, indexer, logger)

	router := mux.NewRouter()
	router.Use(
		mux.MiddlewareFunc(httputil.RequestIDMiddleware),
		mux.MiddlewareFunc(httputil.LoggingMiddleware(logger)),
		mux.MiddlewareFunc(httputil.RecoveryMiddleware(logger)),
		mux.MiddlewareFunc(identity.Middleware),
		mux.MiddlewareFunc(httputil.MaxBytesMiddleware(cfg.Server.MaxUploadBytes)),
		mux.MiddlewareFunc(observability.HTTPMetricsMiddleware(metrics)),
	)
	handler.RegisterRoutes(router)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "hubcap-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(store.DB(), redisClient, version)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	var sweeper *cleanup.Sweeper
	if cfg.Cleanup.Enabled {
		sweeper = cleanup.NewSweeper(store, private, public, logger, metrics)
		if err := sweeper.Start(cfg.Cleanup.Schedule); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		if sweeper != nil {
			sweeper.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown failed")
		}
		return nil
	})

	return g.Wait()
}

// buildBlobstores creates the private and public stores from configuration
func buildBlobstores(ctx context.Context, cfg *config.Config) (blobstore.Store, blobstore.Store, error) {
	switch cfg.Blobstore.Type {
	case "s3":
		private, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:     cfg.Blobstore.S3Endpoint,
			Region:       cfg.Blobstore.S3Region,
			Bucket:       cfg.Blobstore.S3PrivateBucket,
			AccessKey:    cfg.Blobstore.S3AccessKey,
			SecretKey:    cfg.Blobstore.S3SecretKey,
			UsePathStyle: cfg.Blobstore.S3UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		public, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:     cfg.Blobstore.S3Endpoint,
			Region:       cfg.Blobstore.S3Region,
			Bucket:       cfg.Blobstore.S3PublicBucket,
			AccessKey:    cfg.Blobstore.S3AccessKey,
			SecretKey:    cfg.Blobstore.S3SecretKey,
			UsePathStyle: cfg.Blobstore.S3UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return private, public, nil
	default:
		private, err := blobstore.NewFilesystemStore(cfg.Blobstore.PrivateRoot)
		if err != nil {
			return nil, nil, err
		}
		public, err := blobstore.NewFilesystemStore(cfg.Blobstore.PublicRoot)
		if err != nil {
			return nil, nil, err
		}
		return private, public, nil
	}
}
