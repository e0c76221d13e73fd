package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coursecast/coursecast-backend/internal/media"
	"github.com/coursecast/coursecast-backend/internal/transcode"
	"github.com/coursecast/coursecast-backend/internal/transcode/consumer"
	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/db"
	"github.com/coursecast/coursecast-backend/pkg/encoding"
	"github.com/coursecast/coursecast-backend/pkg/logger"
	"github.com/coursecast/coursecast-backend/pkg/metrics"
	"github.com/coursecast/coursecast-backend/pkg/pubsub"
	"github.com/coursecast/coursecast-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "transcode-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "transcode-worker"

	logg = logger.New(logger.Options{
		ServiceName: "transcode-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	encodingClient, err := encoding.NewClient(cfg.Encoding, logg)
	requireResource(ctx, logg, "encoding client", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	assetRepo := media.NewRepository(dbClient.DB())

	pipeline, err := transcode.NewPipeline(encodingClient, assetRepo, cfg.Encoding, cfg.Transcode, pipelineMetrics, logg)
	requireResource(ctx, logg, "transcode pipeline", err)

	uploadConsumer, err := consumer.NewConsumer(
		assetRepo,
		pipeline,
		redisClient,
		cfg.Transcode.LockTTL,
		pubsubClient.UploadSubscription(),
		pipelineMetrics,
		logg,
	)
	requireResource(ctx, logg, "upload consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})

	metricsServer := startMetricsServer(runCtx, logg, registry)
	defer func() {
		graceCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(graceCtx); err != nil {
			logg.Error(runCtx, "error shutting down metrics server", err)
		}
	}()

	logg.Info(runCtx, "transcode worker ready")

	if err := uploadConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "transcode worker not working", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "transcode worker shutting down gracefully")
}

func startMetricsServer(ctx context.Context, logg *logger.Logger, registry *prometheus.Registry) *http.Server {
	port := os.Getenv("METRICS_PORT")
	if port == "" {
		port = "9091"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()

	return server
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
