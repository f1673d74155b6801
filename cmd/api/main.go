//	@title			Overdub API
//	@version		1.0
//	@description	Merges a voice track over a background music bed and publishes the result.
//
//	@host		localhost:8080
//	@BasePath	/api/v1

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/overdub/service/internal/audio"
	"github.com/overdub/service/internal/config"
	"github.com/overdub/service/internal/merge"
	"github.com/overdub/service/internal/metrics"
	appMiddleware "github.com/overdub/service/internal/middleware"
	"github.com/overdub/service/internal/storage"

	_ "github.com/overdub/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := storage.NewMinioStore(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageUseSSL,
	)
	if err != nil {
		logger.Fatal("object storage init failed", zap.Error(err))
	}

	codec := audio.NewFFmpeg(
		audio.WithFFmpegBinary(cfg.FFmpegPath),
		audio.WithFFprobeBinary(cfg.FFprobePath),
	)
	if err := codec.Verify(); err != nil {
		logger.Warn("audio toolchain not fully available, merges will fail", zap.Error(err))
	}

	appMetrics := metrics.New()

	// Wire dependencies: store + codec → pipeline → handler
	pipeline := merge.NewPipeline(store, codec, logger, appMetrics, cfg.ScratchDir)
	mergeHandler := merge.NewHandler(pipeline, logger)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(appMiddleware.Metrics(appMetrics))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/merge-audio", mergeHandler.Merge)
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// A merge holds the response open for the whole fetch/mix/publish
		// pipeline, so the write timeout must cover the slowest merge.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening",
			zap.String("addr", ":"+cfg.Port),
			zap.String("env", cfg.AppEnv),
		)
		logger.Info("swagger UI available",
			zap.String("url", "http://localhost:"+cfg.Port+"/swagger/"),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
