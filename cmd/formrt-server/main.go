// Package main runs the form runtime HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dlovans/formrt/internal/cache"
	"github.com/dlovans/formrt/internal/config"
	"github.com/dlovans/formrt/internal/logging"
	"github.com/dlovans/formrt/internal/server"
	"github.com/dlovans/formrt/internal/store"
	"github.com/dlovans/formrt/internal/telemetry"
	"github.com/dlovans/formrt/pkg/formrt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	if cfg.Tracing {
		shutdown, err := telemetry.InitTracer(os.Stdout)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// Form store
	var formStore store.FormStore
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("connect to MongoDB: %w", err)
		}
		defer mongoClient.Disconnect(context.Background())

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			return fmt.Errorf("ping MongoDB: %w", err)
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")
		formStore = store.NewMongoStore(mongoClient.Database(cfg.MongoDatabase))
	} else {
		logger.Warn().Msg("MONGO_URI not set, forms are kept in memory")
		formStore = store.NewMemoryStore()
	}

	// Layout cache
	var layoutCache server.CacheFunc
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("ping Redis: %w", err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

		shared := cache.NewRedisLayoutCache(rdb, cfg.LayoutCacheTTL, logging.Component(logger, "layout-cache"))
		layoutCache = shared.WithContext
	} else {
		local := formrt.NewMemoryLayoutCache(cfg.LayoutCacheSize)
		layoutCache = func(context.Context) formrt.LayoutCache { return local }
	}

	router := server.NewRouter(&server.Container{
		Store:       formStore,
		LayoutCache: layoutCache,
		Metrics:     metrics,
		Logger:      logging.Component(logger, "http"),
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting form runtime server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
	}
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info().Msg("server exited")
	return nil
}
