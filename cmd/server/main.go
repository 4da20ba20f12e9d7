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

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/spareledger/internal/adapter/http"
	"github.com/iho/spareledger/internal/adapter/http/handler"
	"github.com/iho/spareledger/internal/adapter/http/middleware"
	"github.com/iho/spareledger/internal/app"
	"github.com/iho/spareledger/internal/infrastructure/config"
	"github.com/iho/spareledger/internal/infrastructure/logger"
)

const limiterIdleTimeout = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := app.Build(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).
		WithHitCounter(a.Metrics.RateLimitHits)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		SyncHandler:       handler.NewSyncHandler(a.Sync, log),
		CategorizeHandler: handler.NewCategorizeHandler(a.Categorization, a.CategorizeDefaults(), log),
		ReportHandler:     handler.NewReportHandler(a.Balances, a.Subscriptions),
		AccountHandler:    handler.NewAccountHandler(a.Accounts),
		HealthHandler: handler.NewHealthHandler(
			a.Pool,
			handler.PingerFunc(func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }),
		),
		IdempotencyStore: a.IdempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Metrics:          a.Metrics,
		Logger:           log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.Dispatcher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		cleanupLimiters(gctx, rateLimiter, log)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := rl.CleanupLimiters(limiterIdleTimeout); removed > 0 {
				log.Debug().Int("removed", removed).Msg("dropped idle rate limiters")
			}
		}
	}
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.HTTPShutdownTimeout <= 0 {
		return 30 * time.Second
	}
	return cfg.HTTPShutdownTimeout
}
