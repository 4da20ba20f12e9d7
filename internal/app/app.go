// Package app assembles the engine from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/spareledger/internal/adapter/categorizer/gemini"
	"github.com/iho/spareledger/internal/adapter/provider/plaid"
	postgresRepo "github.com/iho/spareledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/spareledger/internal/adapter/repository/redis"
	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/infrastructure/config"
	"github.com/iho/spareledger/internal/infrastructure/dispatcher"
	"github.com/iho/spareledger/internal/infrastructure/metrics"
	"github.com/iho/spareledger/internal/infrastructure/postgres"
	"github.com/iho/spareledger/internal/infrastructure/redis"
	"github.com/iho/spareledger/internal/usecase"
)

// App holds the connected infrastructure and the use cases built on it.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *goredis.Client
	Metrics *metrics.Metrics

	IdempotencyStore *redisRepo.IdempotencyStore
	Dispatcher       *dispatcher.Dispatcher

	Accounts       *usecase.AccountUseCase
	Balances       *usecase.BalanceUseCase
	Subscriptions  *usecase.SubscriptionUseCase
	Categorization *usecase.CategorizationUseCase
	RoundUps       *usecase.RoundUpUseCase
	Sync           *usecase.SyncUseCase
}

// Options tune Build.
type Options struct {
	// Registerer receives the engine metrics. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Build connects to Postgres and Redis, optionally migrates the schema, and wires
// every use case. Callers must Close the returned App.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}

	if cfg.DatabaseAutoMigrate {
		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger).Up(); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("connected to redis")

	provider, err := newProvider(cfg, logger)
	if err != nil {
		pool.Close()
		redisClient.Close()
		return nil, err
	}
	classifier, err := newClassifier(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		redisClient.Close()
		return nil, err
	}

	a := &App{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		Redis:            redisClient,
		Metrics:          metrics.NewWithRegistry(opts.Registerer),
		IdempotencyStore: redisRepo.NewIdempotencyStore(redisClient),
	}
	a.wire(provider, classifier)

	return a, nil
}

func (a *App) wire(provider usecase.ProviderGateway, classifier usecase.CategorizationGateway) {
	cfg := a.Config

	txManager := postgresRepo.NewTxManager(a.Pool)
	credentialRepo := postgresRepo.NewCredentialRepository(a.Pool)
	accountRepo := postgresRepo.NewAccountRepository(a.Pool)
	txnRepo := postgresRepo.NewTransactionRepository(a.Pool)
	goalRepo := postgresRepo.NewGoalRepository(a.Pool)
	retrier := postgresRepo.NewRetrierWithConfig(postgresRepo.RetrierConfig{MaxRetries: cfg.DatabaseMaxRetries}, a.Logger)
	idGen := postgresRepo.NewULIDGenerator()

	a.Accounts = usecase.NewAccountUseCase(txManager, credentialRepo, accountRepo, txnRepo, provider, idGen, a.Logger)
	a.Balances = usecase.NewBalanceUseCase(accountRepo, txnRepo)
	a.Subscriptions = usecase.NewSubscriptionUseCase(txnRepo)
	a.Categorization = usecase.NewCategorizationUseCase(usecase.CategorizationConfig{
		TxManager:    txManager,
		TxnRepo:      txnRepo,
		Classifier:   classifier,
		Metrics:      a.Metrics,
		Logger:       a.Logger.With().Str("component", "categorization").Logger(),
		QuotaRetries: cfg.CategorizeQuotaRetries,
		Lock:         redisRepo.NewCategorizationLock(a.Redis),
	})
	a.Dispatcher = dispatcher.New(dispatcher.Config{
		Categorizer:     a.Categorization,
		Logger:          a.Logger,
		Interval:        cfg.CategorizeSweepInterval,
		BatchSize:       cfg.CategorizeBatchSize,
		InterBatchDelay: cfg.CategorizeInterBatchDelay,
	})
	a.RoundUps = usecase.NewRoundUpUseCase(usecase.RoundUpConfig{
		TxManager: txManager,
		TxnRepo:   txnRepo,
		GoalRepo:  goalRepo,
		Retrier:   retrier,
		Metrics:   a.Metrics,
		Logger:    a.Logger.With().Str("component", "roundup").Logger(),
	})
	a.Sync = usecase.NewSyncUseCase(usecase.SyncConfig{
		TxManager:      txManager,
		CredentialRepo: credentialRepo,
		AccountRepo:    accountRepo,
		TxnRepo:        txnRepo,
		Provider:       provider,
		RoundUps:       a.RoundUps,
		Lock:           redisRepo.NewSyncLock(a.Redis),
		Trigger:        a.Dispatcher,
		Metrics:        a.Metrics,
		Logger:         a.Logger.With().Str("component", "sync").Logger(),
		Concurrency:    cfg.SyncConcurrency,
		LockTTL:        cfg.SyncLockTTL,
	})
}

// CategorizeDefaults returns the configured batch settings.
func (a *App) CategorizeDefaults() usecase.CategorizeInput {
	return usecase.CategorizeInput{
		BatchSize:       a.Config.CategorizeBatchSize,
		InterBatchDelay: a.Config.CategorizeInterBatchDelay,
	}
}

// Close releases the Redis client and the Postgres pool.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func newProvider(cfg *config.Config, logger zerolog.Logger) (usecase.ProviderGateway, error) {
	if !cfg.ProviderConfigured() {
		logger.Warn().Msg("PLAID_CLIENT_ID/PLAID_SECRET not set, provider calls will fail")
		return unconfiguredProvider{}, nil
	}
	client, err := plaid.NewClient(plaid.Config{
		BaseURL:  cfg.PlaidBaseURL,
		ClientID: cfg.PlaidClientID,
		Secret:   cfg.PlaidSecret,
		Timeout:  cfg.PlaidTimeout,
		PageSize: cfg.PlaidPageSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}
	return client, nil
}

func newClassifier(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (usecase.CategorizationGateway, error) {
	if !cfg.CategorizerConfigured() {
		logger.Warn().Msg("GEMINI_API_KEY not set, categorization will fail")
		return unconfiguredClassifier{}, nil
	}
	classifier, err := gemini.NewClassifier(ctx, gemini.Config{
		APIKey: cfg.GeminiAPIKey,
		Models: cfg.GeminiModels,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create categorization client: %w", err)
	}
	return classifier, nil
}

var errNotConfigured = fmt.Errorf("%w: not configured", domain.ErrProviderUnavailable)

type unconfiguredProvider struct{}

func (unconfiguredProvider) FetchDelta(context.Context, string, string) (*domain.DeltaPage, error) {
	return nil, errNotConfigured
}

func (unconfiguredProvider) ListAccounts(context.Context, string) ([]domain.ProviderAccount, error) {
	return nil, errNotConfigured
}

func (unconfiguredProvider) ExchangePublicToken(context.Context, string) (*domain.LinkedCredential, error) {
	return nil, errNotConfigured
}

func (unconfiguredProvider) RemoveItem(context.Context, string) error {
	return errNotConfigured
}

type unconfiguredClassifier struct{}

func (unconfiguredClassifier) Classify(context.Context, []domain.ClassificationRequest) ([]domain.Classification, error) {
	return nil, fmt.Errorf("classifier %w", errNotConfigured)
}
