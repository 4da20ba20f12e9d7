package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// PostgreSQL error codes worth another attempt.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
)

// RetrierConfig tunes the backoff. Zero fields take defaults.
type RetrierConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

func (c RetrierConfig) withDefaults() RetrierConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 50 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = time.Second
	}
	if c.MaxElapsedTime <= 0 {
		c.MaxElapsedTime = 10 * time.Second
	}
	return c
}

// Retrier implements usecase.Retrier. Goal increments from concurrent
// round-up passes contend on the same rows and go through it.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	logger          zerolog.Logger
}

// NewRetrier creates a retrier with default settings.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithConfig(RetrierConfig{}, logger)
}

// NewRetrierWithConfig creates a retrier from cfg.
func NewRetrierWithConfig(cfg RetrierConfig, logger zerolog.Logger) *Retrier {
	cfg = cfg.withDefaults()
	return &Retrier{
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
		maxElapsedTime:  cfg.MaxElapsedTime,
		logger:          logger,
	}
}

// Retry runs operation until it succeeds, fails permanently, or the retry
// budget is spent. The last error is returned unwrapped.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)

	attempt := 0
	notify := func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("retryable database error")
	}

	return backoff.RetryNotify(func() error {
		attempt++
		err := operation()
		if err == nil || isRetryableError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, notify)
}

// isRetryableError reports whether err is a transient conflict or a
// connection failure that happened before the statement reached the server.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}
