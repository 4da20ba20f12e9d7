package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

// Categorizer runs one categorization pass over pending transactions.
type Categorizer interface {
	CategorizePending(ctx context.Context, input usecase.CategorizeInput) (*usecase.CategorizationReport, error)
}

// Dispatcher runs categorization in the background, after syncs insert new
// transactions and on a periodic sweep.
type Dispatcher struct {
	categorizer     Categorizer
	logger          zerolog.Logger
	interval        time.Duration
	batchSize       int
	interBatchDelay time.Duration
	now             func() time.Time

	wake chan struct{}

	mu          sync.Mutex
	pausedUntil time.Time
}

// Config for Dispatcher.
type Config struct {
	Categorizer     Categorizer
	Logger          zerolog.Logger
	Interval        time.Duration // sweep interval
	BatchSize       int
	InterBatchDelay time.Duration
}

// New creates a new Dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = usecase.DefaultCategorizeBatchSize
	}

	return &Dispatcher{
		categorizer:     cfg.Categorizer,
		logger:          cfg.Logger.With().Str("component", "categorization-dispatcher").Logger(),
		interval:        cfg.Interval,
		batchSize:       cfg.BatchSize,
		interBatchDelay: cfg.InterBatchDelay,
		now:             time.Now,
		wake:            make(chan struct{}, 1),
	}
}

// Notify schedules a categorization pass. It never blocks; notifications that
// arrive while a pass is already queued are coalesced into it.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Start runs the dispatcher until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info().
		Dur("interval", d.interval).
		Int("batch_size", d.batchSize).
		Msg("categorization dispatcher started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("categorization dispatcher shutting down")
			return ctx.Err()
		case <-d.wake:
			d.run(ctx, "notify")
		case <-ticker.C:
			d.run(ctx, "sweep")
		}
	}
}

// run performs one pass unless the classifier asked us to back off.
func (d *Dispatcher) run(ctx context.Context, trigger string) {
	logger := d.logger.With().
		Str("run_id", uuid.NewString()).
		Str("trigger", trigger).
		Logger()

	if until := d.paused(); !until.IsZero() {
		logger.Debug().Time("paused_until", until).Msg("categorization paused, skipping")
		return
	}

	// The categorizer logs through the run's logger.
	started := d.now()
	report, err := d.categorizer.CategorizePending(logger.WithContext(ctx), usecase.CategorizeInput{
		BatchSize:       d.batchSize,
		InterBatchDelay: d.interBatchDelay,
	})

	var quota *domain.QuotaError
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, domain.ErrCategorizationRunning):
		logger.Debug().Msg("categorization already running, skipping")
		return
	case errors.As(err, &quota):
		if quota.RetryAfter > 0 {
			d.pause(quota.RetryAfter)
		}
		logger.Warn().Err(err).Dur("retry_after", quota.RetryAfter).Msg("categorization quota exhausted")
		return
	default:
		logger.Error().Err(err).Msg("categorization run failed")
		return
	}

	if report.Pending == 0 {
		return
	}
	logger.Info().
		Int("pending", report.Pending).
		Int("batches", report.Batches).
		Int("processed", report.Processed).
		Int("errors", report.Errors).
		Dur("elapsed", d.now().Sub(started)).
		Msg("categorization run finished")
}

func (d *Dispatcher) pause(wait time.Duration) {
	d.mu.Lock()
	d.pausedUntil = d.now().Add(wait)
	d.mu.Unlock()
}

func (d *Dispatcher) paused() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pausedUntil.IsZero() || !d.now().Before(d.pausedUntil) {
		d.pausedUntil = time.Time{}
		return time.Time{}
	}
	return d.pausedUntil
}
