package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/spareledger/internal/domain"
)

const (
	// DefaultCategorizeBatchSize is the number of transactions sent per classification call.
	DefaultCategorizeBatchSize = 50
	// DefaultInterBatchDelay paces consecutive classification calls.
	DefaultInterBatchDelay = 2500 * time.Millisecond

	categorizationLockKey = "categorization"
)

// CategorizationConfig configures a CategorizationUseCase.
type CategorizationConfig struct {
	TxManager    TransactionManager
	TxnRepo      TransactionRepository
	Classifier   CategorizationGateway
	Metrics      MetricsRecorder
	Logger       zerolog.Logger
	QuotaRetries uint64        // extra attempts per batch on quota errors
	QuotaBackoff time.Duration // first wait before a quota retry
	// Lock serializes passes across processes. Optional.
	Lock    SyncLock
	LockTTL time.Duration
	// Sleep waits between batches. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// CategorizationUseCase labels transactions through the external classifier.
type CategorizationUseCase struct {
	txManager    TransactionManager
	txnRepo      TransactionRepository
	classifier   CategorizationGateway
	metrics      MetricsRecorder
	logger       zerolog.Logger
	quotaRetries uint64
	quotaBackoff time.Duration
	lock         SyncLock
	lockTTL      time.Duration
	sleep        func(ctx context.Context, d time.Duration) error

	running sync.Mutex
}

// NewCategorizationUseCase creates a new CategorizationUseCase.
func NewCategorizationUseCase(cfg CategorizationConfig) *CategorizationUseCase {
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.QuotaBackoff <= 0 {
		cfg.QuotaBackoff = 2 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}

	return &CategorizationUseCase{
		txManager:    cfg.TxManager,
		txnRepo:      cfg.TxnRepo,
		classifier:   cfg.Classifier,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		quotaRetries: cfg.QuotaRetries,
		quotaBackoff: cfg.QuotaBackoff,
		lock:         cfg.Lock,
		lockTTL:      cfg.LockTTL,
		sleep:        cfg.Sleep,
	}
}

// CategorizeInput controls batching and pacing.
type CategorizeInput struct {
	BatchSize       int
	InterBatchDelay time.Duration
}

// CategorizationReport summarizes a categorization pass.
type CategorizationReport struct {
	Pending   int
	Batches   int
	Processed int
	Errors    int
}

// CategorizePending classifies every transaction without an AI category.
// A failure of the first batch aborts the pass: quota exhaustion is returned as
// a *domain.QuotaError, anything else wraps domain.ErrCategorizationAborted.
// Later batch failures are counted and skipped. Only one pass runs at a time;
// an overlapping call returns domain.ErrCategorizationRunning.
func (uc *CategorizationUseCase) CategorizePending(ctx context.Context, input CategorizeInput) (*CategorizationReport, error) {
	logger := loggerFrom(ctx, uc.logger)

	if !uc.running.TryLock() {
		return nil, domain.ErrCategorizationRunning
	}
	defer uc.running.Unlock()

	if uc.lock != nil {
		acquired, err := uc.lock.Acquire(ctx, categorizationLockKey, uc.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire categorization lock: %w", err)
		}
		if !acquired {
			return nil, domain.ErrCategorizationRunning
		}
		defer func() {
			if err := uc.lock.Release(context.WithoutCancel(ctx), categorizationLockKey); err != nil {
				logger.Warn().Err(err).Msg("failed to release categorization lock")
			}
		}()
	}

	return uc.categorize(ctx, input, logger)
}

func (uc *CategorizationUseCase) categorize(ctx context.Context, input CategorizeInput, logger zerolog.Logger) (*CategorizationReport, error) {
	if input.BatchSize <= 0 {
		input.BatchSize = DefaultCategorizeBatchSize
	}
	if input.InterBatchDelay < 0 {
		input.InterBatchDelay = 0
	}

	pending, err := uc.txnRepo.ListUncategorized(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uncategorized: %w", err)
	}

	batches := partition(pending, input.BatchSize)
	report := &CategorizationReport{Pending: len(pending), Batches: len(batches)}
	if len(batches) == 0 {
		return report, nil
	}

	for i, batch := range batches {
		if i > 0 && input.InterBatchDelay > 0 {
			if err := uc.sleep(ctx, input.InterBatchDelay); err != nil {
				return report, err
			}
		}

		log := logger.With().Int("batch", i+1).Int("size", len(batch)).Logger()

		applied, err := uc.processBatch(ctx, batch, logger)
		if err != nil {
			uc.metrics.RecordCategorizationBatch("failed", 0)
			if i == 0 {
				log.Error().Err(err).Msg("first categorization batch failed, aborting")
				return report, abortError(err)
			}
			log.Warn().Err(err).Msg("categorization batch failed, skipping")
			report.Errors++
			continue
		}

		uc.metrics.RecordCategorizationBatch("success", applied)
		report.Processed += applied
		log.Debug().Int("applied", applied).Msg("categorization batch applied")
	}

	logger.Info().
		Int("pending", report.Pending).
		Int("processed", report.Processed).
		Int("errors", report.Errors).
		Msg("categorization finished")

	return report, nil
}

func (uc *CategorizationUseCase) processBatch(ctx context.Context, batch []*domain.Transaction, logger zerolog.Logger) (int, error) {
	requests := make([]domain.ClassificationRequest, len(batch))
	for i, t := range batch {
		requests[i] = domain.ClassificationRequest{ID: t.ID, RawText: t.Description}
	}

	results, err := uc.classify(ctx, requests, logger)
	if err != nil {
		return 0, err
	}

	for _, r := range results {
		if err := r.Validate(); err != nil {
			return 0, err
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(txCtx)

	now := time.Now().UTC()
	applied := 0
	for _, r := range results {
		ok, err := uc.txnRepo.ApplyClassification(txCtx, tx, r, now)
		if err != nil {
			return 0, fmt.Errorf("apply classification %s: %w", r.ID, err)
		}
		if ok {
			applied++
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return applied, nil
}

// classify calls the classifier, backing off exponentially on quota errors.
func (uc *CategorizationUseCase) classify(ctx context.Context, requests []domain.ClassificationRequest, logger zerolog.Logger) ([]domain.Classification, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = uc.quotaBackoff
	b.MaxElapsedTime = 0

	var results []domain.Classification
	err := backoff.Retry(func() error {
		var err error
		results, err = uc.classifier.Classify(ctx, requests)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrQuotaExceeded) {
			return backoff.Permanent(err)
		}
		logger.Warn().Err(err).Msg("classification quota hit, backing off")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uc.quotaRetries), ctx))

	return results, err
}

func abortError(err error) error {
	var quota *domain.QuotaError
	if errors.As(err, &quota) {
		return quota
	}
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return &domain.QuotaError{Err: err}
	}
	return fmt.Errorf("%w: %w", domain.ErrCategorizationAborted, err)
}

func partition(txns []*domain.Transaction, size int) [][]*domain.Transaction {
	var batches [][]*domain.Transaction
	for start := 0; start < len(txns); start += size {
		end := min(start+size, len(txns))
		batches = append(batches, txns[start:end])
	}
	return batches
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
