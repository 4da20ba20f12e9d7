package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
)

// RoundUpConfig configures a RoundUpUseCase.
type RoundUpConfig struct {
	TxManager TransactionManager
	TxnRepo   TransactionRepository
	GoalRepo  GoalRepository
	Retrier   Retrier
	Metrics   MetricsRecorder
	Logger    zerolog.Logger
}

// RoundUpUseCase distributes the spare change of new expenses across savings goals.
type RoundUpUseCase struct {
	txManager TransactionManager
	txnRepo   TransactionRepository
	goalRepo  GoalRepository
	retrier   Retrier
	metrics   MetricsRecorder
	logger    zerolog.Logger
}

// NewRoundUpUseCase creates a new RoundUpUseCase. Metrics may be nil.
func NewRoundUpUseCase(cfg RoundUpConfig) *RoundUpUseCase {
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	return &RoundUpUseCase{
		txManager: cfg.TxManager,
		txnRepo:   cfg.TxnRepo,
		goalRepo:  cfg.GoalRepo,
		retrier:   cfg.Retrier,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// RoundUpResult describes one distribution.
type RoundUpResult struct {
	Total       decimal.Decimal
	Share       decimal.Decimal
	Distributed decimal.Decimal
	Leftover    decimal.Decimal
	Goals       int
	// Transactions is the number of pending transactions settled by the pass.
	Transactions int
}

func emptyRoundUp(total decimal.Decimal) *RoundUpResult {
	return &RoundUpResult{
		Total:       total,
		Share:       decimal.Zero,
		Distributed: decimal.Zero,
		Leftover:    decimal.Zero,
	}
}

// ApplyPending credits the round-ups still owed by synced expenses. Claiming
// the rows, crediting every goal and clearing the pending flags happen in one
// database transaction, so a failed pass leaves the rows for the next one.
func (uc *RoundUpUseCase) ApplyPending(ctx context.Context) (*RoundUpResult, error) {
	return uc.run(ctx, func(ctx context.Context, tx Tx) (*RoundUpResult, error) {
		txns, err := uc.txnRepo.ClaimPendingRoundUps(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("claim pending round-ups: %w", err)
		}
		if len(txns) == 0 {
			return emptyRoundUp(decimal.Zero), nil
		}

		result, err := uc.credit(ctx, tx, txns)
		if err != nil {
			return nil, err
		}

		ids := make([]string, len(txns))
		for i, t := range txns {
			ids[i] = t.ID
		}
		if err := uc.txnRepo.MarkRoundUpsApplied(ctx, tx, ids); err != nil {
			return nil, fmt.Errorf("mark round-ups applied: %w", err)
		}
		result.Transactions = len(txns)
		return result, nil
	})
}

// ApplyRoundUps credits every round-up-enabled goal with an even share of the
// round-ups of txns. Rounding leftover is reported, never distributed.
func (uc *RoundUpUseCase) ApplyRoundUps(ctx context.Context, txns []*domain.Transaction) (*RoundUpResult, error) {
	total := domain.TotalRoundUp(txns)
	if !total.IsPositive() {
		return emptyRoundUp(total), nil
	}

	return uc.run(ctx, func(ctx context.Context, tx Tx) (*RoundUpResult, error) {
		return uc.credit(ctx, tx, txns)
	})
}

// run executes fn in a database transaction, retrying the whole transaction on
// transient conflicts.
func (uc *RoundUpUseCase) run(ctx context.Context, fn func(ctx context.Context, tx Tx) (*RoundUpResult, error)) (*RoundUpResult, error) {
	var result *RoundUpResult
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback(txCtx)

		r, err := fn(txCtx, tx)
		if err != nil {
			return err
		}
		if err := tx.Commit(txCtx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Distributed.IsPositive() {
		uc.metrics.RecordRoundUp(result.Distributed)
		uc.logger.Info().
			Str("total", result.Total.String()).
			Str("share", result.Share.String()).
			Int("goals", result.Goals).
			Str("leftover", result.Leftover.String()).
			Msg("round-ups distributed")
	}

	return result, nil
}

// credit increments each goal by its share inside tx.
func (uc *RoundUpUseCase) credit(ctx context.Context, tx Tx, txns []*domain.Transaction) (*RoundUpResult, error) {
	total := domain.TotalRoundUp(txns)
	if !total.IsPositive() {
		return emptyRoundUp(total), nil
	}

	goals, err := uc.goalRepo.ListRoundUpEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list round-up goals: %w", err)
	}
	if len(goals) == 0 {
		uc.logger.Debug().Str("total", total.String()).Msg("no round-up goals, skipping distribution")
		return emptyRoundUp(total), nil
	}

	share, leftover := domain.SplitEvenly(total, len(goals))
	result := &RoundUpResult{
		Total:       total,
		Share:       share,
		Goals:       len(goals),
		Distributed: share.Mul(decimal.NewFromInt(int64(len(goals)))),
		Leftover:    leftover,
	}
	if share.IsZero() {
		return result, nil
	}

	// A pgx transaction is not safe for concurrent use.
	for _, goal := range goals {
		if err := uc.goalRepo.Increment(ctx, tx, goal.ID, share); err != nil {
			return nil, fmt.Errorf("increment goal %s: %w", goal.ID, err)
		}
	}

	return result, nil
}
