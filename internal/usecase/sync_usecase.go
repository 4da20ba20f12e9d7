package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/spareledger/internal/domain"
)

// Credential sync statuses.
const (
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
	SyncStatusSkipped = "skipped"
)

// Overall sync outcomes.
const (
	OutcomeSynced  = "synced"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeIdle    = "idle"
)

// SyncConfig configures a SyncUseCase.
type SyncConfig struct {
	TxManager      TransactionManager
	CredentialRepo CredentialRepository
	AccountRepo    AccountRepository
	TxnRepo        TransactionRepository
	Provider       ProviderGateway
	RoundUps       *RoundUpUseCase
	Lock           SyncLock
	Trigger        CategorizationTrigger
	Metrics        MetricsRecorder
	Logger         zerolog.Logger
	Concurrency    int           // credentials drained in parallel
	LockTTL        time.Duration // per-credential lock lifetime
}

// SyncUseCase pulls new provider transactions into the ledger.
type SyncUseCase struct {
	txManager      TransactionManager
	credentialRepo CredentialRepository
	accountRepo    AccountRepository
	txnRepo        TransactionRepository
	provider       ProviderGateway
	roundUps       *RoundUpUseCase
	lock           SyncLock
	trigger        CategorizationTrigger
	metrics        MetricsRecorder
	logger         zerolog.Logger
	concurrency    int
	lockTTL        time.Duration
}

// NewSyncUseCase creates a new SyncUseCase. Lock, Trigger and Metrics are optional.
func NewSyncUseCase(cfg SyncConfig) *SyncUseCase {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}

	return &SyncUseCase{
		txManager:      cfg.TxManager,
		credentialRepo: cfg.CredentialRepo,
		accountRepo:    cfg.AccountRepo,
		txnRepo:        cfg.TxnRepo,
		provider:       cfg.Provider,
		roundUps:       cfg.RoundUps,
		lock:           cfg.Lock,
		trigger:        cfg.Trigger,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		concurrency:    cfg.Concurrency,
		lockTTL:        cfg.LockTTL,
	}
}

// SyncInput selects the credentials to sync. Empty means all of them.
type SyncInput struct {
	CredentialIDs []string
}

// CredentialSyncStatus reports the result for one credential.
type CredentialSyncStatus struct {
	Err          error
	CredentialID string
	Status       string
	Cursor       string
	Added        int
	Updated      int
	Skipped      int
	Modified     int
	Removed      int
	Pages        int
}

// SyncReport summarizes a sync pass.
type SyncReport struct {
	RoundUp      *RoundUpResult
	Credentials  []CredentialSyncStatus
	AddedCount   int
	UpdatedCount int
}

// Outcome classifies the pass as fully synced, partial, failed, or idle.
func (r *SyncReport) Outcome() string {
	var ok, failed int
	for _, c := range r.Credentials {
		switch c.Status {
		case SyncStatusSuccess:
			ok++
		case SyncStatusFailed:
			failed++
		}
	}
	switch {
	case len(r.Credentials) == 0:
		return OutcomeIdle
	case failed == 0 && ok > 0:
		return OutcomeSynced
	case failed == 0:
		return OutcomeIdle
	case ok == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

type credentialResult struct {
	status CredentialSyncStatus
}

// Sync drains the provider feed of each credential and then credits the
// round-ups still owed by synced expenses, including those left pending by an
// earlier pass. Per-credential failures, unknown credential ids among them,
// are reported in the SyncReport; only systemic failures are returned as errors.
func (uc *SyncUseCase) Sync(ctx context.Context, input SyncInput) (*SyncReport, error) {
	credentials, missing, err := uc.resolveCredentials(ctx, input.CredentialIDs)
	if err != nil {
		return nil, err
	}

	results := make([]credentialResult, len(credentials))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, cred := range credentials {
		g.Go(func() error {
			results[i] = uc.syncCredential(gctx, cred)
			return nil
		})
	}
	_ = g.Wait()

	report := &SyncReport{Credentials: make([]CredentialSyncStatus, 0, len(results)+len(missing))}
	for _, r := range results {
		report.Credentials = append(report.Credentials, r.status)
		report.AddedCount += r.status.Added
		report.UpdatedCount += r.status.Updated
	}
	report.Credentials = append(report.Credentials, missing...)

	if report.AddedCount > 0 && uc.trigger != nil {
		uc.trigger.Notify()
	}

	roundUp, err := uc.roundUps.ApplyPending(ctx)
	if err != nil {
		return report, fmt.Errorf("apply round-ups: %w", err)
	}
	report.RoundUp = roundUp

	uc.logger.Info().
		Int("credentials", len(report.Credentials)).
		Int("added", report.AddedCount).
		Int("updated", report.UpdatedCount).
		Str("outcome", report.Outcome()).
		Msg("sync finished")

	return report, nil
}

// resolveCredentials loads the requested credentials. Ids that match no
// credential come back as failed statuses instead of aborting the pass.
func (uc *SyncUseCase) resolveCredentials(ctx context.Context, ids []string) ([]*domain.Credential, []CredentialSyncStatus, error) {
	if len(ids) == 0 {
		creds, err := uc.credentialRepo.List(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list credentials: %w", err)
		}
		return creds, nil, nil
	}

	seen := make(map[string]bool, len(ids))
	creds := make([]*domain.Credential, 0, len(ids))
	var missing []CredentialSyncStatus
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		cred, err := uc.credentialRepo.GetByID(ctx, id)
		if errors.Is(err, domain.ErrCredentialNotFound) {
			uc.logger.Warn().Str("credential_id", id).Msg("unknown credential requested")
			uc.metrics.RecordSync(SyncStatusFailed, 0)
			missing = append(missing, CredentialSyncStatus{CredentialID: id, Status: SyncStatusFailed, Err: err})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("get credential %s: %w", id, err)
		}
		creds = append(creds, cred)
	}
	return creds, missing, nil
}

func (uc *SyncUseCase) syncCredential(ctx context.Context, cred *domain.Credential) credentialResult {
	start := time.Now()
	log := uc.logger.With().Str("credential_id", cred.ID).Logger()
	res := credentialResult{status: CredentialSyncStatus{CredentialID: cred.ID, Cursor: cred.CursorValue()}}

	finish := func(status string, err error) credentialResult {
		res.status.Status = status
		res.status.Err = err
		uc.metrics.RecordSync(status, time.Since(start))
		switch status {
		case SyncStatusFailed:
			log.Error().Err(err).Msg("credential sync failed")
		case SyncStatusSkipped:
			log.Warn().Err(err).Msg("credential sync skipped")
		}
		return res
	}

	if uc.lock != nil {
		acquired, err := uc.lock.Acquire(ctx, cred.ID, uc.lockTTL)
		if err != nil {
			return finish(SyncStatusFailed, fmt.Errorf("acquire lock: %w", err))
		}
		if !acquired {
			return finish(SyncStatusSkipped, domain.ErrSyncInProgress)
		}
		defer func() {
			if err := uc.lock.Release(context.WithoutCancel(ctx), cred.ID); err != nil {
				log.Warn().Err(err).Msg("failed to release sync lock")
			}
		}()
	}

	accounts, err := uc.accountRepo.ListByCredential(ctx, cred.ID)
	if err != nil {
		return finish(SyncStatusFailed, fmt.Errorf("list accounts: %w", err))
	}
	if len(accounts) == 0 {
		return finish(SyncStatusSkipped, domain.ErrCredentialInconsistent)
	}

	byProviderID := make(map[string]string, len(accounts))
	for _, a := range accounts {
		if a.ProviderAccountID != nil {
			byProviderID[*a.ProviderAccountID] = a.ID
		}
	}

	// The cursor stays local until every page has been fetched.
	cursor := cred.CursorValue()
	var added []domain.ProviderTransaction
	for {
		page, err := uc.provider.FetchDelta(ctx, cred.AccessToken, cursor)
		if err != nil {
			return finish(SyncStatusFailed, fmt.Errorf("fetch page %d: %w", res.status.Pages+1, err))
		}
		res.status.Pages++
		added = append(added, page.Added...)
		res.status.Modified += len(page.Modified)
		res.status.Removed += len(page.Removed)
		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	if err := uc.apply(ctx, cred.ID, cursor, added, byProviderID, &res.status, log); err != nil {
		return finish(SyncStatusFailed, err)
	}
	res.status.Cursor = cursor

	uc.metrics.RecordSyncedTransactions("inserted", res.status.Added)
	uc.metrics.RecordSyncedTransactions("updated", res.status.Updated)
	uc.metrics.RecordSyncedTransactions("skipped", res.status.Skipped)

	log.Info().
		Int("pages", res.status.Pages).
		Int("added", res.status.Added).
		Int("updated", res.status.Updated).
		Int("skipped", res.status.Skipped).
		Msg("credential synced")

	return finish(SyncStatusSuccess, nil)
}

// apply upserts the drained transactions and advances the cursor in one
// database transaction. New expenses are stored with their round-up pending.
func (uc *SyncUseCase) apply(
	ctx context.Context,
	credentialID, cursor string,
	added []domain.ProviderTransaction,
	byProviderID map[string]string,
	status *CredentialSyncStatus,
	log zerolog.Logger,
) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var inserted, updated, skipped int
	for _, pt := range added {
		accountID, ok := byProviderID[pt.AccountID]
		if !ok {
			skipped++
			log.Warn().
				Err(domain.ErrUnmatchedAccount).
				Str("provider_account_id", pt.AccountID).
				Str("transaction_id", pt.ID).
				Msg("skipping transaction")
			continue
		}

		txn := pt.ToTransaction(accountID)
		txn.RoundUpPending = txn.EarnsRoundUp()
		isNew, err := uc.txnRepo.Upsert(ctx, tx, txn)
		if err != nil {
			return fmt.Errorf("upsert transaction %s: %w", txn.ID, err)
		}
		if isNew {
			inserted++
		} else {
			updated++
		}
	}

	if err := uc.credentialRepo.UpdateCursor(ctx, tx, credentialID, cursor, time.Now().UTC()); err != nil {
		return fmt.Errorf("update cursor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	status.Added, status.Updated, status.Skipped = inserted, updated, skipped
	return nil
}
