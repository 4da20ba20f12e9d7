package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
)

// CredentialRepository defines data access for provider credentials.
type CredentialRepository interface {
	Create(ctx context.Context, tx Tx, credential *domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	List(ctx context.Context) ([]*domain.Credential, error)
	UpdateCursor(ctx context.Context, tx Tx, id, cursor string, updatedAt time.Time) error
	Delete(ctx context.Context, tx Tx, id string) error
}

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	UpsertByProviderID(ctx context.Context, tx Tx, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
	ListByCredential(ctx context.Context, credentialID string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Tx, id string, balance decimal.Decimal, updatedAt time.Time) error
	Delete(ctx context.Context, tx Tx, id string) error
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	// Upsert inserts the transaction or overwrites its provider fields, leaving
	// classification fields untouched. It reports whether a new row was inserted.
	Upsert(ctx context.Context, tx Tx, txn *domain.Transaction) (bool, error)
	Create(ctx context.Context, txn *domain.Transaction) error
	ListUncategorized(ctx context.Context) ([]*domain.Transaction, error)
	ApplyClassification(ctx context.Context, tx Tx, c domain.Classification, updatedAt time.Time) (bool, error)
	SignedSums(ctx context.Context, accountIDs []string) (map[string]decimal.Decimal, error)
	ListSubscriptions(ctx context.Context, filter domain.AccountFilter) ([]*domain.Transaction, error)
	// ClaimPendingRoundUps locks the transactions whose round-up is still owed.
	ClaimPendingRoundUps(ctx context.Context, tx Tx) ([]*domain.Transaction, error)
	MarkRoundUpsApplied(ctx context.Context, tx Tx, ids []string) error
}

// GoalRepository defines the goal operations the ledger needs.
type GoalRepository interface {
	ListRoundUpEnabled(ctx context.Context) ([]*domain.Goal, error)
	// Increment adds amount to the goal's current amount in a single statement.
	Increment(ctx context.Context, tx Tx, id string, amount decimal.Decimal) error
}

// Tx represents a database transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Retrier retries operations that fail on transient database conflicts.
type Retrier interface {
	Retry(ctx context.Context, fn func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not succeed so it can be retried.
	Release(ctx context.Context, key string) error
}

// MetricsRecorder receives engine counters. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordSync(status string, duration time.Duration)
	RecordSyncedTransactions(result string, count int)
	RecordCategorizationBatch(status string, processed int)
	RecordRoundUp(distributed decimal.Decimal)
}

type noopMetrics struct{}

func (noopMetrics) RecordSync(string, time.Duration) {}
func (noopMetrics) RecordSyncedTransactions(string, int) {}
func (noopMetrics) RecordCategorizationBatch(string, int) {}
func (noopMetrics) RecordRoundUp(decimal.Decimal) {}
