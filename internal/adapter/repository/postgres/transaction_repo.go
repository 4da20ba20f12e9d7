package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

const transactionColumns = `id, account_id, date, kind, description, amount, category,
	ai_category, is_subscription, created_at, updated_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Upsert inserts the transaction keyed by its provider id, or overwrites the
// provider-owned fields of the existing row. ai_category and is_subscription
// are never touched here, and round_up_pending is only set on insert. The bool
// reports whether a row was inserted.
func (r *TransactionRepository) Upsert(ctx context.Context, tx usecase.Tx, txn *domain.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (` + transactionColumns + `, round_up_pending)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			kind = EXCLUDED.kind,
			description = EXCLUDED.description,
			amount = EXCLUDED.amount,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted
	`

	args := append(transactionArgs(txn), txn.RoundUpPending)

	var inserted bool
	err := conn(r.db, tx).QueryRow(ctx, query, args...).Scan(&inserted)

	return inserted, err
}

// ClaimPendingRoundUps locks and returns the transactions whose round-up has
// not been credited. Rows locked by a concurrent claim are skipped.
func (r *TransactionRepository) ClaimPendingRoundUps(ctx context.Context, tx usecase.Tx) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE round_up_pending
		ORDER BY id
		FOR UPDATE SKIP LOCKED
	`

	rows, err := conn(r.db, tx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txn.RoundUpPending = true
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

// MarkRoundUpsApplied clears the pending flag of the given transactions.
func (r *TransactionRepository) MarkRoundUpsApplied(ctx context.Context, tx usecase.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE transactions SET round_up_pending = FALSE WHERE id = ANY($1)`
	_, err := conn(r.db, tx).Exec(ctx, query, ids)

	return err
}

// Create inserts a manually entered transaction.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query, transactionArgs(txn)...)

	return err
}

// ListUncategorized returns every transaction without an AI category.
func (r *TransactionRepository) ListUncategorized(ctx context.Context) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ai_category IS NULL
		ORDER BY date, id
	`

	return r.query(ctx, query)
}

// ApplyClassification writes a classifier result. It reports false when no
// transaction carries the classification's id.
func (r *TransactionRepository) ApplyClassification(ctx context.Context, tx usecase.Tx, c domain.Classification, updatedAt time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET description = $2, ai_category = $3, is_subscription = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := conn(r.db, tx).Exec(ctx, query, c.ID, c.CleanName, c.Category, c.IsSubscription, updatedAt)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

// SignedSums returns the signed transaction total of each account. Accounts
// without transactions map to zero.
func (r *TransactionRepository) SignedSums(ctx context.Context, accountIDs []string) (map[string]decimal.Decimal, error) {
	sums := make(map[string]decimal.Decimal, len(accountIDs))
	if len(accountIDs) == 0 {
		return sums, nil
	}
	for _, id := range accountIDs {
		sums[id] = decimal.Zero
	}

	query := `
		SELECT account_id,
		       COALESCE(SUM(CASE WHEN kind = 'INCOME' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE account_id = ANY($1)
		GROUP BY account_id
	`

	rows, err := r.db.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			sum pgtype.Numeric
		)
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		sums[id] = numericToDecimal(sum)
	}

	return sums, rows.Err()
}

// ListSubscriptions returns subscription transactions newest first.
func (r *TransactionRepository) ListSubscriptions(ctx context.Context, filter domain.AccountFilter) ([]*domain.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.date, t.kind, t.description, t.amount, t.category,
		       t.ai_category, t.is_subscription, t.created_at, t.updated_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.is_subscription
		  AND ($1::text = '' OR t.account_id = $1)
		  AND ($2::text = '' OR a.institution_id = $2)
		ORDER BY t.date DESC, t.created_at DESC
	`

	return r.query(ctx, query, filter.AccountID, filter.InstitutionID)
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func transactionArgs(t *domain.Transaction) []any {
	return []any{
		t.ID,
		t.AccountID,
		t.Date,
		string(t.Kind),
		t.Description,
		decimalToNumeric(t.Amount),
		t.Category,
		t.AICategory,
		t.IsSubscription,
		t.CreatedAt,
		t.UpdatedAt,
	}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t      domain.Transaction
		kind   string
		amount pgtype.Numeric
	)
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Date,
		&kind,
		&t.Description,
		&amount,
		&t.Category,
		&t.AICategory,
		&t.IsSubscription,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Kind = domain.TransactionKind(kind)
	t.Amount = numericToDecimal(amount)

	return &t, nil
}
