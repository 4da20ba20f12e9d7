package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

const accountColumns = `id, credential_id, provider_account_id, name, mask, kind, currency,
	institution_id, institution_name, balance, is_manual, created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts an account outside any transaction.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query, accountArgs(account)...)

	return err
}

// UpsertByProviderID inserts a provider-linked account or refreshes the row
// already holding its provider account id. account.ID is set to the stored id.
func (r *AccountRepository) UpsertByProviderID(ctx context.Context, tx usecase.Tx, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (provider_account_id) DO UPDATE SET
			credential_id = EXCLUDED.credential_id,
			name = EXCLUDED.name,
			mask = EXCLUDED.mask,
			kind = EXCLUDED.kind,
			currency = EXCLUDED.currency,
			institution_id = EXCLUDED.institution_id,
			institution_name = EXCLUDED.institution_name,
			balance = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	return conn(r.db, tx).QueryRow(ctx, query, accountArgs(account)...).Scan(&account.ID)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}

	return account, err
}

// List returns the accounts matching filter, ordered by id.
func (r *AccountRepository) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE ($1::text = '' OR id = $1)
		  AND ($2::text = '' OR institution_id = $2)
		ORDER BY id
	`

	return r.query(ctx, query, filter.AccountID, filter.InstitutionID)
}

// ListByCredential returns the accounts linked through a credential.
func (r *AccountRepository) ListByCredential(ctx context.Context, credentialID string) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE credential_id = $1 ORDER BY id`

	return r.query(ctx, query, credentialID)
}

// UpdateBalance updates the balance of an account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Tx, id string, balance decimal.Decimal, updatedAt time.Time) error {
	query := `UPDATE accounts SET balance = $2, updated_at = $3 WHERE id = $1`

	tag, err := conn(r.db, tx).Exec(ctx, query, id, decimalToNumeric(balance), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Delete removes an account and, by cascade, its transactions.
func (r *AccountRepository) Delete(ctx context.Context, tx usecase.Tx, id string) error {
	tag, err := conn(r.db, tx).Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func (r *AccountRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func accountArgs(a *domain.Account) []any {
	return []any{
		a.ID,
		a.CredentialID,
		a.ProviderAccountID,
		a.Name,
		a.Mask,
		string(a.Kind),
		a.Currency,
		a.InstitutionID,
		a.InstitutionName,
		decimalToNumeric(a.Balance),
		a.IsManual,
		a.CreatedAt,
		a.UpdatedAt,
	}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a       domain.Account
		kind    string
		balance pgtype.Numeric
	)
	err := row.Scan(
		&a.ID,
		&a.CredentialID,
		&a.ProviderAccountID,
		&a.Name,
		&a.Mask,
		&kind,
		&a.Currency,
		&a.InstitutionID,
		&a.InstitutionName,
		&balance,
		&a.IsManual,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Kind = domain.AccountKind(kind)
	a.Balance = numericToDecimal(balance)

	return &a, nil
}
