package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/spareledger/internal/domain"
)

var (
	credentialCols  = []string{"id", "access_token", "item_id", "institution_id", "institution_name", "sync_cursor", "created_at", "updated_at"}
	accountCols     = []string{"id", "credential_id", "provider_account_id", "name", "mask", "kind", "currency", "institution_id", "institution_name", "balance", "is_manual", "created_at", "updated_at"}
	transactionCols = []string{"id", "account_id", "date", "kind", "description", "amount", "category", "ai_category", "is_subscription", "created_at", "updated_at"}
)

func TestCredentialRepository_GetByID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCredentialRepository(mock)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cursor := "cursor-42"

	mock.ExpectQuery(`SELECT .* FROM credentials WHERE id = \$1`).
		WithArgs("cred-1").
		WillReturnRows(pgxmock.NewRows(credentialCols).
			AddRow("cred-1", "access-1", "item-1", "ins_1", "First Bank", &cursor, now, now))

	c, err := repo.GetByID(context.Background(), "cred-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", c.AccessToken)
	assert.Equal(t, "cursor-42", c.CursorValue())
	assert.Equal(t, now, c.CreatedAt)

	mock.ExpectQuery(`SELECT .* FROM credentials WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

	assertExpectations(t, mock)
}

func TestCredentialRepository_ListNeverSynced(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCredentialRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM credentials ORDER BY created_at, id`).
		WillReturnRows(pgxmock.NewRows(credentialCols).
			AddRow("cred-1", "access-1", "item-1", "ins_1", "First Bank", nil, now, now).
			AddRow("cred-2", "access-2", "item-2", "ins_2", "Second Bank", nil, now, now))

	creds, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Nil(t, creds[0].Cursor)
	assert.Equal(t, "", creds[1].CursorValue())

	assertExpectations(t, mock)
}

func TestCredentialRepository_UpdateCursorInTransaction(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCredentialRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBeginTx(readCommitted)
	mock.ExpectExec(`UPDATE credentials SET sync_cursor = \$2`).
		WithArgs("cred-1", "cursor-2", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE credentials SET sync_cursor = \$2`).
		WithArgs("gone", "cursor-2", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCommit()

	tx, err := newTxManagerWithPool(mock).Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateCursor(context.Background(), tx, "cred-1", "cursor-2", now))
	assert.ErrorIs(t, repo.UpdateCursor(context.Background(), tx, "gone", "cursor-2", now), domain.ErrCredentialNotFound)
	require.NoError(t, tx.Commit(context.Background()))

	assertExpectations(t, mock)
}

func TestAccountRepository_UpsertByProviderIDKeepsStoredID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)
	credID, providerID := "cred-1", "pa-1"

	account := &domain.Account{
		ID:                "new-id",
		CredentialID:      &credID,
		ProviderAccountID: &providerID,
		Name:              "Checking",
		Kind:              domain.AccountKindDepository,
		Currency:          "USD",
		Balance:           decimal.RequireFromString("10.50"),
	}

	mock.ExpectBeginTx(readCommitted)
	mock.ExpectQuery(`(?s)INSERT INTO accounts.*ON CONFLICT \(provider_account_id\) DO UPDATE`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("existing-id"))
	mock.ExpectCommit()

	tx, err := newTxManagerWithPool(mock).Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.UpsertByProviderID(context.Background(), tx, account))
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, "existing-id", account.ID)
	assertExpectations(t, mock)
}

func TestAccountRepository_ListFilters(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)
	now := time.Now().UTC()
	credID := "cred-1"

	mock.ExpectQuery(`(?s)SELECT .* FROM accounts.*institution_id = \$2`).
		WithArgs("", "ins_1").
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow("acc-1", &credID, nil, "Visa", "4242", "credit", "USD", "ins_1", "First Bank", "-250.75", false, now, now).
			AddRow("acc-2", nil, nil, "Wallet", "", "cash", "USD", "ins_1", "First Bank", "0", true, now, now))

	accounts, err := repo.List(context.Background(), domain.AccountFilter{InstitutionID: "ins_1"})
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.True(t, accounts[0].IsCredit())
	assert.True(t, accounts[0].Balance.Equal(decimal.RequireFromString("-250.75")))
	assert.Equal(t, "cred-1", *accounts[0].CredentialID)
	assert.Nil(t, accounts[1].CredentialID)
	assert.True(t, accounts[1].IsManual)

	assertExpectations(t, mock)
}

func TestAccountRepository_DeleteMissing(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)

	mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).
		WithArgs("acc-9").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), nil, "acc-9"), domain.ErrAccountNotFound)
	assertExpectations(t, mock)
}

func TestTransactionRepository_UpsertReportsInsert(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTransactionRepository(mock)
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	txn := &domain.Transaction{
		ID:          "txn-1",
		AccountID:   "acc-1",
		Date:        date,
		Kind:        domain.TransactionKindExpense,
		Description:    "Coffee",
		Amount:         decimal.RequireFromString("4.25"),
		RoundUpPending: true,
	}

	upsert := `(?s)INSERT INTO transactions.*round_up_pending\).*ON CONFLICT \(id\) DO UPDATE.*RETURNING \(xmax = 0\)`
	args := []any{"txn-1", "acc-1", date, "EXPENSE", "Coffee", decimalToNumeric(txn.Amount),
		pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true}

	mock.ExpectBeginTx(readCommitted)
	mock.ExpectQuery(upsert).WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery(upsert).WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectCommit()

	tx, err := newTxManagerWithPool(mock).Begin(context.Background())
	require.NoError(t, err)

	inserted, err := repo.Upsert(context.Background(), tx, txn)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Upsert(context.Background(), tx, txn)
	require.NoError(t, err)
	assert.False(t, inserted, "replayed transaction must not count as new")

	require.NoError(t, tx.Commit(context.Background()))
	assertExpectations(t, mock)
}

func TestTransactionRepository_UpsertKeepsPendingFlagOnConflict(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTransactionRepository(mock)

	mock.ExpectQuery(`(?s)ON CONFLICT \(id\) DO UPDATE SET(.*)RETURNING`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), false).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(false))

	_, err := repo.Upsert(context.Background(), nil, &domain.Transaction{ID: "txn-1", Kind: domain.TransactionKindExpense})
	require.NoError(t, err)
	assertExpectations(t, mock)
}

func TestTransactionRepository_ClaimAndMarkRoundUps(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTransactionRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBeginTx(readCommitted)
	mock.ExpectQuery(`(?s)FROM transactions.*WHERE round_up_pending.*FOR UPDATE SKIP LOCKED`).
		WillReturnRows(pgxmock.NewRows(transactionCols).
			AddRow("txn-1", "acc-1", now, "EXPENSE", "Coffee", "14.30", nil, nil, nil, now, now).
			AddRow("txn-2", "acc-1", now, "EXPENSE", "Lunch", "19.70", nil, nil, nil, now, now))
	mock.ExpectExec(`UPDATE transactions SET round_up_pending = FALSE WHERE id = ANY\(\$1\)`).
		WithArgs([]string{"txn-1", "txn-2"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	tx, err := newTxManagerWithPool(mock).Begin(context.Background())
	require.NoError(t, err)

	txns, err := repo.ClaimPendingRoundUps(context.Background(), tx)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].RoundUpPending)
	assert.True(t, domain.TotalRoundUp(txns).Equal(decimal.RequireFromString("1.00")))

	require.NoError(t, repo.MarkRoundUpsApplied(context.Background(), tx, []string{"txn-1", "txn-2"}))
	require.NoError(t, repo.MarkRoundUpsApplied(context.Background(), tx, nil))
	require.NoError(t, tx.Commit(context.Background()))

	assertExpectations(t, mock)
}

func TestTransactionRepository_ListUncategorized(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTransactionRepository(mock)
	now := time.Now().UTC()
	category := "Food and Drink"

	mock.ExpectQuery(`(?s)FROM transactions.*WHERE ai_category IS NULL`).
		WillReturnRows(pgxmock.NewRows(transactionCols).
			AddRow("txn-1", "acc-1", now, "EXPENSE", "SQ *BLUE BOTTLE", "6.50", &category, nil, nil, now, now))

	txns, err := repo.ListUncategorized(context.Background())
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.False(t, txns[0].IsCategorized())
	assert.Equal(t, domain.TransactionKindExpense, txns[0].Kind)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("6.50")))
	assert.Equal(t, "Food and Drink", *txns[0].Category)

	assertExpectations(t, mock)
}

func TestTransactionRepository_ApplyClassification(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTransactionRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(`(?s)UPDATE transactions.*SET description = \$2, ai_category = \$3, is_subscription = \$4`).
		WithArgs("txn-1", "Netflix", "Entertainment", true, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`(?s)UPDATE transactions`).
		WithArgs("ghost", "Ghost", "Other", false, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	matched, err := repo.ApplyClassification(context.Background(), nil,
		domain.Classification{ID: "txn-1", CleanName: "Netflix", Category: "Entertainment", IsSubscription: true}, now)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = repo.ApplyClassification(context.Background(), nil,
		domain.Classification{ID: "ghost", CleanName: "Ghost", Category: "Other"}, now)
	require.NoError(t, err)
	assert.False(t, matched)

	assertExpectations(t, mock)
}

func TestTransactionRepository_SignedSums(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTransactionRepository(mock)

	mock.ExpectQuery(`(?s)SUM\(CASE WHEN kind = 'INCOME'.*WHERE account_id = ANY\(\$1\)`).
		WithArgs([]string{"acc-1", "acc-2"}).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "sum"}).AddRow("acc-1", "-12.34"))

	sums, err := repo.SignedSums(context.Background(), []string{"acc-1", "acc-2"})
	require.NoError(t, err)
	assert.True(t, sums["acc-1"].Equal(decimal.RequireFromString("-12.34")))
	assert.True(t, sums["acc-2"].IsZero())

	empty, err := repo.SignedSums(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assertExpectations(t, mock)
}

func TestTransactionRepository_ListSubscriptions(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTransactionRepository(mock)
	now := time.Now().UTC()
	yes := true
	category := "Entertainment"

	mock.ExpectQuery(`(?s)JOIN accounts a ON a.id = t.account_id.*WHERE t.is_subscription`).
		WithArgs("acc-1", "").
		WillReturnRows(pgxmock.NewRows(transactionCols).
			AddRow("txn-2", "acc-1", now, "EXPENSE", "Netflix", "15.99", nil, &category, &yes, now, now))

	txns, err := repo.ListSubscriptions(context.Background(), domain.AccountFilter{AccountID: "acc-1"})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.NotNil(t, txns[0].IsSubscription)
	assert.True(t, *txns[0].IsSubscription)

	assertExpectations(t, mock)
}

func TestGoalRepository(t *testing.T) {
	mock := newMockPool(t)
	repo := NewGoalRepository(mock)

	mock.ExpectQuery(`(?s)FROM goals.*WHERE round_up_enabled`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "target_amount", "current_amount", "round_up_enabled"}).
			AddRow("goal-1", "Vacation", "1000.00", "12.34", true))
	mock.ExpectExec(`UPDATE goals SET current_amount = current_amount \+ \$2`).
		WithArgs("goal-1", decimalToNumeric(decimal.RequireFromString("0.33"))).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE goals SET current_amount = current_amount \+ \$2`).
		WithArgs("goal-2", pgxmock.AnyArg()).
		WillReturnError(errors.New("conn reset"))

	goals, err := repo.ListRoundUpEnabled(context.Background())
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.True(t, goals[0].CurrentAmount.Equal(decimal.RequireFromString("12.34")))

	require.NoError(t, repo.Increment(context.Background(), nil, "goal-1", decimal.RequireFromString("0.33")))
	assert.Error(t, repo.Increment(context.Background(), nil, "goal-2", decimal.RequireFromString("0.33")))

	assertExpectations(t, mock)
}

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "-250.75", "1000000000.00"} {
		got := numericToDecimal(decimalToNumeric(decimal.RequireFromString(s)))
		assert.True(t, got.Equal(decimal.RequireFromString(s)), "round trip of %s gave %s", s, got)
	}
}
