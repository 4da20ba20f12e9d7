package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
	"github.com/iho/spareledger/internal/usecase/mocks"
)

type syncFixture struct {
	creds    *mocks.MockCredentialRepository
	accounts *mocks.MockAccountRepository
	txns     *mocks.MockTransactionRepository
	goals    *mocks.MockGoalRepository
	provider *mocks.MockProviderGateway
	uc       *usecase.SyncUseCase
}

func strPtr(s string) *string { return &s }

func linkedAccount(id, credentialID, providerID string) *domain.Account {
	return &domain.Account{
		ID:                id,
		CredentialID:      strPtr(credentialID),
		ProviderAccountID: strPtr(providerID),
		Kind:              domain.AccountKindDepository,
	}
}

func newSyncFixture(t *testing.T, creds []*domain.Credential, accounts []*domain.Account, goals []*domain.Goal, opts ...func(*usecase.SyncConfig)) *syncFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &syncFixture{
		creds:    mocks.NewMockCredentialRepository(creds...),
		accounts: mocks.NewMockAccountRepository(accounts...),
		txns:     mocks.NewMockTransactionRepository(),
		goals:    mocks.NewMockGoalRepository(goals...),
		provider: mocks.NewMockProviderGateway(ctrl),
	}

	txManager := mocks.NewMockTransactionManager()
	cfg := usecase.SyncConfig{
		TxManager:      txManager,
		CredentialRepo: f.creds,
		AccountRepo:    f.accounts,
		TxnRepo:        f.txns,
		Provider:       f.provider,
		RoundUps: usecase.NewRoundUpUseCase(usecase.RoundUpConfig{
			TxManager: txManager,
			TxnRepo:   f.txns,
			GoalRepo:  f.goals,
			Retrier:   &mocks.MockRetrier{},
			Logger:    zerolog.Nop(),
		}),
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.uc = usecase.NewSyncUseCase(cfg)
	return f
}

func providerTxns(prefix, providerAccountID string, n int, amount string) []domain.ProviderTransaction {
	out := make([]domain.ProviderTransaction, n)
	for i := range out {
		out[i] = domain.ProviderTransaction{
			ID:        fmt.Sprintf("%s-%03d", prefix, i),
			AccountID: providerAccountID,
			Amount:    decimal.RequireFromString(amount),
			Date:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Name:      "Card purchase",
		}
	}
	return out
}

func TestSyncUseCase_ThreePageDrain(t *testing.T) {
	cred := &domain.Credential{ID: "cred-1", AccessToken: "access-1"}
	f := newSyncFixture(t,
		[]*domain.Credential{cred},
		[]*domain.Account{linkedAccount("acc-1", "cred-1", "plaid-acc-1")},
		[]*domain.Goal{{ID: "goal-1", RoundUpEnabled: true}},
	)

	gomock.InOrder(
		f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "").
			Return(&domain.DeltaPage{Added: providerTxns("p1", "plaid-acc-1", 40, "10.25"), NextCursor: "c1", HasMore: true}, nil),
		f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "c1").
			Return(&domain.DeltaPage{Added: providerTxns("p2", "plaid-acc-1", 40, "10.25"), NextCursor: "c2", HasMore: true}, nil),
		f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "c2").
			Return(&domain.DeltaPage{Added: providerTxns("p3", "plaid-acc-1", 40, "10.25"), NextCursor: "c3", HasMore: false}, nil),
	)

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.NoError(t, err)

	assert.Equal(t, 120, report.AddedCount)
	assert.Equal(t, 120, f.txns.Count())
	assert.Equal(t, "c3", f.creds.Cursor("cred-1"))
	assert.Equal(t, usecase.OutcomeSynced, report.Outcome())
	require.Len(t, report.Credentials, 1)
	assert.Equal(t, 3, report.Credentials[0].Pages)

	// 120 * 0.75
	require.NotNil(t, report.RoundUp)
	assert.True(t, report.RoundUp.Total.Equal(decimal.RequireFromString("90.00")), "total %s", report.RoundUp.Total)
	assert.True(t, f.goals.Current("goal-1").Equal(decimal.RequireFromString("90.00")))
}

func TestSyncUseCase_ReplayIsIdempotent(t *testing.T) {
	cred := &domain.Credential{ID: "cred-1", AccessToken: "access-1"}
	f := newSyncFixture(t,
		[]*domain.Credential{cred},
		[]*domain.Account{linkedAccount("acc-1", "cred-1", "plaid-acc-1")},
		[]*domain.Goal{{ID: "goal-1", RoundUpEnabled: true}},
	)

	page := &domain.DeltaPage{Added: providerTxns("p", "plaid-acc-1", 5, "14.30"), NextCursor: "c1"}
	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "").Return(page, nil)
	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "c1").Return(page, nil)

	first, err := f.uc.Sync(context.Background(), usecase.SyncInput{CredentialIDs: []string{"cred-1"}})
	require.NoError(t, err)
	before, _ := f.txns.Get("p-000")
	goalAfterFirst := f.goals.Current("goal-1")

	second, err := f.uc.Sync(context.Background(), usecase.SyncInput{CredentialIDs: []string{"cred-1"}})
	require.NoError(t, err)
	after, _ := f.txns.Get("p-000")

	assert.Equal(t, 5, first.AddedCount)
	assert.Equal(t, 0, second.AddedCount)
	assert.Equal(t, 5, second.UpdatedCount)
	assert.Equal(t, 5, f.txns.Count())
	assert.Equal(t, before.Amount.String(), after.Amount.String())
	assert.Equal(t, before.Kind, after.Kind)
	assert.Equal(t, before.Description, after.Description)

	// duplicates do not earn round-ups
	assert.True(t, goalAfterFirst.Equal(decimal.RequireFromString("3.50")))
	assert.True(t, f.goals.Current("goal-1").Equal(goalAfterFirst))
	assert.True(t, second.RoundUp.Total.IsZero())
}

func TestSyncUseCase_FailedRoundUpIsCreditedByNextPass(t *testing.T) {
	cred := &domain.Credential{ID: "cred-1", AccessToken: "access-1"}
	f := newSyncFixture(t,
		[]*domain.Credential{cred},
		[]*domain.Account{linkedAccount("acc-1", "cred-1", "plaid-acc-1")},
		[]*domain.Goal{{ID: "goal-1", RoundUpEnabled: true}},
	)

	goalsDown := true
	f.goals.ListRoundUpEnabledFunc = func(ctx context.Context) ([]*domain.Goal, error) {
		if goalsDown {
			goalsDown = false
			return nil, errors.New("goal store unavailable")
		}
		return []*domain.Goal{{ID: "goal-1", RoundUpEnabled: true}}, nil
	}

	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "").
		Return(&domain.DeltaPage{Added: providerTxns("p", "plaid-acc-1", 5, "14.30"), NextCursor: "c1"}, nil)
	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "c1").
		Return(&domain.DeltaPage{NextCursor: "c1"}, nil)

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 5, report.AddedCount)
	assert.Equal(t, "c1", f.creds.Cursor("cred-1"))
	assert.True(t, f.goals.Current("goal-1").IsZero())
	assert.Equal(t, 5, f.txns.Pending())

	// the provider has nothing new; the owed round-ups are still credited
	report, err = f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.AddedCount)
	require.NotNil(t, report.RoundUp)
	assert.Equal(t, 5, report.RoundUp.Transactions)
	assert.True(t, report.RoundUp.Distributed.Equal(decimal.RequireFromString("3.50")), "distributed %s", report.RoundUp.Distributed)
	assert.True(t, f.goals.Current("goal-1").Equal(decimal.RequireFromString("3.50")))
	assert.Equal(t, 0, f.txns.Pending())
}

func TestSyncUseCase_UnknownCredentialIsReportedNotFatal(t *testing.T) {
	cred := &domain.Credential{ID: "cred-1", AccessToken: "access-1"}
	f := newSyncFixture(t,
		[]*domain.Credential{cred},
		[]*domain.Account{linkedAccount("acc-1", "cred-1", "plaid-acc-1")},
		nil,
	)
	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "").
		Return(&domain.DeltaPage{Added: providerTxns("p", "plaid-acc-1", 2, "3.00"), NextCursor: "c1"}, nil)

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{CredentialIDs: []string{"cred-1", "ghost", "cred-1"}})
	require.NoError(t, err)
	require.Len(t, report.Credentials, 2)

	statuses := map[string]usecase.CredentialSyncStatus{}
	for _, s := range report.Credentials {
		statuses[s.CredentialID] = s
	}
	assert.Equal(t, usecase.SyncStatusSuccess, statuses["cred-1"].Status)
	assert.Equal(t, usecase.SyncStatusFailed, statuses["ghost"].Status)
	assert.ErrorIs(t, statuses["ghost"].Err, domain.ErrCredentialNotFound)
	assert.Equal(t, usecase.OutcomePartial, report.Outcome())
	assert.Equal(t, "c1", f.creds.Cursor("cred-1"))
	assert.Equal(t, 2, report.AddedCount)
}

func TestSyncUseCase_CredentialLookupFailureIsSystemic(t *testing.T) {
	f := newSyncFixture(t, nil, nil, nil)
	f.creds.GetByIDFunc = func(ctx context.Context, id string) (*domain.Credential, error) {
		return nil, errors.New("db down")
	}

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{CredentialIDs: []string{"cred-1"}})
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestSyncUseCase_InterruptedDrainKeepsCursor(t *testing.T) {
	cred := &domain.Credential{ID: "cred-1", AccessToken: "access-1", Cursor: strPtr("start")}
	f := newSyncFixture(t,
		[]*domain.Credential{cred},
		[]*domain.Account{linkedAccount("acc-1", "cred-1", "plaid-acc-1")},
		nil,
	)

	page1 := &domain.DeltaPage{Added: providerTxns("p1", "plaid-acc-1", 3, "1.50"), NextCursor: "c1", HasMore: true}
	page2 := &domain.DeltaPage{Added: providerTxns("p2", "plaid-acc-1", 3, "1.50"), NextCursor: "c2"}

	gomock.InOrder(
		f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "start").Return(page1, nil),
		f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "c1").Return(nil, domain.ErrProviderUnavailable),
		f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "start").Return(page1, nil),
		f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "c1").Return(page2, nil),
	)

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.NoError(t, err)
	require.Len(t, report.Credentials, 1)
	assert.Equal(t, usecase.SyncStatusFailed, report.Credentials[0].Status)
	assert.ErrorIs(t, report.Credentials[0].Err, domain.ErrProviderUnavailable)
	assert.Equal(t, usecase.OutcomeFailed, report.Outcome())
	assert.Equal(t, "start", f.creds.Cursor("cred-1"))
	assert.Equal(t, 0, f.txns.Count())

	report, err = f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeSynced, report.Outcome())
	assert.Equal(t, "c2", f.creds.Cursor("cred-1"))
	assert.Equal(t, 6, f.txns.Count())
	assert.Equal(t, 6, report.AddedCount)
}

func TestSyncUseCase_SignConventionAndUnmatchedAccounts(t *testing.T) {
	cred := &domain.Credential{ID: "cred-1", AccessToken: "access-1"}
	f := newSyncFixture(t,
		[]*domain.Credential{cred},
		[]*domain.Account{linkedAccount("acc-1", "cred-1", "plaid-acc-1")},
		nil,
	)

	page := &domain.DeltaPage{
		Added: []domain.ProviderTransaction{
			{ID: "spend", AccountID: "plaid-acc-1", Amount: decimal.RequireFromString("25.10"), Name: "Grocer"},
			{ID: "salary", AccountID: "plaid-acc-1", Amount: decimal.RequireFromString("-2000.00"), Name: "Payroll"},
			{ID: "orphan", AccountID: "plaid-unknown", Amount: decimal.RequireFromString("3.00")},
		},
		Modified:   providerTxns("m", "plaid-acc-1", 2, "1.00"),
		Removed:    []string{"gone"},
		NextCursor: "c1",
	}
	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "").Return(page, nil)

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.NoError(t, err)

	status := report.Credentials[0]
	assert.Equal(t, 2, status.Added)
	assert.Equal(t, 1, status.Skipped)
	assert.Equal(t, 2, status.Modified)
	assert.Equal(t, 1, status.Removed)

	spend, ok := f.txns.Get("spend")
	require.True(t, ok)
	assert.Equal(t, domain.TransactionKindExpense, spend.Kind)
	assert.Equal(t, "acc-1", spend.AccountID)

	salary, ok := f.txns.Get("salary")
	require.True(t, ok)
	assert.Equal(t, domain.TransactionKindIncome, salary.Kind)
	assert.True(t, salary.Amount.Equal(decimal.RequireFromString("2000.00")))

	_, ok = f.txns.Get("orphan")
	assert.False(t, ok)
	_, ok = f.txns.Get("m-000")
	assert.False(t, ok, "modified transactions are not applied")
}

func TestSyncUseCase_SkipsAndPartialFailures(t *testing.T) {
	creds := []*domain.Credential{
		{ID: "cred-a", AccessToken: "access-a"},
		{ID: "cred-b", AccessToken: "access-b"},
		{ID: "cred-empty", AccessToken: "access-empty"},
	}
	accounts := []*domain.Account{
		linkedAccount("acc-a", "cred-a", "pa"),
		linkedAccount("acc-b", "cred-b", "pb"),
	}
	f := newSyncFixture(t, creds, accounts, nil)

	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-a", "").
		Return(&domain.DeltaPage{Added: providerTxns("a", "pa", 2, "4.00"), NextCursor: "ca"}, nil)
	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-b", "").
		Return(nil, errors.New("connection reset"))

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.NoError(t, err)

	statuses := map[string]usecase.CredentialSyncStatus{}
	for _, s := range report.Credentials {
		statuses[s.CredentialID] = s
	}
	assert.Equal(t, usecase.SyncStatusSuccess, statuses["cred-a"].Status)
	assert.Equal(t, usecase.SyncStatusFailed, statuses["cred-b"].Status)
	assert.Equal(t, usecase.SyncStatusSkipped, statuses["cred-empty"].Status)
	assert.ErrorIs(t, statuses["cred-empty"].Err, domain.ErrCredentialInconsistent)
	assert.Equal(t, usecase.OutcomePartial, report.Outcome())
	assert.Equal(t, 2, report.AddedCount)
	assert.Equal(t, "ca", f.creds.Cursor("cred-a"))
	assert.Equal(t, "", f.creds.Cursor("cred-b"))
}

func TestSyncUseCase_LockAndTrigger(t *testing.T) {
	ctrl := gomock.NewController(t)
	lock := mocks.NewMockSyncLock(ctrl)
	trigger := mocks.NewMockCategorizationTrigger(ctrl)

	creds := []*domain.Credential{
		{ID: "cred-busy", AccessToken: "access-busy"},
		{ID: "cred-free", AccessToken: "access-free"},
	}
	accounts := []*domain.Account{
		linkedAccount("acc-busy", "cred-busy", "pbusy"),
		linkedAccount("acc-free", "cred-free", "pfree"),
	}
	f := newSyncFixture(t, creds, accounts, nil, func(cfg *usecase.SyncConfig) {
		cfg.Lock = lock
		cfg.Trigger = trigger
		cfg.LockTTL = time.Minute
	})

	lock.EXPECT().Acquire(gomock.Any(), "cred-busy", time.Minute).Return(false, nil)
	lock.EXPECT().Acquire(gomock.Any(), "cred-free", time.Minute).Return(true, nil)
	lock.EXPECT().Release(gomock.Any(), "cred-free").Return(nil)
	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-free", "").
		Return(&domain.DeltaPage{Added: providerTxns("f", "pfree", 1, "2.00"), NextCursor: "cf"}, nil)
	trigger.EXPECT().Notify().Times(1)

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.NoError(t, err)

	for _, s := range report.Credentials {
		if s.CredentialID == "cred-busy" {
			assert.Equal(t, usecase.SyncStatusSkipped, s.Status)
			assert.ErrorIs(t, s.Err, domain.ErrSyncInProgress)
		}
	}
	assert.Equal(t, usecase.OutcomeSynced, report.Outcome())
}

func TestSyncUseCase_ListCredentialsFailureIsSystemic(t *testing.T) {
	f := newSyncFixture(t, nil, nil, nil)
	f.creds.ListFunc = func(ctx context.Context) ([]*domain.Credential, error) {
		return nil, errors.New("db down")
	}

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{})
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestSyncUseCase_UpsertFailureMarksCredentialFailed(t *testing.T) {
	cred := &domain.Credential{ID: "cred-1", AccessToken: "access-1", Cursor: strPtr("old")}
	f := newSyncFixture(t,
		[]*domain.Credential{cred},
		[]*domain.Account{linkedAccount("acc-1", "cred-1", "plaid-acc-1")},
		nil,
	)
	f.txns.UpsertFunc = func(ctx context.Context, tx usecase.Tx, txn *domain.Transaction) (bool, error) {
		return false, errors.New("constraint violation")
	}
	f.provider.EXPECT().FetchDelta(gomock.Any(), "access-1", "old").
		Return(&domain.DeltaPage{Added: providerTxns("p", "plaid-acc-1", 1, "1.00"), NextCursor: "new"}, nil)

	report, err := f.uc.Sync(context.Background(), usecase.SyncInput{})
	require.NoError(t, err)
	assert.Equal(t, usecase.SyncStatusFailed, report.Credentials[0].Status)
	assert.Equal(t, "old", f.creds.Cursor("cred-1"))
}
