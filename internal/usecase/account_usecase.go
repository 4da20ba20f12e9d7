package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
)

// AccountUseCase handles linking, refreshing and removing accounts, plus manual entries.
type AccountUseCase struct {
	txManager      TransactionManager
	credentialRepo CredentialRepository
	accountRepo    AccountRepository
	txnRepo        TransactionRepository
	provider       ProviderGateway
	idGen          IDGenerator
	logger         zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	credentialRepo CredentialRepository,
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	provider ProviderGateway,
	idGen IDGenerator,
	logger zerolog.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:      txManager,
		credentialRepo: credentialRepo,
		accountRepo:    accountRepo,
		txnRepo:        txnRepo,
		provider:       provider,
		idGen:          idGen,
		logger:         logger,
	}
}

// LinkCredentialInput represents input for linking an institution.
type LinkCredentialInput struct {
	PublicToken     string
	InstitutionID   string
	InstitutionName string
}

// LinkCredential exchanges a public token and stores the credential with its accounts.
func (uc *AccountUseCase) LinkCredential(ctx context.Context, input LinkCredentialInput) (*domain.Credential, []*domain.Account, error) {
	if err := domain.ValidatePublicToken(input.PublicToken); err != nil {
		return nil, nil, err
	}

	linked, err := uc.provider.ExchangePublicToken(ctx, input.PublicToken)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange public token: %w", err)
	}

	providerAccounts, err := uc.provider.ListAccounts(ctx, linked.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("list provider accounts: %w", err)
	}

	now := time.Now().UTC()
	cred := &domain.Credential{
		ID:              uc.idGen.Generate(),
		AccessToken:     linked.AccessToken,
		ItemID:          linked.ItemID,
		InstitutionID:   input.InstitutionID,
		InstitutionName: input.InstitutionName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.credentialRepo.Create(ctx, tx, cred); err != nil {
		return nil, nil, err
	}

	accounts := make([]*domain.Account, 0, len(providerAccounts))
	for _, pa := range providerAccounts {
		providerID := pa.ID
		credID := cred.ID
		account := &domain.Account{
			ID:                uc.idGen.Generate(),
			CredentialID:      &credID,
			ProviderAccountID: &providerID,
			Name:              pa.Name,
			Mask:              pa.Mask,
			Kind:              domain.ParseAccountKind(pa.Type),
			Currency:          currencyOrDefault(pa.Currency),
			InstitutionID:     input.InstitutionID,
			InstitutionName:   input.InstitutionName,
			Balance:           pa.ReportedBalance(),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := uc.accountRepo.UpsertByProviderID(ctx, tx, account); err != nil {
			return nil, nil, err
		}
		accounts = append(accounts, account)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	uc.logger.Info().
		Str("credential_id", cred.ID).
		Str("institution_id", cred.InstitutionID).
		Int("accounts", len(accounts)).
		Msg("credential linked")

	return cred, accounts, nil
}

// RefreshBalances pulls the latest reported balances for a credential's accounts.
func (uc *AccountUseCase) RefreshBalances(ctx context.Context, credentialID string) ([]*domain.Account, error) {
	cred, err := uc.credentialRepo.GetByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	providerAccounts, err := uc.provider.ListAccounts(ctx, cred.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("list provider accounts: %w", err)
	}
	reported := make(map[string]domain.ProviderAccount, len(providerAccounts))
	for _, pa := range providerAccounts {
		reported[pa.ID] = pa
	}

	accounts, err := uc.accountRepo.ListByCredential(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, a := range accounts {
		if a.ProviderAccountID == nil {
			continue
		}
		pa, ok := reported[*a.ProviderAccountID]
		if !ok {
			continue
		}
		balance := pa.ReportedBalance()
		if err := uc.accountRepo.UpdateBalance(ctx, tx, a.ID, balance, now); err != nil {
			return nil, err
		}
		a.Balance = balance
		a.UpdatedAt = now
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return accounts, nil
}

// DisconnectCredential removes a credential and everything linked through it.
// Revoking the token at the provider is best effort.
func (uc *AccountUseCase) DisconnectCredential(ctx context.Context, credentialID string) error {
	cred, err := uc.credentialRepo.GetByID(ctx, credentialID)
	if err != nil {
		return err
	}

	if err := uc.provider.RemoveItem(ctx, cred.AccessToken); err != nil {
		uc.logger.Warn().Err(err).Str("credential_id", credentialID).Msg("failed to revoke provider item")
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.credentialRepo.Delete(ctx, tx, credentialID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DisconnectAccount removes one account. Removing the last account of a
// credential disconnects the credential too.
func (uc *AccountUseCase) DisconnectAccount(ctx context.Context, accountID string) error {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if account.CredentialID != nil {
		siblings, err := uc.accountRepo.ListByCredential(ctx, *account.CredentialID)
		if err != nil {
			return err
		}
		if len(siblings) <= 1 {
			return uc.DisconnectCredential(ctx, *account.CredentialID)
		}
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Delete(ctx, tx, accountID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateManualAccountInput represents input for creating a manual account.
type CreateManualAccountInput struct {
	Name     string
	Kind     domain.AccountKind
	Currency string
}

// CreateManualAccount creates an account whose balance comes only from its entries.
func (uc *AccountUseCase) CreateManualAccount(ctx context.Context, input CreateManualAccountInput) (*domain.Account, error) {
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}
	currency := currencyOrDefault(input.Currency)
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}
	kind := input.Kind
	if kind == "" {
		kind = domain.AccountKindCash
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Name:      strings.TrimSpace(input.Name),
		Kind:      domain.ParseAccountKind(string(kind)),
		Currency:  currency,
		Balance:   decimal.Zero,
		IsManual:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// RecordTransactionInput represents a manually entered transaction.
type RecordTransactionInput struct {
	Date        *time.Time
	Category    *string
	AccountID   string
	Kind        domain.TransactionKind
	Description string
	Amount      decimal.Decimal
}

// RecordTransaction stores a locally created transaction.
func (uc *AccountUseCase) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*domain.Transaction, error) {
	if err := domain.ValidateEntryAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}

	if _, err := uc.accountRepo.GetByID(ctx, input.AccountID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	date := now
	if input.Date != nil {
		date = input.Date.UTC()
	}

	txn := &domain.Transaction{
		ID:          uc.idGen.Generate(),
		AccountID:   input.AccountID,
		Kind:        input.Kind,
		Amount:      input.Amount,
		Date:        date,
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := uc.txnRepo.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func currencyOrDefault(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "USD"
	}
	return c
}
