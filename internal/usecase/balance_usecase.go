package usecase

import (
	"context"
	"fmt"

	"github.com/iho/spareledger/internal/domain"
)

// BalanceUseCase reconciles account balances into a net worth figure.
type BalanceUseCase struct {
	accountRepo AccountRepository
	txnRepo     TransactionRepository
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(accountRepo AccountRepository, txnRepo TransactionRepository) *BalanceUseCase {
	return &BalanceUseCase{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
	}
}

// ComputeNetWorth sums the contributions of the accounts passing filter.
// It reads only ledger state, so identical state yields identical results.
func (uc *BalanceUseCase) ComputeNetWorth(ctx context.Context, filter domain.AccountFilter) (*domain.NetWorth, error) {
	accounts, err := uc.accountRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var needSums []string
	for _, a := range accounts {
		if !filter.Matches(a) {
			continue
		}
		if a.IsManual || (!a.IsCredit() && a.Balance.IsZero()) {
			needSums = append(needSums, a.ID)
		}
	}

	sums, err := uc.txnRepo.SignedSums(ctx, needSums)
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}

	nw := domain.ComputeNetWorth(accounts, sums, filter)
	return &nw, nil
}
