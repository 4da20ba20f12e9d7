package usecase

import (
	"context"

	"github.com/iho/spareledger/internal/domain"
)

// SubscriptionUseCase reports recurring expenses flagged by the classifier.
type SubscriptionUseCase struct {
	txnRepo TransactionRepository
}

// NewSubscriptionUseCase creates a new SubscriptionUseCase.
func NewSubscriptionUseCase(txnRepo TransactionRepository) *SubscriptionUseCase {
	return &SubscriptionUseCase{txnRepo: txnRepo}
}

// Summarize groups subscriptions by name, most expensive first.
func (uc *SubscriptionUseCase) Summarize(ctx context.Context, filter domain.AccountFilter) (*domain.SubscriptionSummary, error) {
	txns, err := uc.txnRepo.ListSubscriptions(ctx, filter)
	if err != nil {
		return nil, err
	}
	summary := domain.SummarizeSubscriptions(txns)
	return &summary, nil
}
