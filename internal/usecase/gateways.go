package usecase

import (
	"context"
	"time"

	"github.com/iho/spareledger/internal/domain"
)

//go:generate mockgen -source=gateways.go -destination=mocks/mock_gateways.go -package=mocks

// ProviderGateway is the bank aggregation provider.
type ProviderGateway interface {
	FetchDelta(ctx context.Context, accessToken, cursor string) (*domain.DeltaPage, error)
	ListAccounts(ctx context.Context, accessToken string) ([]domain.ProviderAccount, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*domain.LinkedCredential, error)
	RemoveItem(ctx context.Context, accessToken string) error
}

// CategorizationGateway is the external transaction classifier.
type CategorizationGateway interface {
	Classify(ctx context.Context, batch []domain.ClassificationRequest) ([]domain.Classification, error)
}

// SyncLock serializes syncs of the same credential across processes.
type SyncLock interface {
	Acquire(ctx context.Context, credentialID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, credentialID string) error
}

// CategorizationTrigger is notified when new transactions await classification.
type CategorizationTrigger interface {
	Notify()
}
