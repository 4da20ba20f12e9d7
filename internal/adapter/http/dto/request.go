package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

// SyncRequest selects the credentials to sync. An empty list syncs all of them.
type SyncRequest struct {
	CredentialIDs []string `json:"credential_ids,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *SyncRequest) ToUseCaseInput() usecase.SyncInput {
	return usecase.SyncInput{CredentialIDs: r.CredentialIDs}
}

// CategorizeRequest overrides the configured batch settings for one run.
type CategorizeRequest struct {
	BatchSize         int    `json:"batch_size,omitempty"`
	InterBatchDelayMS *int64 `json:"inter_batch_delay_ms,omitempty"`
}

// ToUseCaseInput converts to use case input, falling back to defaults for unset fields.
func (r *CategorizeRequest) ToUseCaseInput(defaults usecase.CategorizeInput) usecase.CategorizeInput {
	input := defaults
	if r.BatchSize > 0 {
		input.BatchSize = r.BatchSize
	}
	if r.InterBatchDelayMS != nil && *r.InterBatchDelayMS >= 0 {
		input.InterBatchDelay = time.Duration(*r.InterBatchDelayMS) * time.Millisecond
	}
	return input
}

// LinkCredentialRequest carries the public token from the provider's link flow.
type LinkCredentialRequest struct {
	PublicToken     string `json:"public_token"`
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
}

// ToUseCaseInput converts to use case input.
func (r *LinkCredentialRequest) ToUseCaseInput() usecase.LinkCredentialInput {
	return usecase.LinkCredentialInput{
		PublicToken:     strings.TrimSpace(r.PublicToken),
		InstitutionID:   r.InstitutionID,
		InstitutionName: r.InstitutionName,
	}
}

// CreateAccountRequest represents a request to create a manual account.
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateManualAccountInput {
	return usecase.CreateManualAccountInput{
		Name:     r.Name,
		Kind:     domain.AccountKind(r.Kind),
		Currency: r.Currency,
	}
}

// CreateTransactionRequest represents a manual ledger entry.
type CreateTransactionRequest struct {
	Date        *time.Time      `json:"date,omitempty"`
	Category    *string         `json:"category,omitempty"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input for the given account.
func (r *CreateTransactionRequest) ToUseCaseInput(accountID string) usecase.RecordTransactionInput {
	return usecase.RecordTransactionInput{
		AccountID:   accountID,
		Kind:        domain.TransactionKind(strings.ToUpper(r.Kind)),
		Amount:      r.Amount,
		Description: r.Description,
		Date:        r.Date,
		Category:    r.Category,
	}
}
