package dto

import (
	"time"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID                string    `json:"id"`
	CredentialID      *string   `json:"credential_id,omitempty"`
	ProviderAccountID *string   `json:"provider_account_id,omitempty"`
	Name              string    `json:"name"`
	Mask              string    `json:"mask,omitempty"`
	Kind              string    `json:"kind"`
	Currency          string    `json:"currency"`
	InstitutionID     string    `json:"institution_id,omitempty"`
	InstitutionName   string    `json:"institution_name,omitempty"`
	Balance           string    `json:"balance"`
	IsManual          bool      `json:"is_manual"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:                a.ID,
		CredentialID:      a.CredentialID,
		ProviderAccountID: a.ProviderAccountID,
		Name:              a.Name,
		Mask:              a.Mask,
		Kind:              string(a.Kind),
		Currency:          a.Currency,
		InstitutionID:     a.InstitutionID,
		InstitutionName:   a.InstitutionName,
		Balance:           a.Balance.StringFixed(2),
		IsManual:          a.IsManual,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// AccountsFromDomain converts a slice of domain accounts.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// CredentialResponse represents a linked credential. The access token is never exposed.
type CredentialResponse struct {
	ID              string    `json:"id"`
	ItemID          string    `json:"item_id"`
	InstitutionID   string    `json:"institution_id,omitempty"`
	InstitutionName string    `json:"institution_name,omitempty"`
	Synced          bool      `json:"synced"`
	CreatedAt       time.Time `json:"created_at"`
}

// CredentialFromDomain converts domain credential to response.
func CredentialFromDomain(c *domain.Credential) *CredentialResponse {
	return &CredentialResponse{
		ID:              c.ID,
		ItemID:          c.ItemID,
		InstitutionID:   c.InstitutionID,
		InstitutionName: c.InstitutionName,
		Synced:          c.Cursor != nil,
		CreatedAt:       c.CreatedAt,
	}
}

// LinkCredentialResponse is returned after a successful public token exchange.
type LinkCredentialResponse struct {
	Credential *CredentialResponse `json:"credential"`
	Accounts   []*AccountResponse  `json:"accounts"`
}

// TransactionResponse represents a ledger transaction.
type TransactionResponse struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	Date           time.Time `json:"date"`
	Kind           string    `json:"kind"`
	Description    string    `json:"description"`
	Amount         string    `json:"amount"`
	Category       *string   `json:"category,omitempty"`
	AICategory     *string   `json:"ai_category,omitempty"`
	IsSubscription *bool     `json:"is_subscription,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:             t.ID,
		AccountID:      t.AccountID,
		Date:           t.Date,
		Kind:           string(t.Kind),
		Description:    t.Description,
		Amount:         t.Amount.StringFixed(2),
		Category:       t.Category,
		AICategory:     t.AICategory,
		IsSubscription: t.IsSubscription,
		CreatedAt:      t.CreatedAt,
	}
}

// CredentialSyncResponse reports the result of syncing one credential.
type CredentialSyncResponse struct {
	CredentialID string `json:"credential_id"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	Added        int    `json:"added"`
	Updated      int    `json:"updated"`
	Skipped      int    `json:"skipped"`
	Modified     int    `json:"modified"`
	Removed      int    `json:"removed"`
	Pages        int    `json:"pages"`
}

// RoundUpResponse reports a round-up distribution.
type RoundUpResponse struct {
	Total        string `json:"total"`
	Share        string `json:"share"`
	Distributed  string `json:"distributed"`
	Leftover     string `json:"leftover"`
	Goals        int    `json:"goals"`
	Transactions int    `json:"transactions"`
}

// SyncResponse summarizes a sync pass.
type SyncResponse struct {
	Outcome      string                   `json:"outcome"`
	AddedCount   int                      `json:"added_count"`
	UpdatedCount int                      `json:"updated_count"`
	Credentials  []CredentialSyncResponse `json:"credentials"`
	RoundUp      *RoundUpResponse         `json:"round_up,omitempty"`
}

// SyncFromReport converts a sync report to response.
func SyncFromReport(r *usecase.SyncReport) *SyncResponse {
	resp := &SyncResponse{
		Outcome:      r.Outcome(),
		AddedCount:   r.AddedCount,
		UpdatedCount: r.UpdatedCount,
		Credentials:  make([]CredentialSyncResponse, len(r.Credentials)),
	}
	for i, c := range r.Credentials {
		item := CredentialSyncResponse{
			CredentialID: c.CredentialID,
			Status:       c.Status,
			Added:        c.Added,
			Updated:      c.Updated,
			Skipped:      c.Skipped,
			Modified:     c.Modified,
			Removed:      c.Removed,
			Pages:        c.Pages,
		}
		if c.Err != nil {
			item.Error = c.Err.Error()
		}
		resp.Credentials[i] = item
	}
	if r.RoundUp != nil {
		resp.RoundUp = &RoundUpResponse{
			Total:        r.RoundUp.Total.StringFixed(2),
			Share:        r.RoundUp.Share.StringFixed(2),
			Distributed:  r.RoundUp.Distributed.StringFixed(2),
			Leftover:     r.RoundUp.Leftover.StringFixed(2),
			Goals:        r.RoundUp.Goals,
			Transactions: r.RoundUp.Transactions,
		}
	}
	return resp
}

// CategorizationResponse summarizes a categorization pass.
type CategorizationResponse struct {
	Pending   int `json:"pending"`
	Batches   int `json:"batches"`
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// CategorizationFromReport converts a categorization report to response.
func CategorizationFromReport(r *usecase.CategorizationReport) *CategorizationResponse {
	if r == nil {
		return &CategorizationResponse{}
	}
	return &CategorizationResponse{
		Pending:   r.Pending,
		Batches:   r.Batches,
		Processed: r.Processed,
		Errors:    r.Errors,
	}
}

// ContributionResponse is one account's share of net worth.
type ContributionResponse struct {
	AccountID string `json:"account_id"`
	Source    string `json:"source"`
	Amount    string `json:"amount"`
}

// NetWorthResponse is the reconciled total across the selected accounts.
type NetWorthResponse struct {
	Total         string                 `json:"total"`
	Contributions []ContributionResponse `json:"contributions"`
}

// NetWorthFromDomain converts domain net worth to response.
func NetWorthFromDomain(nw *domain.NetWorth) *NetWorthResponse {
	resp := &NetWorthResponse{
		Total:         nw.Total.StringFixed(2),
		Contributions: make([]ContributionResponse, len(nw.Contributions)),
	}
	for i, c := range nw.Contributions {
		resp.Contributions[i] = ContributionResponse{
			AccountID: c.AccountID,
			Source:    string(c.Source),
			Amount:    c.Amount.StringFixed(2),
		}
	}
	return resp
}

// SubscriptionResponse is one detected recurring expense.
type SubscriptionResponse struct {
	Name      string `json:"name"`
	AccountID string `json:"account_id"`
	Category  string `json:"category"`
	Amount    string `json:"amount"`
}

// SubscriptionSummaryResponse lists subscriptions and their monthly cost.
type SubscriptionSummaryResponse struct {
	MonthlyTotal  string                 `json:"monthly_total"`
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
}

// SubscriptionsFromDomain converts a subscription summary to response.
func SubscriptionsFromDomain(s *domain.SubscriptionSummary) *SubscriptionSummaryResponse {
	resp := &SubscriptionSummaryResponse{
		MonthlyTotal:  s.MonthlyTotal.StringFixed(2),
		Subscriptions: make([]SubscriptionResponse, len(s.Subscriptions)),
	}
	for i, sub := range s.Subscriptions {
		resp.Subscriptions[i] = SubscriptionResponse{
			Name:      sub.Name,
			AccountID: sub.AccountID,
			Category:  sub.Category,
			Amount:    sub.Amount.StringFixed(2),
		}
	}
	return resp
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
