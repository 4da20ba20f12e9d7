package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

func TestAccountFromDomain(t *testing.T) {
	now := time.Now()
	credID := "cred-1"
	account := &domain.Account{
		ID:           "acc-1",
		CredentialID: &credID,
		Name:         "Checking",
		Kind:         domain.AccountKindDepository,
		Currency:     "USD",
		Balance:      decimal.RequireFromString("123.4"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	resp := AccountFromDomain(account)
	if resp.ID != account.ID || resp.Balance != "123.40" || resp.Kind != "depository" {
		t.Fatalf("unexpected account response: %+v", resp)
	}

	list := AccountsFromDomain([]*domain.Account{account})
	if len(list) != 1 || list[0].ID != account.ID {
		t.Fatalf("AccountsFromDomain returned %+v", list)
	}
}

func TestCredentialFromDomainHidesToken(t *testing.T) {
	cursor := "c-1"
	resp := CredentialFromDomain(&domain.Credential{ID: "cred-1", AccessToken: "secret", ItemID: "item-1", Cursor: &cursor})
	if resp.ID != "cred-1" || !resp.Synced {
		t.Fatalf("unexpected credential response: %+v", resp)
	}
}

func TestSyncFromReport(t *testing.T) {
	report := &usecase.SyncReport{
		Credentials: []usecase.CredentialSyncStatus{
			{CredentialID: "a", Status: usecase.SyncStatusSuccess, Added: 3, Pages: 1},
			{CredentialID: "b", Status: usecase.SyncStatusFailed, Err: errors.New("provider down")},
		},
		AddedCount: 3,
		RoundUp: &usecase.RoundUpResult{
			Total:       decimal.RequireFromString("1"),
			Share:       decimal.RequireFromString("0.33"),
			Distributed: decimal.RequireFromString("0.99"),
			Leftover:    decimal.RequireFromString("0.01"),
			Goals:       3,
		},
	}

	resp := SyncFromReport(report)
	if resp.Outcome != usecase.OutcomePartial || resp.AddedCount != 3 {
		t.Fatalf("unexpected sync response: %+v", resp)
	}
	if resp.Credentials[1].Error != "provider down" || resp.Credentials[0].Error != "" {
		t.Fatalf("unexpected credential errors: %+v", resp.Credentials)
	}
	if resp.RoundUp == nil || resp.RoundUp.Total != "1.00" || resp.RoundUp.Leftover != "0.01" {
		t.Fatalf("unexpected round-up: %+v", resp.RoundUp)
	}
}

func TestNetWorthFromDomain(t *testing.T) {
	resp := NetWorthFromDomain(&domain.NetWorth{
		Total: decimal.RequireFromString("-500"),
		Contributions: []domain.Contribution{
			{AccountID: "card", Source: domain.SourceCredit, Amount: decimal.RequireFromString("-500")},
		},
	})

	if resp.Total != "-500.00" || len(resp.Contributions) != 1 || resp.Contributions[0].Source != "credit" {
		t.Fatalf("unexpected net worth response: %+v", resp)
	}
}

func TestSubscriptionsFromDomain(t *testing.T) {
	resp := SubscriptionsFromDomain(&domain.SubscriptionSummary{
		MonthlyTotal: decimal.RequireFromString("15.99"),
		Subscriptions: []domain.Subscription{
			{Name: "Netflix", AccountID: "acc-1", Category: "Entertainment", Amount: decimal.RequireFromString("15.99")},
		},
	})

	if resp.MonthlyTotal != "15.99" || resp.Subscriptions[0].Name != "Netflix" {
		t.Fatalf("unexpected subscriptions response: %+v", resp)
	}
}

func TestCategorizationFromReport(t *testing.T) {
	if got := CategorizationFromReport(nil); *got != (CategorizationResponse{}) {
		t.Fatalf("nil report should map to zero response, got %+v", got)
	}
	got := CategorizationFromReport(&usecase.CategorizationReport{Pending: 5, Batches: 1, Processed: 5})
	if got.Processed != 5 || got.Batches != 1 {
		t.Fatalf("unexpected categorization response: %+v", got)
	}
}
