package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind is the provider classification of an account.
type AccountKind string

const (
	AccountKindDepository AccountKind = "depository"
	AccountKindCredit     AccountKind = "credit"
	AccountKindCash       AccountKind = "cash"
	AccountKindOther      AccountKind = "other"
)

// ParseAccountKind maps a provider type string onto a known kind.
func ParseAccountKind(s string) AccountKind {
	switch AccountKind(s) {
	case AccountKindDepository, AccountKindCredit, AccountKindCash:
		return AccountKind(s)
	default:
		return AccountKindOther
	}
}

// Account is a financial container, either provider-linked or manual.
type Account struct {
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CredentialID      *string
	ProviderAccountID *string
	ID                string
	Name              string
	Mask              string
	Kind              AccountKind
	Currency          string
	InstitutionID     string
	InstitutionName   string
	Balance           decimal.Decimal
	IsManual          bool
}

// IsCredit reports whether the account is a credit account.
func (a *Account) IsCredit() bool {
	return a.Kind == AccountKindCredit
}

// AccountFilter restricts a query to one account, one institution, or both.
// Empty fields match everything.
type AccountFilter struct {
	AccountID     string
	InstitutionID string
}

// Matches reports whether the account passes the filter.
func (f AccountFilter) Matches(a *Account) bool {
	if f.AccountID != "" && a.ID != f.AccountID {
		return false
	}
	if f.InstitutionID != "" && a.InstitutionID != f.InstitutionID {
		return false
	}
	return true
}

// ProviderAccount is an account as reported by the aggregation provider.
type ProviderAccount struct {
	Available *decimal.Decimal
	Current   *decimal.Decimal
	ID        string
	Name      string
	Mask      string
	Type      string
	Currency  string
}

// ReportedBalance picks the balance the ledger stores for a provider account:
// depository accounts prefer the available balance, everything else uses current.
func (p ProviderAccount) ReportedBalance() decimal.Decimal {
	if ParseAccountKind(p.Type) == AccountKindDepository && p.Available != nil {
		return *p.Available
	}
	if p.Current != nil {
		return *p.Current
	}
	return decimal.Zero
}
