package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind carries the sign of a transaction; amounts are always non-negative.
type TransactionKind string

const (
	TransactionKindIncome  TransactionKind = "INCOME"
	TransactionKindExpense TransactionKind = "EXPENSE"
)

const (
	// DefaultDescription is used when the provider sends neither a name nor a merchant.
	DefaultDescription = "Transaction"
	// DefaultCategory is used when the provider sends no category at all.
	DefaultCategory = "Other"
)

// Transaction is a single ledger movement on an account.
type Transaction struct {
	Date           time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Category       *string
	AICategory     *string
	IsSubscription *bool
	ID             string
	AccountID      string
	Kind           TransactionKind
	Description    string
	Amount         decimal.Decimal
	// RoundUpPending marks a synced expense whose round-up has not been credited yet.
	RoundUpPending bool
}

// Signed returns the amount with the kind applied: positive for income, negative for expense.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Kind == TransactionKindExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// EarnsRoundUp reports whether the transaction contributes spare change to goals.
func (t *Transaction) EarnsRoundUp() bool {
	return t.Kind == TransactionKindExpense && t.Amount.IsPositive() && RoundUp(t.Amount).IsPositive()
}

// IsCategorized reports whether the classification service has labelled the transaction.
func (t *Transaction) IsCategorized() bool {
	return t.AICategory != nil
}

// Validate checks the amount and kind invariants.
func (t *Transaction) Validate() error {
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if t.Kind != TransactionKindIncome && t.Kind != TransactionKindExpense {
		return ErrInvalidTransactionKind
	}
	return nil
}

// SignedSum adds up the signed amounts of the given transactions.
func SignedSum(txns []*Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txns {
		sum = sum.Add(t.Signed())
	}
	return sum
}

// ProviderTransaction is a transaction as delivered by the aggregation provider.
// Amount uses the provider sign convention: positive is money leaving the account.
type ProviderTransaction struct {
	Date                    time.Time
	ID                      string
	AccountID               string
	Name                    string
	MerchantName            string
	PersonalFinanceCategory string
	Categories              []string
	Amount                  decimal.Decimal
	Pending                 bool
}

// ToTransaction converts the provider record into a ledger transaction owned by accountID.
func (p ProviderTransaction) ToTransaction(accountID string) *Transaction {
	kind := TransactionKindIncome
	if p.Amount.IsPositive() {
		kind = TransactionKindExpense
	}

	description := strings.TrimSpace(p.Name)
	if description == "" {
		description = strings.TrimSpace(p.MerchantName)
	}
	if description == "" {
		description = DefaultDescription
	}

	category := DefaultCategory
	switch {
	case len(p.Categories) > 0 && p.Categories[0] != "":
		category = p.Categories[0]
	case p.PersonalFinanceCategory != "":
		category = p.PersonalFinanceCategory
	}

	return &Transaction{
		ID:          p.ID,
		AccountID:   accountID,
		Kind:        kind,
		Amount:      p.Amount.Abs().Round(2),
		Date:        p.Date,
		Description: description,
		Category:    &category,
	}
}

// DeltaPage is one page of the provider's incremental sync feed.
type DeltaPage struct {
	NextCursor string
	Added      []ProviderTransaction
	Modified   []ProviderTransaction
	Removed    []string
	HasMore    bool
}
