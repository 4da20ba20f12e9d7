package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ClassificationRequest is one item sent to the classification service.
type ClassificationRequest struct {
	ID      string
	RawText string
}

// Classification is the service's verdict for one transaction.
type Classification struct {
	ID             string
	CleanName      string
	Category       string
	IsSubscription bool
}

// Validate rejects results the ledger cannot apply.
func (c Classification) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedClassification)
	}
	if strings.TrimSpace(c.Category) == "" {
		return fmt.Errorf("%w: missing category for %s", ErrMalformedClassification, c.ID)
	}
	return nil
}

// Subscription is a recurring expense detected by the classifier.
type Subscription struct {
	Name      string
	AccountID string
	Category  string
	Amount    decimal.Decimal
}

// SubscriptionSummary groups subscriptions by name with their monthly cost.
type SubscriptionSummary struct {
	MonthlyTotal  decimal.Decimal
	Subscriptions []Subscription
}

// SummarizeSubscriptions groups subscription expenses by description. txns must be
// ordered newest first; the first amount seen for a name is the one kept.
func SummarizeSubscriptions(txns []*Transaction) SubscriptionSummary {
	seen := make(map[string]bool)
	summary := SubscriptionSummary{MonthlyTotal: decimal.Zero}

	for _, t := range txns {
		if t.Kind != TransactionKindExpense || t.IsSubscription == nil || !*t.IsSubscription {
			continue
		}
		name := strings.TrimSpace(t.Description)
		if seen[name] {
			continue
		}
		seen[name] = true

		category := ""
		if t.AICategory != nil {
			category = *t.AICategory
		}
		summary.Subscriptions = append(summary.Subscriptions, Subscription{
			Name:      name,
			AccountID: t.AccountID,
			Category:  category,
			Amount:    t.Amount,
		})
		summary.MonthlyTotal = summary.MonthlyTotal.Add(t.Amount)
	}

	sort.SliceStable(summary.Subscriptions, func(i, j int) bool {
		return summary.Subscriptions[i].Amount.GreaterThan(summary.Subscriptions[j].Amount)
	})
	return summary
}
