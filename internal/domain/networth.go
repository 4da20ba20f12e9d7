package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ContributionSource explains which rule produced an account's net worth contribution.
type ContributionSource string

const (
	SourceReported     ContributionSource = "reported"
	SourceCredit       ContributionSource = "credit"
	SourceTransactions ContributionSource = "transactions"
	SourceManual       ContributionSource = "manual"
)

// Contribution is one account's share of the net worth total.
type Contribution struct {
	AccountID string
	Source    ContributionSource
	Amount    decimal.Decimal
}

// NetWorth is the reconciled total across a set of accounts.
type NetWorth struct {
	Total         decimal.Decimal
	Contributions []Contribution
}

// ComputeNetWorth reconciles accounts against the signed transaction sums keyed by
// account id. Accounts outside filter are ignored. Iteration is in id order so the
// result depends only on its inputs.
func ComputeNetWorth(accounts []*Account, signedSums map[string]decimal.Decimal, filter AccountFilter) NetWorth {
	sorted := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		if filter.Matches(a) {
			sorted = append(sorted, a)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	nw := NetWorth{Total: decimal.Zero, Contributions: make([]Contribution, 0, len(sorted))}
	for _, a := range sorted {
		c := Contribution{AccountID: a.ID}
		switch {
		case a.IsManual:
			c.Source, c.Amount = SourceManual, signedSums[a.ID]
		case a.IsCredit():
			c.Source, c.Amount = SourceCredit, a.Balance.Abs().Neg()
		case a.Balance.IsZero():
			c.Source, c.Amount = SourceTransactions, signedSums[a.ID]
		default:
			c.Source, c.Amount = SourceReported, a.Balance
		}
		nw.Total = nw.Total.Add(c.Amount)
		nw.Contributions = append(nw.Contributions, c)
	}
	return nw
}
