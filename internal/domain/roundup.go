package domain

import "github.com/shopspring/decimal"

// RoundUp returns the spare change needed to lift amount to the next whole unit.
// Whole amounts round up by zero.
func RoundUp(amount decimal.Decimal) decimal.Decimal {
	return amount.Ceil().Sub(amount).Round(2)
}

// TotalRoundUp sums the round-ups of every positive expense in txns.
func TotalRoundUp(txns []*Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		if t.Kind != TransactionKindExpense || !t.Amount.IsPositive() {
			continue
		}
		total = total.Add(RoundUp(t.Amount))
	}
	return total
}

// SplitEvenly divides total across n recipients rounded to cents, and returns
// the per-recipient share and the leftover that the rounding could not place.
func SplitEvenly(total decimal.Decimal, n int) (share, leftover decimal.Decimal) {
	if n <= 0 {
		return decimal.Zero, total
	}
	count := decimal.NewFromInt(int64(n))
	share = total.DivRound(count, 2)
	leftover = total.Sub(share.Mul(count))
	return share, leftover
}
