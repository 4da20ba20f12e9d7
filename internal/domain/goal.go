package domain

import "github.com/shopspring/decimal"

// Goal is a savings target. Its current amount is only ever incremented.
type Goal struct {
	ID             string
	Name           string
	TargetAmount   decimal.Decimal
	CurrentAmount  decimal.Decimal
	RoundUpEnabled bool
}
