package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidAccountName = errors.New("invalid account name")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrAmountTooLarge     = errors.New("amount exceeds maximum allowed")
	ErrInvalidDescription = errors.New("invalid description")
	ErrInvalidPublicToken = errors.New("invalid public token")
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxDescriptionLength = 500
	MaxEntryAmount       = "1000000000" // 1 billion
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "CLP": true, "COP": true, "HKD": true,
}

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinAccountNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	}

	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateEntryAmount validates a manually entered amount. Zero is allowed.
func ValidateEntryAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxEntryAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxEntryAmount)
	}

	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most two decimal places", ErrInvalidAmount)
	}

	return nil
}

// ValidateDescription validates a transaction description
func ValidateDescription(description string) error {
	description = strings.TrimSpace(description)

	if description == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidDescription)
	}

	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}

	return nil
}

// ValidatePublicToken checks that a link token was supplied.
func ValidatePublicToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidPublicToken
	}
	return nil
}
