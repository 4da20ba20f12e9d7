package plaid

import (
	"time"

	plaidsdk "github.com/plaid/plaid-go/v29/plaid"
	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
)

const dateLayout = "2006-01-02"

// amountToDecimal converts an SDK amount to cents.
func amountToDecimal(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func transactionToDomain(t plaidsdk.Transaction) (domain.ProviderTransaction, error) {
	date, err := time.Parse(dateLayout, t.GetDate())
	if err != nil {
		return domain.ProviderTransaction{}, err
	}

	pt := domain.ProviderTransaction{
		Date:         date,
		ID:           t.GetTransactionId(),
		AccountID:    t.GetAccountId(),
		Name:         t.GetName(),
		MerchantName: t.GetMerchantName(),
		Categories:   t.GetCategory(),
		Amount:       amountToDecimal(t.GetAmount()),
		Pending:      t.GetPending(),
	}
	if pfc, ok := t.GetPersonalFinanceCategoryOk(); ok && pfc != nil {
		pt.PersonalFinanceCategory = pfc.GetPrimary()
	}

	return pt, nil
}

func accountToDomain(a plaidsdk.AccountBase) domain.ProviderAccount {
	balances := a.GetBalances()
	account := domain.ProviderAccount{
		ID:       a.GetAccountId(),
		Name:     a.GetName(),
		Mask:     a.GetMask(),
		Type:     string(a.GetType()),
		Currency: balances.GetIsoCurrencyCode(),
	}
	if v, ok := balances.GetAvailableOk(); ok && v != nil {
		available := amountToDecimal(*v)
		account.Available = &available
	}
	if v, ok := balances.GetCurrentOk(); ok && v != nil {
		current := amountToDecimal(*v)
		account.Current = &current
	}

	return account
}
