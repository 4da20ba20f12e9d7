package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeNetWorth(t *testing.T) {
	d := decimal.RequireFromString

	accounts := []*Account{
		{ID: "card", Kind: AccountKindCredit, Balance: d("500.00"), InstitutionID: "bank-a"},
		{ID: "checking", Kind: AccountKindDepository, Balance: d("0"), InstitutionID: "bank-a"},
		{ID: "savings", Kind: AccountKindDepository, Balance: d("1000.00"), InstitutionID: "bank-b"},
		{ID: "wallet", Kind: AccountKindCash, Balance: d("999.00"), IsManual: true},
	}
	sums := map[string]decimal.Decimal{
		"checking": d("120.00"),
		"savings":  d("-40.00"),
		"wallet":   d("35.50"),
		"card":     d("-77.00"),
	}

	tests := []struct {
		name   string
		filter AccountFilter
		want   string
	}{
		{name: "all accounts", filter: AccountFilter{}, want: "655.50"},
		{name: "credit debt subtracts", filter: AccountFilter{AccountID: "card"}, want: "-500.00"},
		{name: "zero balance falls back to history", filter: AccountFilter{AccountID: "checking"}, want: "120.00"},
		{name: "reported balance wins", filter: AccountFilter{AccountID: "savings"}, want: "1000.00"},
		{name: "manual uses history only", filter: AccountFilter{AccountID: "wallet"}, want: "35.50"},
		{name: "institution filter", filter: AccountFilter{InstitutionID: "bank-a"}, want: "-380.00"},
		{name: "unknown account", filter: AccountFilter{AccountID: "nope"}, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeNetWorth(accounts, sums, tt.filter)
			if !got.Total.Equal(d(tt.want)) {
				t.Errorf("total = %s, want %s", got.Total, tt.want)
			}
		})
	}
}

func TestComputeNetWorth_NegativeCreditBalance(t *testing.T) {
	accounts := []*Account{{ID: "card", Kind: AccountKindCredit, Balance: decimal.RequireFromString("-250.00")}}

	got := ComputeNetWorth(accounts, nil, AccountFilter{})
	if !got.Total.Equal(decimal.RequireFromString("-250.00")) {
		t.Errorf("total = %s, want -250.00", got.Total)
	}
}

func TestComputeNetWorth_Deterministic(t *testing.T) {
	accounts := []*Account{
		{ID: "b", Kind: AccountKindDepository, Balance: decimal.RequireFromString("0.10")},
		{ID: "a", Kind: AccountKindDepository, Balance: decimal.RequireFromString("0.20")},
		{ID: "c", Kind: AccountKindOther, Balance: decimal.Zero},
	}
	sums := map[string]decimal.Decimal{"c": decimal.RequireFromString("0.30")}

	first := ComputeNetWorth(accounts, sums, AccountFilter{})
	second := ComputeNetWorth([]*Account{accounts[2], accounts[0], accounts[1]}, sums, AccountFilter{})

	if first.Total.String() != second.Total.String() {
		t.Fatalf("totals differ: %s vs %s", first.Total, second.Total)
	}
	for i := range first.Contributions {
		if first.Contributions[i].AccountID != second.Contributions[i].AccountID {
			t.Fatalf("contribution order differs at %d", i)
		}
	}
	if first.Contributions[0].AccountID != "a" {
		t.Errorf("expected id ordering, got %s first", first.Contributions[0].AccountID)
	}
}
