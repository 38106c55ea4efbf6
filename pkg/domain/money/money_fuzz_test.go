package money_test

import (
	"testing"

	"github.com/ineza/schoolpay/pkg/currency"
	"github.com/ineza/schoolpay/pkg/domain/money"
)

// FuzzNewMoney tests money.New invariants with random input.
func FuzzNewMoney(f *testing.F) {
	f.Add(300.0, "RWF") // Seed input
	f.Add(-50.0, "USD")
	f.Add(0.0, "")
	f.Add(1e12, "ZZZ")
	f.Fuzz(func(t *testing.T, amount float64, cc string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("money.New panicked: %v (amount=%v, currency=%q)", r, amount, cc)
			}
		}()
		m, err := money.New(amount, currency.Code(cc))
		if err == nil {
			if !currency.IsValidCurrencyFormat(string(m.Currency())) {
				t.Errorf("Money currency is invalid: %q", m.Currency())
			}
		}
	})
}

// FuzzMoneyAdd checks that Add never silently mixes currencies or overflows.
func FuzzMoneyAdd(f *testing.F) {
	f.Add(int64(1000), int64(300))
	f.Add(int64(1<<62), int64(1<<62))
	f.Add(int64(-1000), int64(-1000))
	f.Fuzz(func(t *testing.T, a, b int64) {
		ma, err := money.NewFromSmallestUnit(a, "RWF")
		if err != nil {
			t.Skip()
		}
		mb, err := money.NewFromSmallestUnit(b, "RWF")
		if err != nil {
			t.Skip()
		}
		sum, err := ma.Add(mb)
		if err != nil {
			return
		}
		if sum.Amount() != a+b {
			t.Errorf("Add(%d, %d) = %d", a, b, sum.Amount())
		}
	})
}
