package money

import (
	"fmt"
	"math"

	"github.com/ineza/schoolpay/pkg/currency"
	"github.com/ineza/schoolpay/pkg/domain/common"
)

// Amount represents a monetary amount as an integer in the smallest currency
// unit (whole francs for RWF, cents for USD).
type Amount = int64

// Money represents a monetary value in a specific currency.
// Invariants:
//   - Amount is always stored in the smallest currency unit.
//   - Currency code must be valid ISO 4217 (3 uppercase letters).
//   - All arithmetic operations require matching currencies.
type Money struct {
	amount   Amount
	currency currency.Code
}

// New creates a Money value from a display amount (e.g. 12.50 USD, 300 RWF).
// The amount is converted to the smallest currency unit; amounts with more
// decimal places than the currency allows are rejected.
func New(amount float64, code currency.Code) (Money, error) {
	if code == "" {
		code = currency.DefaultCurrency
	}
	if !currency.IsValidCurrencyFormat(string(code)) {
		return Money{}, common.ErrInvalidCurrencyCode
	}
	meta, ok := code.Get()
	if !ok {
		return Money{}, common.ErrUnsupportedCurrency
	}
	factor := math.Pow10(meta.Decimals)
	scaled := amount * factor
	if scaled > float64(math.MaxInt64) || scaled < float64(math.MinInt64) {
		return Money{}, fmt.Errorf("amount out of range for %s", code)
	}
	if scaled != math.Trunc(scaled) {
		return Money{}, fmt.Errorf("amount has more than %d decimal places", meta.Decimals)
	}
	return Money{amount: Amount(scaled), currency: code}, nil
}

// NewFromSmallestUnit creates a Money value directly from the smallest
// currency unit. Used for repository hydration.
func NewFromSmallestUnit(amount int64, code currency.Code) (Money, error) {
	if code == "" {
		code = currency.DefaultCurrency
	}
	if !currency.IsValidCurrencyFormat(string(code)) {
		return Money{}, common.ErrInvalidCurrencyCode
	}
	return Money{amount: amount, currency: code}, nil
}

// FromData creates a Money value without validation. Only for hydrating
// records that were validated when written.
func FromData(amount int64, code string) Money {
	return Money{amount: amount, currency: currency.Code(code)}
}

// Zero returns a zero-valued Money in the given currency.
func Zero(code currency.Code) Money {
	if code == "" {
		code = currency.DefaultCurrency
	}
	return Money{amount: 0, currency: code}
}

// Amount returns the amount in the smallest currency unit.
func (m Money) Amount() Amount {
	return m.amount
}

// AmountFloat returns the amount in display units.
func (m Money) AmountFloat() float64 {
	meta, ok := m.currency.Get()
	if !ok {
		return float64(m.amount)
	}
	return float64(m.amount) / math.Pow10(meta.Decimals)
}

// Currency returns the currency code.
func (m Money) Currency() currency.Code {
	return m.currency
}

// Add returns the sum of two Money values.
// Invariants enforced:
//   - Currencies must match.
//   - The result must not overflow int64.
func (m Money) Add(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, common.ErrCurrencyMismatch
	}
	if (other.amount > 0 && m.amount > math.MaxInt64-other.amount) ||
		(other.amount < 0 && m.amount < math.MinInt64-other.amount) {
		return Money{}, fmt.Errorf("addition would overflow")
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns the difference of two Money values.
// Invariants enforced:
//   - Currencies must match.
func (m Money) Subtract(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, common.ErrCurrencyMismatch
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// Negate returns the Money value with the sign flipped.
func (m Money) Negate() Money {
	return Money{amount: -m.amount, currency: m.currency}
}

// Equals reports whether two Money values have the same currency and amount.
func (m Money) Equals(other Money) bool {
	return m.IsSameCurrency(other) && m.amount == other.amount
}

// GreaterThan reports whether m exceeds other.
// Returns an error if currencies do not match.
func (m Money) GreaterThan(other Money) (bool, error) {
	if !m.IsSameCurrency(other) {
		return false, common.ErrCurrencyMismatch
	}
	return m.amount > other.amount, nil
}

// LessThan reports whether m is below other.
// Returns an error if currencies do not match.
func (m Money) LessThan(other Money) (bool, error) {
	if !m.IsSameCurrency(other) {
		return false, common.ErrCurrencyMismatch
	}
	return m.amount < other.amount, nil
}

// IsSameCurrency reports whether both values share a currency.
func (m Money) IsSameCurrency(other Money) bool {
	return m.currency == other.currency
}

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.amount > 0
}

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool {
	return m.amount < 0
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.amount == 0
}

// String returns a display representation, e.g. "300 FRw" or "12.50 $".
func (m Money) String() string {
	meta, ok := m.currency.Get()
	if !ok {
		return fmt.Sprintf("%d %s", m.amount, m.currency)
	}
	if meta.Decimals == 0 {
		return fmt.Sprintf("%d %s", m.amount, meta.Symbol)
	}
	return fmt.Sprintf("%.*f %s", meta.Decimals, m.AmountFloat(), meta.Symbol)
}
