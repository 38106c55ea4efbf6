// Package account holds the prepaid wallet aggregate and its transaction
// log. Every balance-affecting event is recorded as an immutable Transaction
// with before/after balance snapshots.
package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/ineza/schoolpay/pkg/currency"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/google/uuid"
)

var (
	// ErrAmountMustBePositive is returned when a transaction amount is not
	// positive.
	ErrAmountMustBePositive = errors.New("transaction amount must be positive")

	// ErrAccountNotFound is returned when an account cannot be found.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDepositExceedsMaxBalance is returned when a top-up would overflow
	// the balance.
	ErrDepositExceedsMaxBalance = errors.New("deposit would exceed maximum balance")
)

// InsufficientBalanceError is returned when a purchase exceeds the account
// balance. It carries the shortfall so terminals can display it.
type InsufficientBalanceError struct {
	Balance   money.Money
	Requested money.Money
	Shortfall money.Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s (short %s)",
		e.Balance, e.Requested, e.Shortfall)
}

// NewInsufficientBalanceError builds the error from the current balance and
// the requested amount.
func NewInsufficientBalanceError(balance, requested money.Money) *InsufficientBalanceError {
	shortfall, _ := requested.Subtract(balance)
	return &InsufficientBalanceError{
		Balance:   balance,
		Requested: requested,
		Shortfall: shortfall,
	}
}

// Account is a student's prepaid wallet.
//
// Invariants:
//   - An account belongs to exactly one student (1:1, created lazily on the
//     first top-up or purchase).
//   - The balance can never be negative.
//   - Every balance mutation is paired with an update to the cumulative
//     deposit/withdrawal totals.
type Account struct {
	ID               uuid.UUID
	StudentID        uuid.UUID
	Balance          money.Money
	TotalDeposits    money.Money
	TotalWithdrawals money.Money
	LastTopUpAt      time.Time
	LastTopUpAmount  money.Money
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	id               uuid.UUID
	studentID        uuid.UUID
	currency         currency.Code
	balance          int64
	totalDeposits    int64
	totalWithdrawals int64
	lastTopUpAt      time.Time
	lastTopUpAmount  int64
	createdAt        time.Time
	updatedAt        time.Time
}

// New creates a new Builder with a fresh ID and the default currency.
func New() *Builder {
	return &Builder{
		id:        uuid.New(),
		currency:  currency.DefaultCurrency,
		createdAt: time.Now(),
	}
}

func (b *Builder) WithID(id uuid.UUID) *Builder            { b.id = id; return b }
func (b *Builder) WithStudentID(id uuid.UUID) *Builder     { b.studentID = id; return b }
func (b *Builder) WithCurrency(c currency.Code) *Builder   { b.currency = c; return b }
func (b *Builder) WithBalance(v int64) *Builder            { b.balance = v; return b }
func (b *Builder) WithTotalDeposits(v int64) *Builder      { b.totalDeposits = v; return b }
func (b *Builder) WithTotalWithdrawals(v int64) *Builder   { b.totalWithdrawals = v; return b }
func (b *Builder) WithLastTopUp(at time.Time, amount int64) *Builder {
	b.lastTopUpAt = at
	b.lastTopUpAmount = amount
	return b
}
func (b *Builder) WithCreatedAt(t time.Time) *Builder { b.createdAt = t; return b }
func (b *Builder) WithUpdatedAt(t time.Time) *Builder { b.updatedAt = t; return b }

// Build validates all invariants and returns the Account.
func (b *Builder) Build() (*Account, error) {
	if !currency.IsValidCurrencyFormat(string(b.currency)) {
		return nil, fmt.Errorf("invalid currency code %q", b.currency)
	}
	if !currency.IsSupported(string(b.currency)) {
		return nil, fmt.Errorf("unsupported currency %q", b.currency)
	}
	if b.studentID == uuid.Nil {
		return nil, errors.New("studentID is required")
	}
	if b.balance < 0 {
		return nil, errors.New("balance cannot be negative")
	}
	bal, err := money.NewFromSmallestUnit(b.balance, b.currency)
	if err != nil {
		return nil, err
	}
	deposits, err := money.NewFromSmallestUnit(b.totalDeposits, b.currency)
	if err != nil {
		return nil, err
	}
	withdrawals, err := money.NewFromSmallestUnit(b.totalWithdrawals, b.currency)
	if err != nil {
		return nil, err
	}
	lastTopUp, err := money.NewFromSmallestUnit(b.lastTopUpAmount, b.currency)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:               b.id,
		StudentID:        b.studentID,
		Balance:          bal,
		TotalDeposits:    deposits,
		TotalWithdrawals: withdrawals,
		LastTopUpAt:      b.lastTopUpAt,
		LastTopUpAmount:  lastTopUp,
		CreatedAt:        b.createdAt,
		UpdatedAt:        b.updatedAt,
	}, nil
}

// Currency returns the account currency.
func (a *Account) Currency() currency.Code {
	return a.Balance.Currency()
}

func (a *Account) validateAmount(amount money.Money) error {
	if !amount.IsPositive() {
		return ErrAmountMustBePositive
	}
	if !a.Balance.IsSameCurrency(amount) {
		return fmt.Errorf("amount currency %s does not match account currency %s",
			amount.Currency(), a.Currency())
	}
	return nil
}

// ValidateDeposit checks the invariants for crediting the account.
func (a *Account) ValidateDeposit(amount money.Money) error {
	if err := a.validateAmount(amount); err != nil {
		return err
	}
	if _, err := a.Balance.Add(amount); err != nil {
		return ErrDepositExceedsMaxBalance
	}
	return nil
}

// ValidateWithdraw checks the invariants for debiting the account.
// Invariants enforced:
//   - Amount must be positive and in the account currency.
//   - The balance must cover the amount; the error carries the shortfall.
func (a *Account) ValidateWithdraw(amount money.Money) error {
	if err := a.validateAmount(amount); err != nil {
		return err
	}
	enough, err := a.Balance.GreaterThan(amount)
	if err != nil {
		return err
	}
	if !enough && !a.Balance.Equals(amount) {
		return NewInsufficientBalanceError(a.Balance, amount)
	}
	return nil
}

// Deposit credits the account and updates the cumulative deposit total.
// The balance snapshot before the mutation is returned for the transaction
// record.
func (a *Account) Deposit(amount money.Money, at time.Time) (before money.Money, err error) {
	if err = a.ValidateDeposit(amount); err != nil {
		return
	}
	before = a.Balance
	if a.Balance, err = a.Balance.Add(amount); err != nil {
		return
	}
	if a.TotalDeposits, err = a.TotalDeposits.Add(amount); err != nil {
		return
	}
	a.LastTopUpAt = at
	a.LastTopUpAmount = amount
	a.UpdatedAt = at
	return
}

// Withdraw debits the account and updates the cumulative withdrawal total.
func (a *Account) Withdraw(amount money.Money, at time.Time) (before money.Money, err error) {
	if err = a.ValidateWithdraw(amount); err != nil {
		return
	}
	before = a.Balance
	if a.Balance, err = a.Balance.Subtract(amount); err != nil {
		return
	}
	if a.TotalWithdrawals, err = a.TotalWithdrawals.Add(amount); err != nil {
		return
	}
	a.UpdatedAt = at
	return
}
