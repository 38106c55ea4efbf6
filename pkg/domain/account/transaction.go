package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/google/uuid"
)

var (
	// ErrTransactionNotFound is returned when a transaction cannot be found.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAlreadyReversed is returned when reversing a transaction that has
	// already been reversed.
	ErrAlreadyReversed = errors.New("transaction already reversed")

	// ErrNotReversible is returned when reversing anything other than a
	// completed purchase.
	ErrNotReversible = errors.New("only completed purchases can be reversed")
)

// TxType classifies a balance-affecting event.
type TxType string

const (
	TxPurchase   TxType = "purchase"
	TxTopUp      TxType = "topup"
	TxRefund     TxType = "refund"
	TxAdjustment TxType = "adjustment"
	TxReversal   TxType = "reversal"
)

// Debits reports whether the type moves money out of the account.
func (t TxType) Debits() bool {
	return t == TxPurchase
}

// TxStatus tracks a transaction through its lifecycle. Completed
// transactions are immutable except for the transition to reversed.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
	StatusFailed    TxStatus = "failed"
	StatusReversed  TxStatus = "reversed"
	StatusCancelled TxStatus = "cancelled"
)

// Transaction is an immutable record of a balance-affecting event.
//
// Invariants:
//   - Amount is positive; the type carries the sign.
//   - BalanceAfter = BalanceBefore - Amount for debits,
//     BalanceBefore + Amount for credits.
//   - Once completed, only the status may change, and only to reversed,
//     together with a link to the reversing transaction.
type Transaction struct {
	ID            uuid.UUID
	Reference     string
	Type          TxType
	Status        TxStatus
	StudentID     uuid.UUID
	AccountID     uuid.UUID
	MerchantID    uuid.UUID
	DeviceID      uuid.UUID
	Amount        money.Money
	BalanceBefore money.Money
	BalanceAfter  money.Money
	Description   string
	RelatedTxID   uuid.UUID // reversal link, both directions
	CreatedAt     time.Time
	Date          string // calendar date, denormalized for range queries
}

// DateLayout is the calendar-date format stored on transactions and
// attendance records.
const DateLayout = "2006-01-02"

// NewReference derives a unique human-readable transaction reference.
func NewReference(t TxType) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("TXN-%s-%s", strings.ToUpper(string(t))[:3], id[:16])
}

// NewTransaction creates a completed transaction and checks the snapshot
// arithmetic against the type sign.
func NewTransaction(
	typ TxType,
	studentID, accountID uuid.UUID,
	amount, before, after money.Money,
	at time.Time,
) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountMustBePositive
	}
	var want money.Money
	var err error
	if typ.Debits() {
		want, err = before.Subtract(amount)
	} else {
		want, err = before.Add(amount)
	}
	if err != nil {
		return nil, err
	}
	if !want.Equals(after) {
		return nil, fmt.Errorf("balance snapshot mismatch for %s: %s -> %s with amount %s",
			typ, before, after, amount)
	}
	return &Transaction{
		ID:            uuid.New(),
		Reference:     NewReference(typ),
		Type:          typ,
		Status:        StatusCompleted,
		StudentID:     studentID,
		AccountID:     accountID,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		CreatedAt:     at,
		Date:          at.Format(DateLayout),
	}, nil
}

// ValidateReversible checks that this transaction may be reversed.
func (t *Transaction) ValidateReversible() error {
	if t.Status == StatusReversed {
		return ErrAlreadyReversed
	}
	if t.Type != TxPurchase || t.Status != StatusCompleted {
		return ErrNotReversible
	}
	return nil
}

// MarkReversed links the reversal and flips the status. Amounts are never
// edited in place.
func (t *Transaction) MarkReversed(reversalID uuid.UUID) error {
	if err := t.ValidateReversible(); err != nil {
		return err
	}
	t.Status = StatusReversed
	t.RelatedTxID = reversalID
	return nil
}
