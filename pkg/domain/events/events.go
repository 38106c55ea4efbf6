// Package events defines the domain events emitted after tap flows commit.
// They feed the notification dispatcher and the audit trail; the flows
// themselves never depend on event delivery.
package events

import (
	"time"

	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/google/uuid"
)

// Event is the marker interface for all domain events.
type Event interface {
	Type() string
}

// PaymentCompleted is emitted after a purchase has been durably committed.
type PaymentCompleted struct {
	TransactionID uuid.UUID
	Reference     string
	StudentID     uuid.UUID
	StudentName   string
	ParentPhone   string
	MerchantID    uuid.UUID
	MerchantName  string
	DeviceID      uuid.UUID
	Amount        money.Money
	NewBalance    money.Money
	OccurredAt    time.Time
}

// TopUpCompleted is emitted after a top-up has been durably committed.
type TopUpCompleted struct {
	TransactionID uuid.UUID
	Reference     string
	StudentID     uuid.UUID
	StudentName   string
	ParentPhone   string
	Amount        money.Money
	NewBalance    money.Money
	OccurredAt    time.Time
}

// PaymentReversed is emitted after a reversal has been durably committed.
type PaymentReversed struct {
	TransactionID uuid.UUID
	ReversalID    uuid.UUID
	StudentID     uuid.UUID
	Amount        money.Money
	NewBalance    money.Money
	Reason        string
	OccurredAt    time.Time
}

// AttendanceRecorded is emitted after a check-in record has been written.
type AttendanceRecorded struct {
	RecordID    uuid.UUID
	StudentID   uuid.UUID
	StudentName string
	ParentPhone string
	DeviceID    uuid.UUID
	Location    string
	CheckInAt   time.Time
}

// ScanFailed is emitted for rejected taps so failures are auditable.
type ScanFailed struct {
	CardUID    string
	DeviceID   string
	Reason     string
	OccurredAt time.Time
}

// NotificationSent is emitted when an SMS was accepted by the gateway.
type NotificationSent struct {
	StudentID  uuid.UUID
	Phone      string
	Kind       string
	OccurredAt time.Time
}

// NotificationFailed is emitted when the gateway rejected or timed out.
type NotificationFailed struct {
	StudentID  uuid.UUID
	Phone      string
	Kind       string
	Reason     string
	OccurredAt time.Time
}

func (PaymentCompleted) Type() string   { return "PaymentCompleted" }
func (TopUpCompleted) Type() string     { return "TopUpCompleted" }
func (PaymentReversed) Type() string    { return "PaymentReversed" }
func (AttendanceRecorded) Type() string { return "AttendanceRecorded" }
func (ScanFailed) Type() string         { return "ScanFailed" }
func (NotificationSent) Type() string   { return "NotificationSent" }
func (NotificationFailed) Type() string { return "NotificationFailed" }
