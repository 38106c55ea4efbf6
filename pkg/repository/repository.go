// Package repository defines the data-access contracts for the tap flows.
// Implementations live in infra/repository.
package repository

import (
	"context"
	"time"

	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/attendance"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/google/uuid"
)

// StudentRepository defines data access for students and their cards.
type StudentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*student.Student, error)
	GetByCardUID(ctx context.Context, cardUID string) (*student.Student, error)
	Create(ctx context.Context, s *student.Student) error
	Update(ctx context.Context, s *student.Student) error
	List(ctx context.Context, schoolID uuid.UUID) ([]*student.Student, error)
}

// AccountRepository defines data access for student wallets.
type AccountRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByStudent(ctx context.Context, studentID uuid.UUID) (*account.Account, error)
	Create(ctx context.Context, a *account.Account) error
	Update(ctx context.Context, a *account.Account) error

	// DeductIfSufficient performs the balance check and the decrement as one
	// conditional UPDATE, so two concurrent purchases on the same account
	// cannot both pass the check. Returns the refreshed account, or an
	// InsufficientBalanceError when the guard rejected the decrement.
	DeductIfSufficient(ctx context.Context, accountID uuid.UUID, amount int64) (*account.Account, error)
}

// DuplicateFilter identifies the tap fingerprint used by the payment
// idempotency window.
type DuplicateFilter struct {
	StudentID  uuid.UUID
	MerchantID uuid.UUID
	DeviceID   uuid.UUID
	Amount     int64
	Since      time.Time
}

// TransactionRepository defines data access for the transaction log.
type TransactionRepository interface {
	Create(ctx context.Context, tx *account.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*account.Transaction, error)
	GetByReference(ctx context.Context, ref string) (*account.Transaction, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*account.Transaction, error)
	ListByDate(ctx context.Context, date string) ([]*account.Transaction, error)

	// FindRecentDuplicate returns the most recent completed purchase
	// matching the filter, or nil when none exists inside the window.
	FindRecentDuplicate(ctx context.Context, f DuplicateFilter) (*account.Transaction, error)

	// MarkReversed sets status=reversed and the reversal link on a completed
	// purchase. Amounts are never updated.
	MarkReversed(ctx context.Context, id, reversalID uuid.UUID) error
}

// DeviceRepository defines data access for the terminal registry.
type DeviceRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*device.Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*device.Device, error)
	Create(ctx context.Context, d *device.Device) error
	Update(ctx context.Context, d *device.Device) error
	List(ctx context.Context, schoolID uuid.UUID) ([]*device.Device, error)
	IncrementScanCount(ctx context.Context, id uuid.UUID) error
}

// MerchantRepository defines data access for merchants.
type MerchantRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error)
	Create(ctx context.Context, m *merchant.Merchant) error
	Update(ctx context.Context, m *merchant.Merchant) error
	List(ctx context.Context, schoolID uuid.UUID) ([]*merchant.Merchant, error)

	// RecordSale atomically increments the running sales totals.
	RecordSale(ctx context.Context, id uuid.UUID, amount int64) error
}

// AttendanceRepository defines data access for the check-in log.
type AttendanceRepository interface {
	Create(ctx context.Context, r *attendance.Record) error
	Update(ctx context.Context, r *attendance.Record) error
	ListByDate(ctx context.Context, schoolID uuid.UUID, date string) ([]*attendance.Record, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*attendance.Record, error)
}

// ScanFailure is an audit row for a rejected tap.
type ScanFailure struct {
	ID        uuid.UUID
	CardUID   string
	DeviceID  string
	Reason    string
	CreatedAt time.Time
}

// ScanFailureRepository stores rejected taps for auditing.
type ScanFailureRepository interface {
	Create(ctx context.Context, f *ScanFailure) error
	ListByCard(ctx context.Context, cardUID string, limit int) ([]*ScanFailure, error)
}

// UserRepository defines data access for dashboard users.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
	Update(ctx context.Context, u *user.User) error
}
