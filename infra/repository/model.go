// Package repository provides the GORM implementations of the data-access
// contracts in pkg/repository, plus the unit of work binding them to one
// database transaction.
package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student represents a student record in the database. Soft-deleted via the
// Active flag, never removed.
type Student struct {
	gorm.Model
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	SchoolID        uuid.UUID `gorm:"type:uuid;index"`
	FirstName       string    `gorm:"size:100;not null"`
	LastName        string    `gorm:"size:100;not null"`
	ParentPhone     string    `gorm:"size:20"`
	CardUID         string    `gorm:"uniqueIndex;not null;size:64"`
	PreviousCardUID string    `gorm:"size:64"`
	CardStatus      string    `gorm:"size:16;not null;default:'active'"`
	Active          bool      `gorm:"not null;default:true"`
}

// Account represents a student wallet in the database. Balance and the
// cumulative totals are stored in the smallest currency unit.
type Account struct {
	gorm.Model
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	StudentID        uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Balance          int64     `gorm:"not null;default:0"`
	Currency         string    `gorm:"type:varchar(3);not null;default:'RWF'"`
	TotalDeposits    int64     `gorm:"not null;default:0"`
	TotalWithdrawals int64     `gorm:"not null;default:0"`
	LastTopUpAt      *time.Time
	LastTopUpAmount  int64
}

// Transaction represents a persisted ledger entry. Rows are append-only;
// the only permitted mutation is status -> reversed plus the reversal link.
type Transaction struct {
	gorm.Model
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	Reference     string    `gorm:"uniqueIndex;not null;size:64"`
	Type          string    `gorm:"size:16;not null;index"`
	Status        string    `gorm:"size:16;not null;index"`
	StudentID     uuid.UUID `gorm:"type:uuid;index"`
	AccountID     uuid.UUID `gorm:"type:uuid;index"`
	MerchantID    *uuid.UUID `gorm:"type:uuid;index"`
	DeviceID      *uuid.UUID `gorm:"type:uuid;index"`
	Amount        int64     `gorm:"not null"`
	Currency      string    `gorm:"type:varchar(3);not null;default:'RWF'"`
	BalanceBefore int64     `gorm:"not null"`
	BalanceAfter  int64     `gorm:"not null"`
	Description   string    `gorm:"size:255"`
	RelatedTxID   *uuid.UUID `gorm:"type:uuid"`
	Date          string    `gorm:"type:varchar(10);index"`
}

// Device represents a registered terminal in the database.
type Device struct {
	gorm.Model
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	DeviceID   string     `gorm:"uniqueIndex;not null;size:64"`
	Type       string     `gorm:"size:32;not null"`
	Status     string     `gorm:"size:16;not null;default:'offline'"`
	SchoolID   uuid.UUID  `gorm:"type:uuid;index"`
	MerchantID *uuid.UUID `gorm:"type:uuid;index"`
	Location   string     `gorm:"size:255"`
	ScanCount  int64      `gorm:"not null;default:0"`
	LastSeenAt *time.Time
}

// Merchant represents a selling point in the database.
type Merchant struct {
	gorm.Model
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Name       string    `gorm:"size:255;not null"`
	Type       string    `gorm:"size:64"`
	SchoolID   uuid.UUID `gorm:"type:uuid;index"`
	Active     bool      `gorm:"not null;default:true"`
	TotalSales int64     `gorm:"not null;default:0"`
	Currency   string    `gorm:"type:varchar(3);not null;default:'RWF'"`
	SalesCount int64     `gorm:"not null;default:0"`
}

// AttendanceRecord represents one check-in event in the database.
type AttendanceRecord struct {
	gorm.Model
	ID                uuid.UUID `gorm:"type:uuid;primary_key"`
	StudentID         uuid.UUID `gorm:"type:uuid;index"`
	SchoolID          uuid.UUID `gorm:"type:uuid;index"`
	DeviceID          uuid.UUID `gorm:"type:uuid;index"`
	Location          string    `gorm:"size:255"`
	CheckInAt         time.Time `gorm:"not null"`
	Date              string    `gorm:"type:varchar(10);index"`
	NotificationSent  bool      `gorm:"not null;default:false"`
	NotificationError string    `gorm:"size:255"`
}

// ScanFailure is the audit row for a rejected tap.
type ScanFailure struct {
	gorm.Model
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	CardUID  string    `gorm:"size:64;index"`
	DeviceID string    `gorm:"size:64;index"`
	Reason   string    `gorm:"size:255"`
}

// User represents a dashboard user record in the database.
type User struct {
	gorm.Model
	ID       uuid.UUID  `gorm:"type:uuid;primary_key"`
	Username string     `gorm:"uniqueIndex;not null;size:50"`
	Email    string     `gorm:"uniqueIndex;not null;size:255"`
	Password string     `gorm:"not null"`
	Role     string     `gorm:"size:16;not null;default:'school'"`
	SchoolID *uuid.UUID `gorm:"type:uuid"`
}

// Models lists every persisted model for AutoMigrate.
func Models() []any {
	return []any{
		&Student{},
		&Account{},
		&Transaction{},
		&Device{},
		&Merchant{},
		&AttendanceRecord{},
		&ScanFailure{},
		&User{},
	}
}
