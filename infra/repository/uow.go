package repository

import (
	"context"

	"github.com/ineza/schoolpay/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides the transaction boundary and repository access in one
// abstraction. Repositories obtained inside Do share the transaction
// session, so every write in a tap flow commits or rolls back together.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs the given function in a transaction boundary, providing a UoW
// whose repositories use the transaction session.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
}

// session returns the transaction session when inside Do, the base
// connection otherwise.
func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UoW) StudentRepository() (repository.StudentRepository, error) {
	return NewStudentRepository(u.session()), nil
}

func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	return NewAccountRepository(u.session()), nil
}

func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	return NewTransactionRepository(u.session()), nil
}

func (u *UoW) DeviceRepository() (repository.DeviceRepository, error) {
	return NewDeviceRepository(u.session()), nil
}

func (u *UoW) MerchantRepository() (repository.MerchantRepository, error) {
	return NewMerchantRepository(u.session()), nil
}

func (u *UoW) AttendanceRepository() (repository.AttendanceRepository, error) {
	return NewAttendanceRepository(u.session()), nil
}

func (u *UoW) ScanFailureRepository() (repository.ScanFailureRepository, error) {
	return NewScanFailureRepository(u.session()), nil
}

func (u *UoW) UserRepository() (repository.UserRepository, error) {
	return NewUserRepository(u.session()), nil
}

var _ repository.UnitOfWork = (*UoW)(nil)
