package repository

import "context"

// UnitOfWork defines the contract for transactional work with typed
// repository access. All repositories returned inside Do share the same
// database session, so a payment's balance decrement, transaction insert and
// statistics updates commit or roll back together.
type UnitOfWork interface {
	// Do executes the given function within a transaction boundary.
	// If the function returns an error, the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	StudentRepository() (StudentRepository, error)
	AccountRepository() (AccountRepository, error)
	TransactionRepository() (TransactionRepository, error)
	DeviceRepository() (DeviceRepository, error)
	MerchantRepository() (MerchantRepository, error)
	AttendanceRepository() (AttendanceRepository, error)
	ScanFailureRepository() (ScanFailureRepository, error)
	UserRepository() (UserRepository, error)
}
