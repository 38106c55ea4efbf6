// Package fixtures provides in-memory test doubles for the repository
// contracts. The fake unit of work keeps everything in maps behind one
// mutex; Do is not transactional, which is fine for the service tests that
// use it.
package fixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/attendance"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/repository"
)

// MemoryUoW is an in-memory repository.UnitOfWork.
type MemoryUoW struct {
	mu           sync.Mutex
	students     map[uuid.UUID]*student.Student
	accounts     map[uuid.UUID]*account.Account
	transactions map[uuid.UUID]*account.Transaction
	devices      map[uuid.UUID]*device.Device
	merchants    map[uuid.UUID]*merchant.Merchant
	attendance   map[uuid.UUID]*attendance.Record
	scanFailures []*repository.ScanFailure
	users        map[uuid.UUID]*user.User
}

// NewMemoryUoW creates an empty in-memory unit of work.
func NewMemoryUoW() *MemoryUoW {
	return &MemoryUoW{
		students:     make(map[uuid.UUID]*student.Student),
		accounts:     make(map[uuid.UUID]*account.Account),
		transactions: make(map[uuid.UUID]*account.Transaction),
		devices:      make(map[uuid.UUID]*device.Device),
		merchants:    make(map[uuid.UUID]*merchant.Merchant),
		attendance:   make(map[uuid.UUID]*attendance.Record),
		users:        make(map[uuid.UUID]*user.User),
	}
}

// Do runs fn with the same store. There is no rollback.
func (m *MemoryUoW) Do(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	return fn(m)
}

func (m *MemoryUoW) StudentRepository() (repository.StudentRepository, error) {
	return &memoryStudentRepo{m}, nil
}

func (m *MemoryUoW) AccountRepository() (repository.AccountRepository, error) {
	return &memoryAccountRepo{m}, nil
}

func (m *MemoryUoW) TransactionRepository() (repository.TransactionRepository, error) {
	return &memoryTransactionRepo{m}, nil
}

func (m *MemoryUoW) DeviceRepository() (repository.DeviceRepository, error) {
	return &memoryDeviceRepo{m}, nil
}

func (m *MemoryUoW) MerchantRepository() (repository.MerchantRepository, error) {
	return &memoryMerchantRepo{m}, nil
}

func (m *MemoryUoW) AttendanceRepository() (repository.AttendanceRepository, error) {
	return &memoryAttendanceRepo{m}, nil
}

func (m *MemoryUoW) ScanFailureRepository() (repository.ScanFailureRepository, error) {
	return &memoryScanFailureRepo{m}, nil
}

func (m *MemoryUoW) UserRepository() (repository.UserRepository, error) {
	return &memoryUserRepo{m}, nil
}

var _ repository.UnitOfWork = (*MemoryUoW)(nil)

// ScanFailures returns a copy of the recorded scan failures.
func (m *MemoryUoW) ScanFailures() []*repository.ScanFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.ScanFailure, len(m.scanFailures))
	copy(out, m.scanFailures)
	return out
}

type memoryStudentRepo struct{ m *MemoryUoW }

func (r *memoryStudentRepo) Get(_ context.Context, id uuid.UUID) (*student.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	st, ok := r.m.students[id]
	if !ok {
		return nil, student.ErrStudentNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *memoryStudentRepo) GetByCardUID(_ context.Context, cardUID string) (*student.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, st := range r.m.students {
		if st.CardUID == cardUID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, student.ErrStudentNotFound
}

func (r *memoryStudentRepo) Create(_ context.Context, st *student.Student) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *st
	r.m.students[st.ID] = &cp
	return nil
}

func (r *memoryStudentRepo) Update(_ context.Context, st *student.Student) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.students[st.ID]; !ok {
		return student.ErrStudentNotFound
	}
	cp := *st
	r.m.students[st.ID] = &cp
	return nil
}

func (r *memoryStudentRepo) List(_ context.Context, schoolID uuid.UUID) ([]*student.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*student.Student
	for _, st := range r.m.students {
		if st.SchoolID == schoolID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

type memoryAccountRepo struct{ m *MemoryUoW }

func (r *memoryAccountRepo) Get(_ context.Context, id uuid.UUID) (*account.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memoryAccountRepo) GetByStudent(_ context.Context, studentID uuid.UUID) (*account.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.accounts {
		if a.StudentID == studentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (r *memoryAccountRepo) Create(_ context.Context, a *account.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *a
	r.m.accounts[a.ID] = &cp
	return nil
}

func (r *memoryAccountRepo) Update(_ context.Context, a *account.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.accounts[a.ID]; !ok {
		return account.ErrAccountNotFound
	}
	cp := *a
	r.m.accounts[a.ID] = &cp
	return nil
}

func (r *memoryAccountRepo) DeductIfSufficient(
	_ context.Context,
	accountID uuid.UUID,
	amount int64,
) (*account.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[accountID]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	requested, err := money.NewFromSmallestUnit(amount, a.Currency())
	if err != nil {
		return nil, err
	}
	if a.Balance.Amount() < amount {
		return nil, account.NewInsufficientBalanceError(a.Balance, requested)
	}
	if _, err := a.Withdraw(requested, time.Now()); err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

type memoryTransactionRepo struct{ m *MemoryUoW }

func (r *memoryTransactionRepo) Create(_ context.Context, tx *account.Transaction) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *tx
	r.m.transactions[tx.ID] = &cp
	return nil
}

func (r *memoryTransactionRepo) Get(_ context.Context, id uuid.UUID) (*account.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	tx, ok := r.m.transactions[id]
	if !ok {
		return nil, account.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *memoryTransactionRepo) GetByReference(_ context.Context, ref string) (*account.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, tx := range r.m.transactions {
		if tx.Reference == ref {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, account.ErrTransactionNotFound
}

func (r *memoryTransactionRepo) ListByStudent(
	_ context.Context,
	studentID uuid.UUID,
	limit int,
) ([]*account.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*account.Transaction
	for _, tx := range r.m.transactions {
		if tx.StudentID == studentID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryTransactionRepo) ListByDate(_ context.Context, date string) ([]*account.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*account.Transaction
	for _, tx := range r.m.transactions {
		if tx.Date == date {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryTransactionRepo) FindRecentDuplicate(
	_ context.Context,
	f repository.DuplicateFilter,
) (*account.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var found *account.Transaction
	for _, tx := range r.m.transactions {
		if tx.Type != account.TxPurchase || tx.Status != account.StatusCompleted {
			continue
		}
		if tx.StudentID != f.StudentID || tx.MerchantID != f.MerchantID ||
			tx.DeviceID != f.DeviceID || tx.Amount.Amount() != f.Amount {
			continue
		}
		if tx.CreatedAt.Before(f.Since) {
			continue
		}
		if found == nil || tx.CreatedAt.After(found.CreatedAt) {
			found = tx
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (r *memoryTransactionRepo) MarkReversed(_ context.Context, id, reversalID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	tx, ok := r.m.transactions[id]
	if !ok {
		return account.ErrTransactionNotFound
	}
	if tx.Type != account.TxPurchase || tx.Status != account.StatusCompleted {
		return account.ErrNotReversible
	}
	tx.Status = account.StatusReversed
	tx.RelatedTxID = reversalID
	return nil
}

type memoryDeviceRepo struct{ m *MemoryUoW }

func (r *memoryDeviceRepo) Get(_ context.Context, id uuid.UUID) (*device.Device, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memoryDeviceRepo) GetByDeviceID(_ context.Context, deviceID string) (*device.Device, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.devices {
		if d.DeviceID == deviceID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, device.ErrDeviceNotFound
}

func (r *memoryDeviceRepo) Create(_ context.Context, d *device.Device) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *d
	r.m.devices[d.ID] = &cp
	return nil
}

func (r *memoryDeviceRepo) Update(_ context.Context, d *device.Device) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.devices[d.ID]; !ok {
		return device.ErrDeviceNotFound
	}
	cp := *d
	r.m.devices[d.ID] = &cp
	return nil
}

func (r *memoryDeviceRepo) List(_ context.Context, schoolID uuid.UUID) ([]*device.Device, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*device.Device
	for _, d := range r.m.devices {
		if d.SchoolID == schoolID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (r *memoryDeviceRepo) IncrementScanCount(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.devices[id]
	if !ok {
		return device.ErrDeviceNotFound
	}
	d.ScanCount++
	return nil
}

type memoryMerchantRepo struct{ m *MemoryUoW }

func (r *memoryMerchantRepo) Get(_ context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	mm, ok := r.m.merchants[id]
	if !ok {
		return nil, merchant.ErrMerchantNotFound
	}
	cp := *mm
	return &cp, nil
}

func (r *memoryMerchantRepo) Create(_ context.Context, mm *merchant.Merchant) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *mm
	r.m.merchants[mm.ID] = &cp
	return nil
}

func (r *memoryMerchantRepo) Update(_ context.Context, mm *merchant.Merchant) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.merchants[mm.ID]; !ok {
		return merchant.ErrMerchantNotFound
	}
	cp := *mm
	r.m.merchants[mm.ID] = &cp
	return nil
}

func (r *memoryMerchantRepo) List(_ context.Context, schoolID uuid.UUID) ([]*merchant.Merchant, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*merchant.Merchant
	for _, mm := range r.m.merchants {
		if mm.SchoolID == schoolID {
			cp := *mm
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryMerchantRepo) RecordSale(_ context.Context, id uuid.UUID, amount int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	mm, ok := r.m.merchants[id]
	if !ok {
		return merchant.ErrMerchantNotFound
	}
	sale, err := money.NewFromSmallestUnit(amount, mm.TotalSales.Currency())
	if err != nil {
		return err
	}
	return mm.RecordSale(sale)
}

type memoryAttendanceRepo struct{ m *MemoryUoW }

func (r *memoryAttendanceRepo) Create(_ context.Context, rec *attendance.Record) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *rec
	r.m.attendance[rec.ID] = &cp
	return nil
}

func (r *memoryAttendanceRepo) Update(_ context.Context, rec *attendance.Record) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.attendance[rec.ID]; !ok {
		return attendance.ErrRecordNotFound
	}
	cp := *rec
	r.m.attendance[rec.ID] = &cp
	return nil
}

func (r *memoryAttendanceRepo) ListByDate(
	_ context.Context,
	schoolID uuid.UUID,
	date string,
) ([]*attendance.Record, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*attendance.Record
	for _, rec := range r.m.attendance {
		if rec.SchoolID == schoolID && rec.Date == date {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInAt.Before(out[j].CheckInAt) })
	return out, nil
}

func (r *memoryAttendanceRepo) ListByStudent(
	_ context.Context,
	studentID uuid.UUID,
	limit int,
) ([]*attendance.Record, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*attendance.Record
	for _, rec := range r.m.attendance {
		if rec.StudentID == studentID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInAt.After(out[j].CheckInAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryScanFailureRepo struct{ m *MemoryUoW }

func (r *memoryScanFailureRepo) Create(_ context.Context, f *repository.ScanFailure) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *f
	r.m.scanFailures = append(r.m.scanFailures, &cp)
	return nil
}

func (r *memoryScanFailureRepo) ListByCard(
	_ context.Context,
	cardUID string,
	limit int,
) ([]*repository.ScanFailure, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*repository.ScanFailure
	for i := len(r.m.scanFailures) - 1; i >= 0; i-- {
		if r.m.scanFailures[i].CardUID == cardUID {
			cp := *r.m.scanFailures[i]
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memoryUserRepo struct{ m *MemoryUoW }

func (r *memoryUserRepo) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *memoryUserRepo) Create(_ context.Context, u *user.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *u
	r.m.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, u *user.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	cp := *u
	r.m.users[u.ID] = &cp
	return nil
}
