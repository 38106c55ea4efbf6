package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ineza/schoolpay/pkg/currency"
	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository bound to the given session.
func NewAccountRepository(db *gorm.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var m Account
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, err
	}
	return mapAccountToDomain(&m)
}

func (r *accountRepository) GetByStudent(ctx context.Context, studentID uuid.UUID) (*account.Account, error) {
	var m Account
	if err := r.db.WithContext(ctx).First(&m, "student_id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, err
	}
	return mapAccountToDomain(&m)
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	return r.db.WithContext(ctx).Create(mapAccountToModel(a)).Error
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	updates := map[string]any{
		"balance":           a.Balance.Amount(),
		"total_deposits":    a.TotalDeposits.Amount(),
		"total_withdrawals": a.TotalWithdrawals.Amount(),
		"last_top_up_amount": a.LastTopUpAmount.Amount(),
	}
	if !a.LastTopUpAt.IsZero() {
		updates["last_top_up_at"] = a.LastTopUpAt
	}
	return r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", a.ID).Updates(updates).Error
}

// DeductIfSufficient runs the balance guard and the decrement as a single
// conditional UPDATE. Zero rows affected means the guard rejected it: either
// the balance was short or the account disappeared, which the follow-up read
// distinguishes.
func (r *accountRepository) DeductIfSufficient(ctx context.Context, accountID uuid.UUID, amount int64) (*account.Account, error) {
	res := r.db.WithContext(ctx).Model(&Account{}).
		Where("id = ? AND balance >= ?", accountID, amount).
		Updates(map[string]any{
			"balance":           gorm.Expr("balance - ?", amount),
			"total_withdrawals": gorm.Expr("total_withdrawals + ?", amount),
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := r.Get(ctx, accountID)
		if err != nil {
			return nil, err
		}
		requested, err := money.NewFromSmallestUnit(amount, current.Currency())
		if err != nil {
			return nil, err
		}
		return nil, account.NewInsufficientBalanceError(current.Balance, requested)
	}
	return r.Get(ctx, accountID)
}

func mapAccountToModel(a *account.Account) *Account {
	m := &Account{
		ID:               a.ID,
		StudentID:        a.StudentID,
		Balance:          a.Balance.Amount(),
		Currency:         a.Currency().String(),
		TotalDeposits:    a.TotalDeposits.Amount(),
		TotalWithdrawals: a.TotalWithdrawals.Amount(),
		LastTopUpAmount:  a.LastTopUpAmount.Amount(),
	}
	if !a.LastTopUpAt.IsZero() {
		t := a.LastTopUpAt
		m.LastTopUpAt = &t
	}
	return m
}

func mapAccountToDomain(m *Account) (*account.Account, error) {
	b := account.New().
		WithID(m.ID).
		WithStudentID(m.StudentID).
		WithCurrency(currency.Code(m.Currency)).
		WithBalance(m.Balance).
		WithTotalDeposits(m.TotalDeposits).
		WithTotalWithdrawals(m.TotalWithdrawals).
		WithCreatedAt(m.CreatedAt).
		WithUpdatedAt(m.UpdatedAt)
	if m.LastTopUpAt != nil {
		b = b.WithLastTopUp(*m.LastTopUpAt, m.LastTopUpAmount)
	}
	return b.Build()
}
