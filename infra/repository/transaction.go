package repository

import (
	"context"
	"errors"

	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction repository bound to the
// given session.
func NewTransactionRepository(db *gorm.DB) *transactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *account.Transaction) error {
	return r.db.WithContext(ctx).Create(mapTransactionToModel(tx)).Error
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*account.Transaction, error) {
	var m Transaction
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrTransactionNotFound
		}
		return nil, err
	}
	return mapTransactionToDomain(&m), nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, ref string) (*account.Transaction, error) {
	var m Transaction
	if err := r.db.WithContext(ctx).First(&m, "reference = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrTransactionNotFound
		}
		return nil, err
	}
	return mapTransactionToDomain(&m), nil
}

func (r *transactionRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*account.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var ms []Transaction
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return mapTransactionsToDomain(ms), nil
}

func (r *transactionRepository) ListByDate(ctx context.Context, date string) ([]*account.Transaction, error) {
	var ms []Transaction
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("created_at").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return mapTransactionsToDomain(ms), nil
}

func (r *transactionRepository) FindRecentDuplicate(ctx context.Context, f repository.DuplicateFilter) (*account.Transaction, error) {
	var m Transaction
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND merchant_id = ? AND device_id = ? AND amount = ?",
			f.StudentID, f.MerchantID, f.DeviceID, f.Amount).
		Where("type = ? AND status = ?", string(account.TxPurchase), string(account.StatusCompleted)).
		Where("created_at >= ?", f.Since).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return mapTransactionToDomain(&m), nil
}

func (r *transactionRepository) MarkReversed(ctx context.Context, id, reversalID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND type = ? AND status = ?",
			id, string(account.TxPurchase), string(account.StatusCompleted)).
		Updates(map[string]any{
			"status":        string(account.StatusReversed),
			"related_tx_id": reversalID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return account.ErrNotReversible
	}
	return nil
}

func mapTransactionToModel(tx *account.Transaction) *Transaction {
	m := &Transaction{
		ID:            tx.ID,
		Reference:     tx.Reference,
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		StudentID:     tx.StudentID,
		AccountID:     tx.AccountID,
		Amount:        tx.Amount.Amount(),
		Currency:      tx.Amount.Currency().String(),
		BalanceBefore: tx.BalanceBefore.Amount(),
		BalanceAfter:  tx.BalanceAfter.Amount(),
		Description:   tx.Description,
		Date:          tx.Date,
	}
	// The idempotency window and the denormalized date column both key off
	// the domain timestamp, not the insert time.
	m.CreatedAt = tx.CreatedAt
	if tx.MerchantID != uuid.Nil {
		id := tx.MerchantID
		m.MerchantID = &id
	}
	if tx.DeviceID != uuid.Nil {
		id := tx.DeviceID
		m.DeviceID = &id
	}
	if tx.RelatedTxID != uuid.Nil {
		id := tx.RelatedTxID
		m.RelatedTxID = &id
	}
	return m
}

func mapTransactionToDomain(m *Transaction) *account.Transaction {
	tx := &account.Transaction{
		ID:            m.ID,
		Reference:     m.Reference,
		Type:          account.TxType(m.Type),
		Status:        account.TxStatus(m.Status),
		StudentID:     m.StudentID,
		AccountID:     m.AccountID,
		Amount:        money.FromData(m.Amount, m.Currency),
		BalanceBefore: money.FromData(m.BalanceBefore, m.Currency),
		BalanceAfter:  money.FromData(m.BalanceAfter, m.Currency),
		Description:   m.Description,
		CreatedAt:     m.CreatedAt,
		Date:          m.Date,
	}
	if m.MerchantID != nil {
		tx.MerchantID = *m.MerchantID
	}
	if m.DeviceID != nil {
		tx.DeviceID = *m.DeviceID
	}
	if m.RelatedTxID != nil {
		tx.RelatedTxID = *m.RelatedTxID
	}
	return tx
}

func mapTransactionsToDomain(ms []Transaction) []*account.Transaction {
	out := make([]*account.Transaction, 0, len(ms))
	for i := range ms {
		out = append(out, mapTransactionToDomain(&ms[i]))
	}
	return out
}
