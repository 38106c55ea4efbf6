package repository

import (
	"context"
	"errors"

	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type merchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates a merchant repository bound to the given session.
func NewMerchantRepository(db *gorm.DB) *merchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) Get(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	var m Merchant
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrMerchantNotFound
		}
		return nil, err
	}
	return mapMerchantToDomain(&m), nil
}

func (r *merchantRepository) Create(ctx context.Context, m *merchant.Merchant) error {
	return r.db.WithContext(ctx).Create(&Merchant{
		ID:         m.ID,
		Name:       m.Name,
		Type:       m.Type,
		SchoolID:   m.SchoolID,
		Active:     m.Active,
		TotalSales: m.TotalSales.Amount(),
		Currency:   m.TotalSales.Currency().String(),
		SalesCount: m.SalesCount,
	}).Error
}

func (r *merchantRepository) Update(ctx context.Context, m *merchant.Merchant) error {
	return r.db.WithContext(ctx).Model(&Merchant{}).Where("id = ?", m.ID).Updates(map[string]any{
		"name":   m.Name,
		"type":   m.Type,
		"active": m.Active,
	}).Error
}

func (r *merchantRepository) List(ctx context.Context, schoolID uuid.UUID) ([]*merchant.Merchant, error) {
	var ms []Merchant
	q := r.db.WithContext(ctx)
	if schoolID != uuid.Nil {
		q = q.Where("school_id = ?", schoolID)
	}
	if err := q.Order("name").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*merchant.Merchant, 0, len(ms))
	for i := range ms {
		out = append(out, mapMerchantToDomain(&ms[i]))
	}
	return out, nil
}

// RecordSale increments the running totals in place so concurrent purchases
// at the same merchant do not lose updates.
func (r *merchantRepository) RecordSale(ctx context.Context, id uuid.UUID, amount int64) error {
	res := r.db.WithContext(ctx).Model(&Merchant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_sales": gorm.Expr("total_sales + ?", amount),
			"sales_count": gorm.Expr("sales_count + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return merchant.ErrMerchantNotFound
	}
	return nil
}

func mapMerchantToDomain(m *Merchant) *merchant.Merchant {
	return &merchant.Merchant{
		ID:         m.ID,
		Name:       m.Name,
		Type:       m.Type,
		SchoolID:   m.SchoolID,
		Active:     m.Active,
		TotalSales: money.FromData(m.TotalSales, m.Currency),
		SalesCount: m.SalesCount,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
