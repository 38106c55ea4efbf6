package repository

import (
	"context"

	"github.com/ineza/schoolpay/pkg/repository"
	"gorm.io/gorm"
)

type scanFailureRepository struct {
	db *gorm.DB
}

// NewScanFailureRepository creates a scan-failure audit repository bound to
// the given session.
func NewScanFailureRepository(db *gorm.DB) *scanFailureRepository {
	return &scanFailureRepository{db: db}
}

func (r *scanFailureRepository) Create(ctx context.Context, f *repository.ScanFailure) error {
	return r.db.WithContext(ctx).Create(&ScanFailure{
		ID:       f.ID,
		CardUID:  f.CardUID,
		DeviceID: f.DeviceID,
		Reason:   f.Reason,
	}).Error
}

func (r *scanFailureRepository) ListByCard(ctx context.Context, cardUID string, limit int) ([]*repository.ScanFailure, error) {
	if limit <= 0 {
		limit = 50
	}
	var ms []ScanFailure
	err := r.db.WithContext(ctx).
		Where("card_uid = ?", cardUID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	out := make([]*repository.ScanFailure, 0, len(ms))
	for i := range ms {
		m := &ms[i]
		out = append(out, &repository.ScanFailure{
			ID:        m.ID,
			CardUID:   m.CardUID,
			DeviceID:  m.DeviceID,
			Reason:    m.Reason,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}
