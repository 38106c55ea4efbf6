package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a device repository bound to the given session.
func NewDeviceRepository(db *gorm.DB) *deviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Get(ctx context.Context, id uuid.UUID) (*device.Device, error) {
	var m Device
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, device.ErrDeviceNotFound
		}
		return nil, err
	}
	return mapDeviceToDomain(&m)
}

func (r *deviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*device.Device, error) {
	var m Device
	if err := r.db.WithContext(ctx).First(&m, "device_id = ?", deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, device.ErrDeviceNotFound
		}
		return nil, err
	}
	return mapDeviceToDomain(&m)
}

func (r *deviceRepository) Create(ctx context.Context, d *device.Device) error {
	return r.db.WithContext(ctx).Create(mapDeviceToModel(d)).Error
}

func (r *deviceRepository) Update(ctx context.Context, d *device.Device) error {
	updates := map[string]any{
		"status":   d.Status.String(),
		"location": d.Location,
	}
	if d.MerchantID != uuid.Nil {
		updates["merchant_id"] = d.MerchantID
	}
	if !d.LastSeenAt.IsZero() {
		updates["last_seen_at"] = d.LastSeenAt
	}
	return r.db.WithContext(ctx).Model(&Device{}).Where("id = ?", d.ID).Updates(updates).Error
}

func (r *deviceRepository) List(ctx context.Context, schoolID uuid.UUID) ([]*device.Device, error) {
	var ms []Device
	q := r.db.WithContext(ctx)
	if schoolID != uuid.Nil {
		q = q.Where("school_id = ?", schoolID)
	}
	if err := q.Order("device_id").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*device.Device, 0, len(ms))
	for i := range ms {
		d, err := mapDeviceToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *deviceRepository) IncrementScanCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Device{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"scan_count":   gorm.Expr("scan_count + 1"),
			"last_seen_at": time.Now(),
		}).Error
}

func mapDeviceToModel(d *device.Device) *Device {
	m := &Device{
		ID:        d.ID,
		DeviceID:  d.DeviceID,
		Type:      string(d.Type),
		Status:    d.Status.String(),
		SchoolID:  d.SchoolID,
		Location:  d.Location,
		ScanCount: d.ScanCount,
	}
	if d.MerchantID != uuid.Nil {
		id := d.MerchantID
		m.MerchantID = &id
	}
	if !d.LastSeenAt.IsZero() {
		t := d.LastSeenAt
		m.LastSeenAt = &t
	}
	return m
}

func mapDeviceToDomain(m *Device) (*device.Device, error) {
	status, err := device.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}
	d := &device.Device{
		ID:        m.ID,
		DeviceID:  m.DeviceID,
		Type:      device.Type(m.Type),
		Status:    status,
		SchoolID:  m.SchoolID,
		Location:  m.Location,
		ScanCount: m.ScanCount,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.MerchantID != nil {
		d.MerchantID = *m.MerchantID
	}
	if m.LastSeenAt != nil {
		d.LastSeenAt = *m.LastSeenAt
	}
	return d, nil
}
