package repository

import (
	"context"

	"github.com/ineza/schoolpay/pkg/domain/attendance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository creates an attendance repository bound to the
// given session.
func NewAttendanceRepository(db *gorm.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Create(ctx context.Context, rec *attendance.Record) error {
	return r.db.WithContext(ctx).Create(mapAttendanceToModel(rec)).Error
}

func (r *attendanceRepository) Update(ctx context.Context, rec *attendance.Record) error {
	return r.db.WithContext(ctx).Model(&AttendanceRecord{}).Where("id = ?", rec.ID).Updates(map[string]any{
		"notification_sent":  rec.NotificationSent,
		"notification_error": rec.NotificationError,
	}).Error
}

func (r *attendanceRepository) ListByDate(ctx context.Context, schoolID uuid.UUID, date string) ([]*attendance.Record, error) {
	var ms []AttendanceRecord
	q := r.db.WithContext(ctx).Where("date = ?", date)
	if schoolID != uuid.Nil {
		q = q.Where("school_id = ?", schoolID)
	}
	if err := q.Order("check_in_at").Find(&ms).Error; err != nil {
		return nil, err
	}
	return mapAttendanceListToDomain(ms), nil
}

func (r *attendanceRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*attendance.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var ms []AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("check_in_at DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return mapAttendanceListToDomain(ms), nil
}

func mapAttendanceToModel(rec *attendance.Record) *AttendanceRecord {
	return &AttendanceRecord{
		ID:                rec.ID,
		StudentID:         rec.StudentID,
		SchoolID:          rec.SchoolID,
		DeviceID:          rec.DeviceID,
		Location:          rec.Location,
		CheckInAt:         rec.CheckInAt,
		Date:              rec.Date,
		NotificationSent:  rec.NotificationSent,
		NotificationError: rec.NotificationError,
	}
}

func mapAttendanceListToDomain(ms []AttendanceRecord) []*attendance.Record {
	out := make([]*attendance.Record, 0, len(ms))
	for i := range ms {
		m := &ms[i]
		out = append(out, &attendance.Record{
			ID:                m.ID,
			StudentID:         m.StudentID,
			SchoolID:          m.SchoolID,
			DeviceID:          m.DeviceID,
			Location:          m.Location,
			CheckInAt:         m.CheckInAt,
			Date:              m.Date,
			NotificationSent:  m.NotificationSent,
			NotificationError: m.NotificationError,
			CreatedAt:         m.CreatedAt,
		})
	}
	return out
}
