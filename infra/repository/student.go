package repository

import (
	"context"
	"errors"

	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository creates a student repository bound to the given session.
func NewStudentRepository(db *gorm.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Get(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	var m Student
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, student.ErrStudentNotFound
		}
		return nil, err
	}
	return mapStudentToDomain(&m)
}

func (r *studentRepository) GetByCardUID(ctx context.Context, cardUID string) (*student.Student, error) {
	var m Student
	if err := r.db.WithContext(ctx).First(&m, "card_uid = ?", cardUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, student.ErrStudentNotFound
		}
		return nil, err
	}
	return mapStudentToDomain(&m)
}

func (r *studentRepository) Create(ctx context.Context, s *student.Student) error {
	return r.db.WithContext(ctx).Create(mapStudentToModel(s)).Error
}

func (r *studentRepository) Update(ctx context.Context, s *student.Student) error {
	return r.db.WithContext(ctx).Model(&Student{}).Where("id = ?", s.ID).Updates(map[string]any{
		"first_name":        s.FirstName,
		"last_name":         s.LastName,
		"parent_phone":      s.ParentPhone,
		"card_uid":          s.CardUID,
		"previous_card_uid": s.PreviousCardUID,
		"card_status":       s.CardStatus.String(),
		"active":            s.Active,
	}).Error
}

func (r *studentRepository) List(ctx context.Context, schoolID uuid.UUID) ([]*student.Student, error) {
	var ms []Student
	q := r.db.WithContext(ctx)
	if schoolID != uuid.Nil {
		q = q.Where("school_id = ?", schoolID)
	}
	if err := q.Order("last_name, first_name").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*student.Student, 0, len(ms))
	for i := range ms {
		s, err := mapStudentToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func mapStudentToModel(s *student.Student) *Student {
	return &Student{
		ID:              s.ID,
		SchoolID:        s.SchoolID,
		FirstName:       s.FirstName,
		LastName:        s.LastName,
		ParentPhone:     s.ParentPhone,
		CardUID:         s.CardUID,
		PreviousCardUID: s.PreviousCardUID,
		CardStatus:      s.CardStatus.String(),
		Active:          s.Active,
	}
}

func mapStudentToDomain(m *Student) (*student.Student, error) {
	status, err := student.ParseCardStatus(m.CardStatus)
	if err != nil {
		return nil, err
	}
	return student.New().
		WithID(m.ID).
		WithSchoolID(m.SchoolID).
		WithName(m.FirstName, m.LastName).
		WithParentPhone(m.ParentPhone).
		WithCardUID(m.CardUID).
		WithPreviousCardUID(m.PreviousCardUID).
		WithCardStatus(status).
		WithActive(m.Active).
		WithCreatedAt(m.CreatedAt).
		WithUpdatedAt(m.UpdatedAt).
		Build()
}
