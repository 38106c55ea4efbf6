package repository

import (
	"context"
	"errors"

	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository bound to the given session.
func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var m User
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return mapUserToDomain(&m), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var m User
	if err := r.db.WithContext(ctx).First(&m, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return mapUserToDomain(&m), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var m User
	if err := r.db.WithContext(ctx).First(&m, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return mapUserToDomain(&m), nil
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	m := &User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Password: u.Password,
		Role:     string(u.Role),
	}
	if u.SchoolID != uuid.Nil {
		id := u.SchoolID
		m.SchoolID = &id
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *userRepository) Update(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", u.ID).Updates(map[string]any{
		"email":    u.Email,
		"password": u.Password,
		"role":     string(u.Role),
	}).Error
}

func mapUserToDomain(m *User) *user.User {
	schoolID := uuid.Nil
	if m.SchoolID != nil {
		schoolID = *m.SchoolID
	}
	return user.NewUserFromData(
		m.ID, m.Username, m.Email, m.Password,
		user.Role(m.Role), schoolID,
		m.CreatedAt, m.UpdatedAt,
	)
}
