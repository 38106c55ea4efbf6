// Package user holds dashboard users and their roles. These are the humans
// operating the system, not students; students authenticate with nothing but
// their card.
package user

import (
	"errors"
	"time"

	"github.com/ineza/schoolpay/pkg/utils"
	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserUnauthorized is returned on bad credentials or insufficient
	// role.
	ErrUserUnauthorized = errors.New("user unauthorized")
)

// Role gates dashboard routes.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSchool Role = "school"
	RoleParent Role = "parent"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSchool, RoleParent:
		return true
	}
	return false
}

// User represents a dashboard user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	SchoolID  uuid.UUID `json:"schoolId"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// NewUser creates a new User with a hashed password and current timestamps.
func NewUser(username, email, password string, role Role) (*User, error) {
	if username == "" {
		return nil, errors.New("username cannot be empty")
	}
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	if !role.Valid() {
		return nil, errors.New("invalid role")
	}
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Password:  hashedPassword,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewUserFromData creates a User from raw data (used for DB hydration).
func NewUserFromData(
	id uuid.UUID,
	username, email, password string,
	role Role,
	schoolID uuid.UUID,
	created, updated time.Time,
) *User {
	return &User{
		ID:        id,
		Username:  username,
		Email:     email,
		Password:  password,
		Role:      role,
		SchoolID:  schoolID,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}
