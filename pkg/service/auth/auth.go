// Package auth authenticates dashboard users and issues JWTs carrying the
// user's role and school.
package auth

import (
	"context"
	"log/slog"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/repository"
	"github.com/ineza/schoolpay/pkg/utils"
)

// dummyHash keeps the bcrypt cost constant for unknown identities so login
// timing does not leak which usernames exist.
const dummyHash = "$2a$12$7zFqzDbD3RrlkMTczbXG9OWZ0FLOXjIxXzSZ.QZxkVXjXcx7QZQiC"

// Service authenticates users and mints tokens.
type Service struct {
	uow    repository.UnitOfWork
	cfg    config.Jwt
	logger *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	return &Service{
		uow:    deps.Uow,
		cfg:    deps.Config.Jwt,
		logger: deps.Logger.With("service", "auth"),
	}
}

// Register creates a dashboard user.
func (s *Service) Register(
	ctx context.Context,
	username, email, password string,
	role user.Role,
	schoolID uuid.UUID,
) (u *user.User, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err = user.NewUser(username, email, password, role)
		if err != nil {
			return err
		}
		u.SchoolID = schoolID
		return repo.Create(ctx, u)
	})
	if err != nil {
		s.logger.Error("user registration failed", "username", username, "error", err)
		return nil, err
	}
	s.logger.Info("user registered", "username", username, "role", role)
	return u, nil
}

// Login checks the credentials and returns the user. The identity may be a
// username or an email address.
func (s *Service) Login(ctx context.Context, identity, password string) (*user.User, error) {
	repo, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}

	var u *user.User
	if isEmail(identity) {
		u, err = repo.GetByEmail(ctx, identity)
	} else {
		u, err = repo.GetByUsername(ctx, identity)
	}
	if err != nil || u == nil {
		utils.CheckPasswordHash(password, dummyHash)
		return nil, user.ErrUserUnauthorized
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, user.ErrUserUnauthorized
	}
	return u, nil
}

// GenerateToken mints a signed JWT for the user.
func (s *Service) GenerateToken(u *user.User) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["user_id"] = u.ID.String()
	claims["username"] = u.Username
	claims["role"] = string(u.Role)
	claims["school_id"] = u.SchoolID.String()
	claims["exp"] = time.Now().Add(s.cfg.Expiry).Unix()
	return token.SignedString([]byte(s.cfg.Secret))
}

// Claims are the token fields the HTTP layer cares about.
type Claims struct {
	UserID   uuid.UUID
	Role     user.Role
	SchoolID uuid.UUID
}

// ParseClaims extracts the typed claims from a verified token.
func ParseClaims(token *jwt.Token) (Claims, error) {
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, user.ErrUserUnauthorized
	}
	rawID, ok := mapClaims["user_id"].(string)
	if !ok {
		return Claims{}, user.ErrUserUnauthorized
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return Claims{}, user.ErrUserUnauthorized
	}
	role, _ := mapClaims["role"].(string)
	c := Claims{UserID: userID, Role: user.Role(role)}
	if rawSchool, ok := mapClaims["school_id"].(string); ok {
		if schoolID, err := uuid.Parse(rawSchool); err == nil {
			c.SchoolID = schoolID
		}
	}
	return c, nil
}

func isEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}
