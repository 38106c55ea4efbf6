// Package auth exposes the login and user management endpoints.
package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/middleware"
	authsvc "github.com/ineza/schoolpay/pkg/service/auth"
	"github.com/ineza/schoolpay/webapi/common"
)

// LoginInput carries the credentials. Identity may be a username or email.
type LoginInput struct {
	Identity string `json:"identity" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput creates a dashboard user. Admin only.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin school parent"`
	SchoolID string `json:"school_id" validate:"omitempty,uuid"`
}

// Routes registers the auth endpoints.
func Routes(app *fiber.App, svc *authsvc.Service, cfg *config.App) {
	app.Post("/auth/login", Login(svc))
	app.Post("/auth/register",
		middleware.JwtProtected(cfg.Jwt),
		middleware.RequireRole(), // admin only
		Register(svc))
}

// Login authenticates and returns a JWT.
func Login(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err
		}
		u, err := svc.Login(c.Context(), input.Identity, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusUnauthorized,
				"Invalid identity or password", "identity or password is incorrect")
		}
		token, err := svc.GenerateToken(u)
		if err != nil {
			return common.DomainErrorJSON(c, "Token generation failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Login successful",
			fiber.Map{"token": token, "role": u.Role})
	}
}

// Register creates a dashboard user.
func Register(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RegisterInput](c)
		if input == nil {
			return err
		}
		schoolID := uuid.Nil
		if input.SchoolID != "" {
			schoolID, err = uuid.Parse(input.SchoolID)
			if err != nil {
				return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
					"Invalid school ID", err.Error())
			}
		}
		u, err := svc.Register(c.Context(),
			input.Username, input.Email, input.Password,
			user.Role(input.Role), schoolID)
		if err != nil {
			return common.DomainErrorJSON(c, "Registration failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "User created", u)
	}
}
