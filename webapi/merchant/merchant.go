// Package merchant exposes the merchant registry endpoints.
package merchant

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/middleware"
	merchantsvc "github.com/ineza/schoolpay/pkg/service/merchant"
	"github.com/ineza/schoolpay/webapi/common"
)

// CreateRequest registers a merchant.
type CreateRequest struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type"`
}

// SetActiveRequest flips the merchant's active flag.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// Routes registers the merchant endpoints.
func Routes(app *fiber.App, svc *merchantsvc.Service, cfg *config.App) {
	guard := []fiber.Handler{
		middleware.JwtProtected(cfg.Jwt),
		middleware.RequireRole(user.RoleSchool),
	}
	app.Post("/merchants", append(guard, Create(svc))...)
	app.Get("/merchants", append(guard, List(svc))...)
	app.Get("/merchants/:id", append(guard, Get(svc))...)
	app.Patch("/merchants/:id/active", append(guard, SetActive(svc))...)
}

// Create registers a merchant.
func Create(svc *merchantsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[CreateRequest](c)
		if input == nil {
			return err
		}
		m, err := svc.Create(c.Context(), input.Name, input.Type, claims.SchoolID)
		if err != nil {
			return common.DomainErrorJSON(c, "Merchant creation failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Merchant created", toDTO(m))
	}
}

// List returns the school's merchants.
func List(svc *merchantsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		merchants, err := svc.List(c.Context(), claims.SchoolID)
		if err != nil {
			return common.DomainErrorJSON(c, "Listing failed", err)
		}
		out := make([]dto, 0, len(merchants))
		for _, m := range merchants {
			out = append(out, toDTO(m))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Merchants", out)
	}
}

// Get returns one merchant with its running totals.
func Get(svc *merchantsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid merchant ID", err.Error())
		}
		m, err := svc.Get(c.Context(), id)
		if err != nil {
			return common.DomainErrorJSON(c, "Merchant lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Merchant", toDTO(m))
	}
}

// SetActive enables or disables a merchant.
func SetActive(svc *merchantsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid merchant ID", err.Error())
		}
		input, err := common.BindAndValidate[SetActiveRequest](c)
		if input == nil {
			return err
		}
		m, err := svc.SetActive(c.Context(), id, *input.Active)
		if err != nil {
			return common.DomainErrorJSON(c, "Update failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Merchant updated", toDTO(m))
	}
}

type dto struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Active     bool    `json:"active"`
	TotalSales float64 `json:"total_sales"`
	SalesCount int64   `json:"sales_count"`
}

func toDTO(m *merchant.Merchant) dto {
	return dto{
		ID:         m.ID.String(),
		Name:       m.Name,
		Type:       m.Type,
		Active:     m.Active,
		TotalSales: m.TotalSales.AmountFloat(),
		SalesCount: m.SalesCount,
	}
}
