// Package device exposes the terminal registry endpoints. Heartbeats come
// from the terminals themselves; everything else is dashboard traffic.
package device

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/middleware"
	devicesvc "github.com/ineza/schoolpay/pkg/service/device"
	"github.com/ineza/schoolpay/webapi/common"
)

// RegisterRequest adds a terminal to the registry.
type RegisterRequest struct {
	DeviceID   string `json:"device_id" validate:"required"`
	Type       string `json:"type" validate:"required"`
	MerchantID string `json:"merchant_id" validate:"omitempty,uuid"`
	Location   string `json:"location"`
}

// HeartbeatRequest is a status report from a terminal.
type HeartbeatRequest struct {
	Status string `json:"status" validate:"required"`
}

// BindMerchantRequest re-points a payment device at a merchant.
type BindMerchantRequest struct {
	MerchantID string `json:"merchant_id" validate:"required,uuid"`
}

// Routes registers the device endpoints.
func Routes(app *fiber.App, svc *devicesvc.Service, cfg *config.App) {
	guard := []fiber.Handler{
		middleware.JwtProtected(cfg.Jwt),
		middleware.RequireRole(user.RoleSchool),
	}
	app.Post("/devices", append(guard, Register(svc))...)
	app.Get("/devices", append(guard, List(svc))...)
	app.Put("/devices/:id/merchant", append(guard, BindMerchant(svc))...)
	app.Delete("/devices/:id", append(guard, Decommission(svc))...)

	// Terminals report without a dashboard token.
	app.Post("/devices/:device_id/heartbeat", Heartbeat(svc))
}

// Register adds a terminal.
func Register(svc *devicesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[RegisterRequest](c)
		if input == nil {
			return err
		}
		merchantID := uuid.Nil
		if input.MerchantID != "" {
			merchantID, err = uuid.Parse(input.MerchantID)
			if err != nil {
				return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
					"Invalid merchant ID", err.Error())
			}
		}
		d, err := svc.Register(c.Context(), devicesvc.RegisterInput{
			DeviceID:   input.DeviceID,
			Type:       device.Type(input.Type),
			SchoolID:   claims.SchoolID,
			MerchantID: merchantID,
			Location:   input.Location,
		})
		if err != nil {
			return common.DomainErrorJSON(c, "Device registration failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Device registered", toDTO(d))
	}
}

// List returns the school's devices.
func List(svc *devicesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		devices, err := svc.List(c.Context(), claims.SchoolID)
		if err != nil {
			return common.DomainErrorJSON(c, "Listing failed", err)
		}
		out := make([]dto, 0, len(devices))
		for _, d := range devices {
			out = append(out, toDTO(d))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Devices", out)
	}
}

// Heartbeat records a terminal status report.
func Heartbeat(svc *devicesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[HeartbeatRequest](c)
		if input == nil {
			return err
		}
		status, err := device.ParseStatus(input.Status)
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid status", err.Error())
		}
		d, err := svc.Heartbeat(c.Context(), c.Params("device_id"), status)
		if err != nil {
			return common.DomainErrorJSON(c, "Heartbeat failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Heartbeat recorded", toDTO(d))
	}
}

// BindMerchant re-points a payment device.
func BindMerchant(svc *devicesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid device ID", err.Error())
		}
		input, err := common.BindAndValidate[BindMerchantRequest](c)
		if input == nil {
			return err
		}
		merchantID, err := uuid.Parse(input.MerchantID)
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid merchant ID", err.Error())
		}
		d, err := svc.BindMerchant(c.Context(), id, merchantID)
		if err != nil {
			return common.DomainErrorJSON(c, "Merchant binding failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Merchant bound", toDTO(d))
	}
}

// Decommission retires a terminal.
func Decommission(svc *devicesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid device ID", err.Error())
		}
		d, err := svc.Decommission(c.Context(), id)
		if err != nil {
			return common.DomainErrorJSON(c, "Decommission failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Device decommissioned", toDTO(d))
	}
}

type dto struct {
	ID         string `json:"id"`
	DeviceID   string `json:"device_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	MerchantID string `json:"merchant_id,omitempty"`
	Location   string `json:"location"`
	ScanCount  int64  `json:"scan_count"`
	LastSeenAt string `json:"last_seen_at,omitempty"`
}

func toDTO(d *device.Device) dto {
	out := dto{
		ID:        d.ID.String(),
		DeviceID:  d.DeviceID,
		Type:      string(d.Type),
		Status:    d.Status.String(),
		Location:  d.Location,
		ScanCount: d.ScanCount,
	}
	if d.MerchantID != uuid.Nil {
		out.MerchantID = d.MerchantID.String()
	}
	if !d.LastSeenAt.IsZero() {
		out.LastSeenAt = d.LastSeenAt.Format(time.RFC3339)
	}
	return out
}
