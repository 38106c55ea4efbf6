// Package tap exposes the terminal-facing endpoints. Terminals are simple
// embedded clients: they get one flat response shape and uniform rejections.
package tap

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ineza/schoolpay/pkg/currency"
	"github.com/ineza/schoolpay/pkg/domain/money"
	tapsvc "github.com/ineza/schoolpay/pkg/service/tap"
	"github.com/ineza/schoolpay/webapi/common"
)

// Request is one tap as posted by a terminal.
type Request struct {
	CardUID     string  `json:"card_uid" validate:"required"`
	DeviceID    string  `json:"device_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
	Location    string  `json:"location" validate:"omitempty,max=128"`
	Description string  `json:"description" validate:"omitempty,max=255"`
}

// ValidateRequest is the pre-check posted before showing the amount screen.
type ValidateRequest struct {
	CardUID string `json:"card_uid" validate:"required"`
}

// Routes registers the terminal endpoints.
func Routes(app *fiber.App, svc *tapsvc.Service) {
	app.Post("/tap", Handle(svc))
	app.Post("/tap/validate", Validate(svc))
}

// Handle routes one tap.
func Handle(svc *tapsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[Request](c)
		if input == nil {
			return err
		}
		amount, err := money.New(input.Amount, currency.Code(input.Currency))
		if err != nil {
			return common.DomainErrorJSON(c, "Invalid amount", err)
		}
		out, err := svc.Route(c.Context(), tapsvc.Input{
			CardUID:     input.CardUID,
			DeviceID:    input.DeviceID,
			Amount:      amount,
			Location:    input.Location,
			Description: input.Description,
		})
		if err != nil {
			return common.DomainErrorJSON(c, "Tap rejected", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Tap accepted", toResponse(out))
	}
}

// Validate answers the card pre-check.
func Validate(svc *tapsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[ValidateRequest](c)
		if input == nil {
			return err
		}
		if err := svc.ValidateCard(c.Context(), input.CardUID); err != nil {
			return common.DomainErrorJSON(c, "Card rejected", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Card active", nil)
	}
}

type response struct {
	Kind        string  `json:"kind"`
	StudentName string  `json:"student_name"`
	Reference   string  `json:"reference,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Balance     float64 `json:"balance,omitempty"`
	Duplicate   bool    `json:"duplicate,omitempty"`
	RecordID    string  `json:"record_id,omitempty"`
	CheckInAt   string  `json:"check_in_at,omitempty"`
	SMSSent     bool    `json:"sms_sent"`
}

func toResponse(out *tapsvc.Outcome) response {
	r := response{
		Kind:        string(out.Kind),
		StudentName: out.Student.FullName(),
	}
	switch out.Kind {
	case tapsvc.KindPayment:
		r.Reference = out.Payment.Transaction.Reference
		r.Amount = out.Payment.Transaction.Amount.AmountFloat()
		r.Balance = out.Payment.Balance.AmountFloat()
		r.Duplicate = out.Payment.Duplicate
		r.SMSSent = out.Payment.Notification.Success
	case tapsvc.KindAttendance:
		r.RecordID = out.Attendance.Record.ID.String()
		r.CheckInAt = out.Attendance.Record.CheckInAt.Format(time.RFC3339)
		r.SMSSent = out.Attendance.Notification.Success
	}
	return r
}
