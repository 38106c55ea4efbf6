// Package attendance exposes read endpoints over the check-in log.
package attendance

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/attendance"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/middleware"
	attendancesvc "github.com/ineza/schoolpay/pkg/service/attendance"
	"github.com/ineza/schoolpay/webapi/common"
)

// Routes registers the attendance endpoints.
func Routes(app *fiber.App, svc *attendancesvc.Service, cfg *config.App) {
	guard := []fiber.Handler{
		middleware.JwtProtected(cfg.Jwt),
		middleware.RequireRole(user.RoleSchool, user.RoleParent),
	}
	app.Get("/attendance", append(guard, ListByDate(svc))...)
	app.Get("/students/:id/attendance", append(guard, ListByStudent(svc))...)
}

// ListByDate returns a school's check-ins for one calendar date. The school
// is taken from the caller's token, the date from the query string and
// defaults to today.
func ListByDate(svc *attendancesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		date := c.Query("date")
		if date == "" {
			date = time.Now().Format(attendance.DateLayout)
		}
		records, err := svc.ListByDate(c.Context(), claims.SchoolID, date)
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Attendance lookup failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Attendance", toDTOs(records))
	}
}

// ListByStudent returns a student's recent check-ins, newest first.
func ListByStudent(svc *attendancesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		records, err := svc.ListByStudent(c.Context(), studentID, c.QueryInt("limit"))
		if err != nil {
			return common.DomainErrorJSON(c, "Attendance lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Attendance", toDTOs(records))
	}
}

type recordDTO struct {
	ID               string `json:"id"`
	StudentID        string `json:"student_id"`
	DeviceID         string `json:"device_id"`
	Location         string `json:"location,omitempty"`
	CheckInAt        string `json:"check_in_at"`
	Date             string `json:"date"`
	NotificationSent bool   `json:"notification_sent"`
}

func toDTOs(records []*attendance.Record) []recordDTO {
	out := make([]recordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, recordDTO{
			ID:               r.ID.String(),
			StudentID:        r.StudentID.String(),
			DeviceID:         r.DeviceID.String(),
			Location:         r.Location,
			CheckInAt:        r.CheckInAt.Format(time.RFC3339),
			Date:             r.Date,
			NotificationSent: r.NotificationSent,
		})
	}
	return out
}
