// Package report exposes the daily reporting endpoints, including CSV
// exports for back-office reconciliation.
package report

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/middleware"
	reportsvc "github.com/ineza/schoolpay/pkg/service/report"
	"github.com/ineza/schoolpay/webapi/common"
)

// Routes registers the reporting endpoints.
func Routes(app *fiber.App, svc *reportsvc.Service, cfg *config.App) {
	guard := []fiber.Handler{
		middleware.JwtProtected(cfg.Jwt),
		middleware.RequireRole(user.RoleSchool),
	}
	app.Get("/reports/daily", append(guard, Daily(svc))...)
	app.Get("/reports/transactions.csv", append(guard, TransactionsCSV(svc))...)
	app.Get("/reports/attendance.csv", append(guard, AttendanceCSV(svc))...)
}

func queryDate(c *fiber.Ctx) string {
	if date := c.Query("date"); date != "" {
		return date
	}
	return time.Now().Format(account.DateLayout)
}

// Daily returns the aggregated summary for one calendar day.
func Daily(svc *reportsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		summary, err := svc.Daily(c.Context(), claims.SchoolID, queryDate(c))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Report failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Daily summary", fiber.Map{
			"date":            summary.Date,
			"purchase_count":  summary.PurchaseCount,
			"purchase_total":  summary.PurchaseTotal.AmountFloat(),
			"topup_count":     summary.TopUpCount,
			"topup_total":     summary.TopUpTotal.AmountFloat(),
			"reversal_count":  summary.ReversalCount,
			"reversal_total":  summary.ReversalTotal.AmountFloat(),
			"check_in_count":  summary.CheckInCount,
			"unique_students": summary.UniqueStudents,
		})
	}
}

// TransactionsCSV streams the day's transaction log as CSV.
func TransactionsCSV(svc *reportsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := svc.WriteTransactionsCSV(c.Context(), &buf, queryDate(c)); err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Export failed", err.Error())
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
		return c.Send(buf.Bytes())
	}
}

// AttendanceCSV streams the day's check-ins for the caller's school as CSV.
func AttendanceCSV(svc *reportsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		var buf bytes.Buffer
		if err := svc.WriteAttendanceCSV(c.Context(), &buf, claims.SchoolID, queryDate(c)); err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Export failed", err.Error())
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="attendance.csv"`)
		return c.Send(buf.Bytes())
	}
}
