// Package webapi provides HTTP handlers and API endpoints for the
// school-operations platform. It is organized into sub-packages per domain:
// - tap: the card-tap entry point used by terminals
// - student, device, merchant: registry management
// - payment: wallet top-ups, reversals and transaction history
// - attendance, report: read models over the day's activity
// - auth: authentication endpoints
package webapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ineza/schoolpay/pkg/app"
	"github.com/ineza/schoolpay/pkg/config"
	attendanceweb "github.com/ineza/schoolpay/webapi/attendance"
	authweb "github.com/ineza/schoolpay/webapi/auth"
	"github.com/ineza/schoolpay/webapi/common"
	deviceweb "github.com/ineza/schoolpay/webapi/device"
	merchantweb "github.com/ineza/schoolpay/webapi/merchant"
	paymentweb "github.com/ineza/schoolpay/webapi/payment"
	reportweb "github.com/ineza/schoolpay/webapi/report"
	studentweb "github.com/ineza/schoolpay/webapi/student"
	tapweb "github.com/ineza/schoolpay/webapi/tap"
)

// SetupApp initializes Fiber with custom configuration and registers all
// routes.
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(
				c, fiber.StatusInternalServerError, "Internal Server Error", err.Error())
		},
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Tighter limits on the hot and abusable paths, a general ceiling on
	// everything else. Order matters: fiber applies the first matching
	// prefix middleware.
	cfg := a.Config
	fiberApp.Use("/tap", rateLimiter(cfg.RateLimit.Tap))
	fiberApp.Use("/auth", rateLimiter(cfg.RateLimit.Auth))
	fiberApp.Use("/payments", rateLimiter(cfg.RateLimit.Payment))
	fiberApp.Use(rateLimiter(cfg.RateLimit.General))

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("SchoolPay API is running")
	})

	tapweb.Routes(fiberApp, a.TapService)
	authweb.Routes(fiberApp, a.AuthService, cfg)
	studentweb.Routes(fiberApp, a.StudentService, cfg)
	deviceweb.Routes(fiberApp, a.DeviceService, cfg)
	merchantweb.Routes(fiberApp, a.MerchantService, cfg)
	paymentweb.Routes(fiberApp, a.PaymentService, a.AccountService, cfg)
	attendanceweb.Routes(fiberApp, a.AttendanceService, cfg)
	reportweb.Routes(fiberApp, a.ReportService, cfg)
	return fiberApp
}

// rateLimiter builds a limiter for one tier. Uses X-Forwarded-For when
// behind a proxy, falling back to X-Real-IP and then the direct IP.
func rateLimiter(tier config.RateLimitTier) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        tier.MaxRequests,
		Expiration: tier.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c, fiber.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
		},
	})
}
