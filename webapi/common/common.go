// Package common holds the response envelope, the error mapping and the
// request binding shared by all webapi handlers.
package common

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/common"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/domain/user"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

// SuccessResponseJSON writes the standard success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// ProblemDetailsJSON writes an RFC 9457 problem response.
func ProblemDetailsJSON(c *fiber.Ctx, status int, title string, detail any) error {
	pd := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
	}
	if detail != nil {
		if s, ok := detail.(string); ok {
			pd.Detail = s
		} else {
			pd.Errors = detail
		}
	}
	pd.Instance = c.OriginalURL()
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(pd)
}

// DomainErrorJSON maps a domain error to its status and writes the problem
// response.
func DomainErrorJSON(c *fiber.Ctx, title string, err error) error {
	return ProblemDetailsJSON(c, ErrorToStatusCode(err), title, err.Error())
}

// ErrorToStatusCode maps domain errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	var short *account.InsufficientBalanceError
	switch {
	case errors.Is(err, student.ErrStudentNotFound),
		errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, account.ErrTransactionNotFound),
		errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, merchant.ErrMerchantNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &short):
		return fiber.StatusPaymentRequired
	case errors.Is(err, student.ErrCardNotActive),
		errors.Is(err, device.ErrDeviceUnavailable),
		errors.Is(err, merchant.ErrMerchantInactive),
		errors.Is(err, merchant.ErrNoMerchantBound):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, student.ErrCardUIDTaken),
		errors.Is(err, device.ErrDeviceIDTaken),
		errors.Is(err, account.ErrAlreadyReversed):
		return fiber.StatusConflict
	case errors.Is(err, account.ErrAmountMustBePositive),
		errors.Is(err, account.ErrDepositExceedsMaxBalance),
		errors.Is(err, account.ErrNotReversible),
		errors.Is(err, student.ErrSameCardUID),
		errors.Is(err, device.ErrUnsupportedDevice),
		errors.Is(err, common.ErrInvalidCurrencyCode),
		errors.Is(err, common.ErrUnsupportedCurrency),
		errors.Is(err, common.ErrCurrencyMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, user.ErrUserUnauthorized):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

var validate = validator.New()

// BindAndValidate parses the request body and validates it with
// go-playground/validator. On failure the error response is already written
// and the returned pointer is nil.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error()) //nolint:errcheck
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		ProblemDetailsJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error()) //nolint:errcheck
		return nil, err
	}
	return &input, nil
}
