// Package payment exposes the wallet endpoints: balances, history, top-ups
// and reversals.
package payment

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/currency"
	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/middleware"
	accountsvc "github.com/ineza/schoolpay/pkg/service/account"
	paymentsvc "github.com/ineza/schoolpay/pkg/service/payment"
	"github.com/ineza/schoolpay/webapi/common"
)

// TopUpRequest credits a student's wallet.
type TopUpRequest struct {
	StudentID   string  `json:"student_id" validate:"required,uuid"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
	Description string  `json:"description"`
}

// ReverseRequest undoes a completed purchase.
type ReverseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Routes registers the wallet endpoints.
func Routes(
	app *fiber.App,
	payments *paymentsvc.Service,
	accounts *accountsvc.Service,
	cfg *config.App,
) {
	schoolGuard := []fiber.Handler{
		middleware.JwtProtected(cfg.Jwt),
		middleware.RequireRole(user.RoleSchool),
	}
	readGuard := []fiber.Handler{
		middleware.JwtProtected(cfg.Jwt),
		middleware.RequireRole(user.RoleSchool, user.RoleParent),
	}
	app.Post("/payments/topup", append(schoolGuard, TopUp(payments))...)
	app.Post("/payments/:id/reverse", append(schoolGuard, Reverse(payments))...)
	app.Get("/payments/:ref", append(readGuard, GetByReference(accounts))...)
	app.Get("/students/:id/balance", append(readGuard, GetBalance(accounts))...)
	app.Get("/students/:id/transactions", append(readGuard, GetTransactions(accounts))...)
}

// TopUp credits a wallet.
func TopUp(svc *paymentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[TopUpRequest](c)
		if input == nil {
			return err
		}
		studentID, err := uuid.Parse(input.StudentID)
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		amount, err := money.New(input.Amount, currency.Code(input.Currency))
		if err != nil {
			return common.DomainErrorJSON(c, "Invalid amount", err)
		}
		res, err := svc.TopUp(c.Context(), studentID, amount, input.Description)
		if err != nil {
			return common.DomainErrorJSON(c, "Top-up failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Top-up completed", fiber.Map{
			"reference": res.Transaction.Reference,
			"balance":   res.Balance.AmountFloat(),
			"sms_sent":  res.Notification.Success,
		})
	}
}

// Reverse undoes a completed purchase.
func Reverse(svc *paymentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		txID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid transaction ID", err.Error())
		}
		input, err := common.BindAndValidate[ReverseRequest](c)
		if input == nil {
			return err
		}
		res, err := svc.Reverse(c.Context(), txID, input.Reason)
		if err != nil {
			return common.DomainErrorJSON(c, "Reversal failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Purchase reversed", fiber.Map{
			"reversal_reference": res.Transaction.Reference,
			"balance":            res.Balance.AmountFloat(),
		})
	}
}

// GetByReference looks up a transaction by its human-readable reference.
func GetByReference(svc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx, err := svc.TransactionByReference(c.Context(), c.Params("ref"))
		if err != nil {
			return common.DomainErrorJSON(c, "Transaction lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transaction", toTxDTO(tx))
	}
}

// GetBalance returns a student's wallet balance.
func GetBalance(svc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		a, err := svc.GetByStudent(c.Context(), studentID)
		if err != nil {
			return common.DomainErrorJSON(c, "Balance lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Balance", fiber.Map{
			"balance":           a.Balance.AmountFloat(),
			"currency":          a.Currency(),
			"total_deposits":    a.TotalDeposits.AmountFloat(),
			"total_withdrawals": a.TotalWithdrawals.AmountFloat(),
			"last_topup_at":     a.LastTopUpAt,
		})
	}
}

// GetTransactions lists a student's recent transactions.
func GetTransactions(svc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		txs, err := svc.Transactions(c.Context(), studentID, c.QueryInt("limit"))
		if err != nil {
			return common.DomainErrorJSON(c, "Transaction lookup failed", err)
		}
		out := make([]txDTO, 0, len(txs))
		for _, tx := range txs {
			out = append(out, toTxDTO(tx))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions", out)
	}
}

type txDTO struct {
	ID            string  `json:"id"`
	Reference     string  `json:"reference"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	Description   string  `json:"description,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toTxDTO(tx *account.Transaction) txDTO {
	return txDTO{
		ID:            tx.ID.String(),
		Reference:     tx.Reference,
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		Amount:        tx.Amount.AmountFloat(),
		Currency:      string(tx.Amount.Currency()),
		BalanceBefore: tx.BalanceBefore.AmountFloat(),
		BalanceAfter:  tx.BalanceAfter.AmountFloat(),
		Description:   tx.Description,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
}
