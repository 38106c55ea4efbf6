// Package student exposes the enrollment and card lifecycle endpoints.
package student

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/pkg/middleware"
	studentsvc "github.com/ineza/schoolpay/pkg/service/student"
	"github.com/ineza/schoolpay/webapi/common"
)

// EnrollRequest enrolls a student and binds their card.
type EnrollRequest struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	ParentPhone string `json:"parent_phone" validate:"omitempty,e164"`
	CardUID     string `json:"card_uid" validate:"required"`
}

// UpdateRequest changes profile fields.
type UpdateRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	ParentPhone string `json:"parent_phone" validate:"omitempty,e164"`
}

// ReplaceCardRequest binds a new card UID.
type ReplaceCardRequest struct {
	CardUID string `json:"card_uid" validate:"required"`
}

// Routes registers the student endpoints. All of them require a school or
// admin token.
func Routes(app *fiber.App, svc *studentsvc.Service, cfg *config.App) {
	guard := []fiber.Handler{
		middleware.JwtProtected(cfg.Jwt),
		middleware.RequireRole(user.RoleSchool),
	}
	app.Post("/students", append(guard, Enroll(svc))...)
	app.Get("/students", append(guard, List(svc))...)
	app.Get("/students/:id", append(guard, Get(svc))...)
	app.Put("/students/:id", append(guard, Update(svc))...)
	app.Delete("/students/:id", append(guard, Deactivate(svc))...)
	app.Post("/students/:id/card/report-lost", append(guard, lifecycle(svc.ReportLost))...)
	app.Post("/students/:id/card/report-stolen", append(guard, lifecycle(svc.ReportStolen))...)
	app.Post("/students/:id/card/deactivate", append(guard, lifecycle(svc.DeactivateCard))...)
	app.Post("/students/:id/card/reactivate", append(guard, lifecycle(svc.ReactivateCard))...)
	app.Post("/students/:id/card/replace", append(guard, ReplaceCard(svc))...)
}

// Enroll registers a student.
func Enroll(svc *studentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[EnrollRequest](c)
		if input == nil {
			return err
		}
		st, err := svc.Enroll(c.Context(), studentsvc.EnrollInput{
			SchoolID:    claims.SchoolID,
			FirstName:   input.FirstName,
			LastName:    input.LastName,
			ParentPhone: input.ParentPhone,
			CardUID:     input.CardUID,
		})
		if err != nil {
			return common.DomainErrorJSON(c, "Enrollment failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Student enrolled", toDTO(st))
	}
}

// List returns the school's students.
func List(svc *studentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.CurrentClaims(c)
		if err != nil {
			return common.DomainErrorJSON(c, "Unauthorized", err)
		}
		students, err := svc.List(c.Context(), claims.SchoolID)
		if err != nil {
			return common.DomainErrorJSON(c, "Listing failed", err)
		}
		out := make([]dto, 0, len(students))
		for _, st := range students {
			out = append(out, toDTO(st))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Students", out)
	}
}

// Get returns one student.
func Get(svc *studentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		st, err := svc.Get(c.Context(), id)
		if err != nil {
			return common.DomainErrorJSON(c, "Student lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Student", toDTO(st))
	}
}

// Update changes profile fields.
func Update(svc *studentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		input, err := common.BindAndValidate[UpdateRequest](c)
		if input == nil {
			return err
		}
		st, err := svc.Update(c.Context(), id, studentsvc.UpdateInput{
			FirstName:   input.FirstName,
			LastName:    input.LastName,
			ParentPhone: input.ParentPhone,
		})
		if err != nil {
			return common.DomainErrorJSON(c, "Update failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Student updated", toDTO(st))
	}
}

// Deactivate soft-deletes the student.
func Deactivate(svc *studentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		st, err := svc.Deactivate(c.Context(), id)
		if err != nil {
			return common.DomainErrorJSON(c, "Deactivation failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Student deactivated", toDTO(st))
	}
}

// ReplaceCard binds a new card UID.
func ReplaceCard(svc *studentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		input, err := common.BindAndValidate[ReplaceCardRequest](c)
		if input == nil {
			return err
		}
		st, err := svc.ReplaceCard(c.Context(), id, input.CardUID)
		if err != nil {
			return common.DomainErrorJSON(c, "Card replacement failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Card replaced", toDTO(st))
	}
}

func lifecycle(op func(ctx context.Context, id uuid.UUID) (*student.Student, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Invalid student ID", err.Error())
		}
		st, err := op(c.Context(), id)
		if err != nil {
			return common.DomainErrorJSON(c, "Card transition failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Card updated", toDTO(st))
	}
}

type dto struct {
	ID              string `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ParentPhone     string `json:"parent_phone"`
	CardUID         string `json:"card_uid"`
	PreviousCardUID string `json:"previous_card_uid,omitempty"`
	CardStatus      string `json:"card_status"`
	Active          bool   `json:"active"`
	CreatedAt       string `json:"created_at"`
}

func toDTO(st *student.Student) dto {
	return dto{
		ID:              st.ID.String(),
		FirstName:       st.FirstName,
		LastName:        st.LastName,
		ParentPhone:     st.ParentPhone,
		CardUID:         st.CardUID,
		PreviousCardUID: st.PreviousCardUID,
		CardStatus:      st.CardStatus.String(),
		Active:          st.Active,
		CreatedAt:       st.CreatedAt.Format(time.RFC3339),
	}
}
