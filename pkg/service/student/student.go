// Package student provides business logic for enrollment and the card
// lifecycle. Card state transitions invalidate the card-status cache so the
// next tap sees the new state immediately.
package student

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/cache"
	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Service provides enrollment and card lifecycle operations.
type Service struct {
	uow       repository.UnitOfWork
	cardCache cache.CardStatusCache
	logger    *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	return &Service{
		uow:       deps.Uow,
		cardCache: deps.CardCache,
		logger:    deps.Logger.With("service", "student"),
	}
}

// EnrollInput carries the fields needed to enroll a student.
type EnrollInput struct {
	SchoolID    uuid.UUID
	FirstName   string
	LastName    string
	ParentPhone string
	CardUID     string
}

// Enroll registers a student and binds their card. The card UID must not be
// assigned to any other student, active or not.
func (s *Service) Enroll(ctx context.Context, in EnrollInput) (st *student.Student, err error) {
	logger := s.logger.With("school_id", in.SchoolID, "card_uid", in.CardUID)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StudentRepository()
		if err != nil {
			return err
		}
		if existing, err := repo.GetByCardUID(ctx, in.CardUID); err == nil && existing != nil {
			return student.ErrCardUIDTaken
		}
		st, err = student.New().
			WithSchoolID(in.SchoolID).
			WithName(in.FirstName, in.LastName).
			WithParentPhone(in.ParentPhone).
			WithCardUID(in.CardUID).
			Build()
		if err != nil {
			return err
		}
		return repo.Create(ctx, st)
	})
	if err != nil {
		logger.Error("enroll failed", "error", err)
		return nil, err
	}
	logger.Info("student enrolled", "student_id", st.ID)
	return st, nil
}

// Get returns a student by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	repo, err := s.uow.StudentRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// GetByCardUID returns the student bound to a card UID.
func (s *Service) GetByCardUID(ctx context.Context, cardUID string) (*student.Student, error) {
	repo, err := s.uow.StudentRepository()
	if err != nil {
		return nil, err
	}
	return repo.GetByCardUID(ctx, cardUID)
}

// List returns all students of a school.
func (s *Service) List(ctx context.Context, schoolID uuid.UUID) ([]*student.Student, error) {
	repo, err := s.uow.StudentRepository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, schoolID)
}

// UpdateInput carries the mutable profile fields.
type UpdateInput struct {
	FirstName   string
	LastName    string
	ParentPhone string
}

// Update changes a student's profile fields. Card state is managed through
// the lifecycle operations, never here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (st *student.Student, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StudentRepository()
		if err != nil {
			return err
		}
		st, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if in.FirstName != "" {
			st.FirstName = in.FirstName
		}
		if in.LastName != "" {
			st.LastName = in.LastName
		}
		if in.ParentPhone != "" {
			st.ParentPhone = in.ParentPhone
		}
		return repo.Update(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ReportLost marks a student's card lost and evicts it from the cache.
func (s *Service) ReportLost(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	return s.transition(ctx, id, "report_lost", func(st *student.Student) error {
		st.ReportLost()
		return nil
	})
}

// ReportStolen marks a student's card stolen and evicts it from the cache.
func (s *Service) ReportStolen(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	return s.transition(ctx, id, "report_stolen", func(st *student.Student) error {
		st.ReportStolen()
		return nil
	})
}

// DeactivateCard disables a card without touching the student record.
func (s *Service) DeactivateCard(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	return s.transition(ctx, id, "deactivate", func(st *student.Student) error {
		st.Deactivate()
		return nil
	})
}

// ReactivateCard re-enables a lost, stolen or deactivated card.
func (s *Service) ReactivateCard(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	return s.transition(ctx, id, "reactivate", func(st *student.Student) error {
		st.Reactivate()
		return nil
	})
}

// ReplaceCard binds a new card UID, keeping the old UID for audit. The old
// UID stops resolving and is evicted from the cache.
func (s *Service) ReplaceCard(ctx context.Context, id uuid.UUID, newUID string) (st *student.Student, err error) {
	var oldUID string
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StudentRepository()
		if err != nil {
			return err
		}
		st, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if newUID == st.CardUID {
			return student.ErrSameCardUID
		}
		if existing, err := repo.GetByCardUID(ctx, newUID); err == nil && existing != nil {
			return student.ErrCardUIDTaken
		}
		oldUID = st.CardUID
		if err = st.ReplaceCard(newUID); err != nil {
			return err
		}
		return repo.Update(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	s.evict(ctx, oldUID)
	s.evict(ctx, newUID)
	s.logger.Info("card replaced",
		"student_id", id, "old_card_uid", oldUID, "new_card_uid", newUID)
	return st, nil
}

// Deactivate soft-deletes the student record. History is kept.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	return s.transition(ctx, id, "deactivate_student", func(st *student.Student) error {
		st.Active = false
		return nil
	})
}

func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	op string,
	apply func(*student.Student) error,
) (st *student.Student, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StudentRepository()
		if err != nil {
			return err
		}
		st, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err = apply(st); err != nil {
			return err
		}
		return repo.Update(ctx, st)
	})
	if err != nil {
		s.logger.Error("card transition failed", "op", op, "student_id", id, "error", err)
		return nil, err
	}
	s.evict(ctx, st.CardUID)
	s.logger.Info("card transition applied",
		"op", op, "student_id", id, "card_status", st.CardStatus.String())
	return st, nil
}

func (s *Service) evict(ctx context.Context, cardUID string) {
	if s.cardCache == nil || cardUID == "" {
		return
	}
	if err := s.cardCache.Invalidate(ctx, cardUID); err != nil {
		s.logger.Warn("card cache invalidation failed", "card_uid", cardUID, "error", err)
	}
}
