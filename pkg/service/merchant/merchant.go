// Package merchant provides business logic for the selling points inside a
// school.
package merchant

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Service provides merchant registry operations.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	return &Service{
		uow:    deps.Uow,
		logger: deps.Logger.With("service", "merchant"),
	}
}

// Create registers a merchant.
func (s *Service) Create(ctx context.Context, name, typ string, schoolID uuid.UUID) (m *merchant.Merchant, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.MerchantRepository()
		if err != nil {
			return err
		}
		m, err = merchant.New(name, typ, schoolID)
		if err != nil {
			return err
		}
		return repo.Create(ctx, m)
	})
	if err != nil {
		s.logger.Error("merchant creation failed", "name", name, "error", err)
		return nil, err
	}
	s.logger.Info("merchant created", "id", m.ID, "name", name)
	return m, nil
}

// Get returns a merchant by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	repo, err := s.uow.MerchantRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// List returns all merchants of a school.
func (s *Service) List(ctx context.Context, schoolID uuid.UUID) ([]*merchant.Merchant, error) {
	repo, err := s.uow.MerchantRepository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, schoolID)
}

// SetActive enables or disables a merchant. Disabled merchants reject
// payments routed through their devices.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (m *merchant.Merchant, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.MerchantRepository()
		if err != nil {
			return err
		}
		m, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		m.Active = active
		m.UpdatedAt = time.Now()
		return repo.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("merchant active flag changed", "id", id, "active", active)
	return m, nil
}
