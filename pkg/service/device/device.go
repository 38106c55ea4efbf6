// Package device provides business logic for the terminal registry.
package device

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Service provides device registration and lifecycle operations.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	return &Service{
		uow:    deps.Uow,
		logger: deps.Logger.With("service", "device"),
	}
}

// RegisterInput carries the fields needed to register a terminal.
type RegisterInput struct {
	DeviceID   string
	Type       device.Type
	SchoolID   uuid.UUID
	MerchantID uuid.UUID
	Location   string
}

// Register adds a terminal to the registry. Payment-class devices must name
// an existing, active merchant.
func (s *Service) Register(ctx context.Context, in RegisterInput) (d *device.Device, err error) {
	logger := s.logger.With("device_id", in.DeviceID, "type", in.Type)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.DeviceRepository()
		if err != nil {
			return err
		}
		if existing, err := repo.GetByDeviceID(ctx, in.DeviceID); err == nil && existing != nil {
			return device.ErrDeviceIDTaken
		}
		d, err = device.New(in.DeviceID, in.Type, in.SchoolID, in.Location)
		if err != nil {
			return err
		}
		if in.MerchantID != uuid.Nil {
			merchRepo, err := uow.MerchantRepository()
			if err != nil {
				return err
			}
			m, err := merchRepo.Get(ctx, in.MerchantID)
			if err != nil {
				return err
			}
			if !m.Active {
				return merchant.ErrMerchantInactive
			}
			if err = d.BindMerchant(m.ID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, d)
	})
	if err != nil {
		logger.Error("device registration failed", "error", err)
		return nil, err
	}
	logger.Info("device registered", "id", d.ID)
	return d, nil
}

// Get returns a device by its registry ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*device.Device, error) {
	repo, err := s.uow.DeviceRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// GetByDeviceID returns a device by its printed terminal identifier.
func (s *Service) GetByDeviceID(ctx context.Context, deviceID string) (*device.Device, error) {
	repo, err := s.uow.DeviceRepository()
	if err != nil {
		return nil, err
	}
	return repo.GetByDeviceID(ctx, deviceID)
}

// List returns all devices of a school.
func (s *Service) List(ctx context.Context, schoolID uuid.UUID) ([]*device.Device, error) {
	repo, err := s.uow.DeviceRepository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, schoolID)
}

// Heartbeat records a status report from a terminal.
func (s *Service) Heartbeat(ctx context.Context, deviceID string, status device.Status) (d *device.Device, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.DeviceRepository()
		if err != nil {
			return err
		}
		d, err = repo.GetByDeviceID(ctx, deviceID)
		if err != nil {
			return err
		}
		d.Heartbeat(status, time.Now())
		return repo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// BindMerchant re-points a payment-class device at another merchant.
func (s *Service) BindMerchant(ctx context.Context, id, merchantID uuid.UUID) (d *device.Device, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.DeviceRepository()
		if err != nil {
			return err
		}
		merchRepo, err := uow.MerchantRepository()
		if err != nil {
			return err
		}
		d, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		m, err := merchRepo.Get(ctx, merchantID)
		if err != nil {
			return err
		}
		if !m.Active {
			return merchant.ErrMerchantInactive
		}
		if err = d.BindMerchant(m.ID); err != nil {
			return err
		}
		return repo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("merchant bound", "device_id", id, "merchant_id", merchantID)
	return d, nil
}

// Decommission marks a device inactive so its taps are rejected.
func (s *Service) Decommission(ctx context.Context, id uuid.UUID) (d *device.Device, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.DeviceRepository()
		if err != nil {
			return err
		}
		d, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		d.Status = device.StatusInactive
		d.UpdatedAt = time.Now()
		return repo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("device decommissioned", "device_id", id)
	return d, nil
}
