// Package account provides balance inquiries and transaction history for
// student wallets. Balance mutations live in the payment service; this
// service is read-mostly, plus the lazy account creation both flows share.
package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Service provides wallet read operations.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	return &Service{
		uow:    deps.Uow,
		logger: deps.Logger.With("service", "account"),
	}
}

// GetOrCreate returns the student's wallet, creating an empty one on first
// use. Must run inside the caller's unit of work so a first purchase and a
// first top-up cannot race two accounts into existence.
func GetOrCreate(
	ctx context.Context,
	uow repository.UnitOfWork,
	studentID uuid.UUID,
) (*account.Account, error) {
	repo, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	a, err := repo.GetByStudent(ctx, studentID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, account.ErrAccountNotFound) {
		return nil, err
	}
	a, err = account.New().WithStudentID(studentID).Build()
	if err != nil {
		return nil, err
	}
	if err = repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetByStudent returns the student's wallet.
func (s *Service) GetByStudent(ctx context.Context, studentID uuid.UUID) (*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.GetByStudent(ctx, studentID)
}

// Transactions returns the student's most recent transactions, newest first.
func (s *Service) Transactions(
	ctx context.Context,
	studentID uuid.UUID,
	limit int,
) ([]*account.Transaction, error) {
	repo, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return repo.ListByStudent(ctx, studentID, limit)
}

// TransactionByReference resolves a transaction by its printed reference.
func (s *Service) TransactionByReference(ctx context.Context, ref string) (*account.Transaction, error) {
	repo, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	return repo.GetByReference(ctx, ref)
}
