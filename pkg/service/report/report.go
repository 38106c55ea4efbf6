// Package report builds the daily operational summaries and their CSV
// exports.
package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Service builds reports over the transaction and attendance logs.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	return &Service{
		uow:    deps.Uow,
		logger: deps.Logger.With("service", "report"),
	}
}

// DailySummary aggregates one calendar day of money movement.
type DailySummary struct {
	Date           string
	PurchaseCount  int
	PurchaseTotal  money.Money
	TopUpCount     int
	TopUpTotal     money.Money
	ReversalCount  int
	ReversalTotal  money.Money
	CheckInCount   int
	UniqueStudents int
}

// Daily computes the summary for one calendar day.
func (s *Service) Daily(ctx context.Context, schoolID uuid.UUID, date string) (*DailySummary, error) {
	if _, err := time.Parse(account.DateLayout, date); err != nil {
		return nil, err
	}
	txRepo, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	txs, err := txRepo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	attRepo, err := s.uow.AttendanceRepository()
	if err != nil {
		return nil, err
	}
	records, err := attRepo.ListByDate(ctx, schoolID, date)
	if err != nil {
		return nil, err
	}

	sum := &DailySummary{
		Date:          date,
		PurchaseTotal: money.Zero(""),
		TopUpTotal:    money.Zero(""),
		ReversalTotal: money.Zero(""),
	}
	students := make(map[uuid.UUID]struct{})
	for _, tx := range txs {
		if tx.Status != account.StatusCompleted && tx.Status != account.StatusReversed {
			continue
		}
		switch tx.Type {
		case account.TxPurchase:
			sum.PurchaseCount++
			if sum.PurchaseTotal, err = sum.PurchaseTotal.Add(tx.Amount); err != nil {
				return nil, err
			}
		case account.TxTopUp:
			sum.TopUpCount++
			if sum.TopUpTotal, err = sum.TopUpTotal.Add(tx.Amount); err != nil {
				return nil, err
			}
		case account.TxReversal:
			sum.ReversalCount++
			if sum.ReversalTotal, err = sum.ReversalTotal.Add(tx.Amount); err != nil {
				return nil, err
			}
		}
	}
	sum.CheckInCount = len(records)
	for _, r := range records {
		students[r.StudentID] = struct{}{}
	}
	sum.UniqueStudents = len(students)
	return sum, nil
}

// WriteTransactionsCSV streams one day of transactions as CSV.
func (s *Service) WriteTransactionsCSV(ctx context.Context, w io.Writer, date string) error {
	if _, err := time.Parse(account.DateLayout, date); err != nil {
		return err
	}
	txRepo, err := s.uow.TransactionRepository()
	if err != nil {
		return err
	}
	txs, err := txRepo.ListByDate(ctx, date)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"reference", "type", "status", "student_id", "amount", "currency",
		"balance_before", "balance_after", "description", "created_at",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, tx := range txs {
		row := []string{
			tx.Reference,
			string(tx.Type),
			string(tx.Status),
			tx.StudentID.String(),
			strconv.FormatInt(tx.Amount.Amount(), 10),
			string(tx.Amount.Currency()),
			strconv.FormatInt(tx.BalanceBefore.Amount(), 10),
			strconv.FormatInt(tx.BalanceAfter.Amount(), 10),
			tx.Description,
			tx.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAttendanceCSV streams one day of check-ins as CSV.
func (s *Service) WriteAttendanceCSV(
	ctx context.Context,
	w io.Writer,
	schoolID uuid.UUID,
	date string,
) error {
	if _, err := time.Parse(account.DateLayout, date); err != nil {
		return err
	}
	attRepo, err := s.uow.AttendanceRepository()
	if err != nil {
		return err
	}
	records, err := attRepo.ListByDate(ctx, schoolID, date)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"record_id", "student_id", "location", "check_in_at",
		"notification_sent", "notification_error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		sent := "no"
		if r.NotificationSent {
			sent = "yes"
		}
		row := []string{
			r.ID.String(),
			r.StudentID.String(),
			r.Location,
			r.CheckInAt.Format(time.RFC3339),
			sent,
			r.NotificationError,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

