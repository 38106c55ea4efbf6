// Package payment implements the purchase, top-up and reversal flows.
//
// A purchase is one atomic unit of work: the conditional balance decrement,
// the transaction record, the merchant totals and the device scan counter
// commit or roll back together. Identical taps inside the idempotency window
// collapse into the first transaction instead of charging twice.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/account"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/events"
	"github.com/ineza/schoolpay/pkg/domain/merchant"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/eventbus"
	"github.com/ineza/schoolpay/pkg/notification"
	svcaccount "github.com/ineza/schoolpay/pkg/service/account"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Service implements the money-moving tap flows.
type Service struct {
	uow        repository.UnitOfWork
	bus        eventbus.Bus
	dispatcher *notification.Dispatcher
	window     time.Duration
	flight     singleflight.Group
	logger     *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps, dispatcher *notification.Dispatcher) *Service {
	window := deps.Config.Payment.IdempotencyWindow
	if window <= 0 {
		window = 5 * time.Second
	}
	return &Service{
		uow:        deps.Uow,
		bus:        deps.EventBus,
		dispatcher: dispatcher,
		window:     window,
		logger:     deps.Logger.With("service", "payment"),
	}
}

// Result is the outcome of a purchase or top-up.
type Result struct {
	Transaction  *account.Transaction
	Balance      money.Money
	Duplicate    bool
	Notification notification.Result
}

// ProcessTap charges a purchase for a tap on a payment-class device. The
// student and device have already been resolved and validated by the tap
// router.
func (s *Service) ProcessTap(
	ctx context.Context,
	st *student.Student,
	d *device.Device,
	amount money.Money,
	description string,
) (*Result, error) {
	logger := s.logger.With(
		"student_id", st.ID, "device_id", d.DeviceID, "amount", amount.String())

	if !amount.IsPositive() {
		return nil, account.ErrAmountMustBePositive
	}
	if d.MerchantID == uuid.Nil {
		return nil, merchant.ErrNoMerchantBound
	}

	// Concurrent identical taps on this instance share one execution; the
	// database window check below covers taps that landed on another
	// instance or just outside the flight.
	key := fmt.Sprintf("%s|%s|%s|%d", st.ID, d.MerchantID, d.ID, amount.Amount())
	var executed bool
	v, err, _ := s.flight.Do(key, func() (any, error) {
		executed = true
		return s.processTap(ctx, st, d, amount, description, logger)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*Result)
	// A caller that joined an in-flight execution got someone else's charge.
	if !executed && !res.Duplicate {
		joined := *res
		joined.Duplicate = true
		return &joined, nil
	}
	return res, nil
}

func (s *Service) processTap(
	ctx context.Context,
	st *student.Student,
	d *device.Device,
	amount money.Money,
	description string,
	logger *slog.Logger,
) (*Result, error) {
	now := time.Now()

	txRepo, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	dup, err := txRepo.FindRecentDuplicate(ctx, repository.DuplicateFilter{
		StudentID:  st.ID,
		MerchantID: d.MerchantID,
		DeviceID:   d.ID,
		Amount:     amount.Amount(),
		Since:      now.Add(-s.window),
	})
	if err != nil {
		return nil, err
	}
	if dup != nil {
		logger.Info("duplicate tap absorbed", "reference", dup.Reference)
		return &Result{
			Transaction: dup,
			Balance:     dup.BalanceAfter,
			Duplicate:   true,
		}, nil
	}

	var (
		tx    *account.Transaction
		acct  *account.Account
		merch *merchant.Merchant
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		merchRepo, err := uow.MerchantRepository()
		if err != nil {
			return err
		}
		merch, err = merchRepo.Get(ctx, d.MerchantID)
		if err != nil {
			return err
		}
		if !merch.Active {
			return merchant.ErrMerchantInactive
		}

		acct, err = svcaccount.GetOrCreate(ctx, uow, st.ID)
		if err != nil {
			return err
		}
		if !acct.Balance.IsSameCurrency(amount) {
			return fmt.Errorf("amount currency %s does not match account currency %s",
				amount.Currency(), acct.Currency())
		}

		acctRepo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		acct, err = acctRepo.DeductIfSufficient(ctx, acct.ID, amount.Amount())
		if err != nil {
			return err
		}

		before, err := acct.Balance.Add(amount)
		if err != nil {
			return err
		}
		tx, err = account.NewTransaction(
			account.TxPurchase, st.ID, acct.ID, amount, before, acct.Balance, now)
		if err != nil {
			return err
		}
		tx.MerchantID = merch.ID
		tx.DeviceID = d.ID
		tx.Description = description
		if tx.Description == "" {
			tx.Description = merch.Name
		}

		innerTxRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		if err = innerTxRepo.Create(ctx, tx); err != nil {
			return err
		}
		if err = merchRepo.RecordSale(ctx, merch.ID, amount.Amount()); err != nil {
			return err
		}
		devRepo, err := uow.DeviceRepository()
		if err != nil {
			return err
		}
		return devRepo.IncrementScanCount(ctx, d.ID)
	})

	var short *account.InsufficientBalanceError
	if errors.As(err, &short) {
		s.auditFailure(ctx, st.CardUID, d.DeviceID,
			fmt.Sprintf("insufficient balance: short %s", short.Shortfall))
		logger.Info("purchase rejected", "shortfall", short.Shortfall.String())
		return nil, err
	}
	if err != nil {
		logger.Error("purchase failed", "error", err)
		return nil, err
	}

	logger.Info("purchase completed",
		"reference", tx.Reference, "balance", acct.Balance.String())

	if emitErr := s.bus.Emit(ctx, events.PaymentCompleted{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		StudentID:     st.ID,
		StudentName:   st.FullName(),
		ParentPhone:   st.ParentPhone,
		MerchantID:    merch.ID,
		MerchantName:  merch.Name,
		DeviceID:      d.ID,
		Amount:        amount,
		NewBalance:    acct.Balance,
		OccurredAt:    now,
	}); emitErr != nil {
		logger.Error("emit payment event", "error", emitErr)
	}

	res := &Result{Transaction: tx, Balance: acct.Balance}
	if s.dispatcher != nil {
		res.Notification = s.dispatcher.SendPaymentAlert(
			ctx, st.ID, st.ParentPhone, st.FullName(), merch.Name,
			amount, acct.Balance)
	}
	return res, nil
}

// TopUp credits a student's wallet from the dashboard or a payment gateway
// callback.
func (s *Service) TopUp(
	ctx context.Context,
	studentID uuid.UUID,
	amount money.Money,
	description string,
) (*Result, error) {
	logger := s.logger.With("student_id", studentID, "amount", amount.String())

	var (
		tx   *account.Transaction
		acct *account.Account
		st   *student.Student
	)
	now := time.Now()
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		stRepo, err := uow.StudentRepository()
		if err != nil {
			return err
		}
		st, err = stRepo.Get(ctx, studentID)
		if err != nil {
			return err
		}
		acct, err = svcaccount.GetOrCreate(ctx, uow, studentID)
		if err != nil {
			return err
		}
		before, err := acct.Deposit(amount, now)
		if err != nil {
			return err
		}
		tx, err = account.NewTransaction(
			account.TxTopUp, studentID, acct.ID, amount, before, acct.Balance, now)
		if err != nil {
			return err
		}
		tx.Description = description

		acctRepo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		if err = acctRepo.Update(ctx, acct); err != nil {
			return err
		}
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		return txRepo.Create(ctx, tx)
	})
	if err != nil {
		logger.Error("top-up failed", "error", err)
		return nil, err
	}

	logger.Info("top-up completed",
		"reference", tx.Reference, "balance", acct.Balance.String())

	if emitErr := s.bus.Emit(ctx, events.TopUpCompleted{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		StudentID:     st.ID,
		StudentName:   st.FullName(),
		ParentPhone:   st.ParentPhone,
		Amount:        amount,
		NewBalance:    acct.Balance,
		OccurredAt:    now,
	}); emitErr != nil {
		logger.Error("emit top-up event", "error", emitErr)
	}

	res := &Result{Transaction: tx, Balance: acct.Balance}
	if s.dispatcher != nil {
		res.Notification = s.dispatcher.SendTopUpAlert(
			ctx, st.ID, st.ParentPhone, st.FullName(), amount, acct.Balance)
	}
	return res, nil
}

// Reverse undoes a completed purchase by issuing a compensating credit. The
// original transaction keeps its amounts and flips to reversed; reversing
// twice fails with ErrAlreadyReversed.
func (s *Service) Reverse(
	ctx context.Context,
	txID uuid.UUID,
	reason string,
) (*Result, error) {
	logger := s.logger.With("transaction_id", txID)

	var (
		original *account.Transaction
		reversal *account.Transaction
		acct     *account.Account
	)
	now := time.Now()
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		original, err = txRepo.Get(ctx, txID)
		if err != nil {
			return err
		}
		if err = original.ValidateReversible(); err != nil {
			return err
		}

		acctRepo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		acct, err = acctRepo.Get(ctx, original.AccountID)
		if err != nil {
			return err
		}
		before, err := acct.Deposit(original.Amount, now)
		if err != nil {
			return err
		}
		reversal, err = account.NewTransaction(
			account.TxReversal, original.StudentID, acct.ID,
			original.Amount, before, acct.Balance, now)
		if err != nil {
			return err
		}
		reversal.RelatedTxID = original.ID
		reversal.Description = reason

		if err = acctRepo.Update(ctx, acct); err != nil {
			return err
		}
		if err = txRepo.Create(ctx, reversal); err != nil {
			return err
		}
		// The conditional update guards against a concurrent reversal that
		// slipped past ValidateReversible.
		return txRepo.MarkReversed(ctx, original.ID, reversal.ID)
	})
	if err != nil {
		logger.Error("reversal failed", "error", err)
		return nil, err
	}

	logger.Info("purchase reversed",
		"reversal_reference", reversal.Reference, "balance", acct.Balance.String())

	if emitErr := s.bus.Emit(ctx, events.PaymentReversed{
		TransactionID: original.ID,
		ReversalID:    reversal.ID,
		StudentID:     original.StudentID,
		Amount:        original.Amount,
		NewBalance:    acct.Balance,
		Reason:        reason,
		OccurredAt:    now,
	}); emitErr != nil {
		logger.Error("emit reversal event", "error", emitErr)
	}

	return &Result{Transaction: reversal, Balance: acct.Balance}, nil
}

func (s *Service) auditFailure(ctx context.Context, cardUID, deviceID, reason string) {
	repo, err := s.uow.ScanFailureRepository()
	if err != nil {
		s.logger.Error("scan failure audit unavailable", "error", err)
		return
	}
	if err := repo.Create(ctx, &repository.ScanFailure{
		ID:        uuid.New(),
		CardUID:   cardUID,
		DeviceID:  deviceID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}); err != nil {
		s.logger.Error("scan failure audit write failed", "error", err)
	}
	if err := s.bus.Emit(ctx, events.ScanFailed{
		CardUID:    cardUID,
		DeviceID:   deviceID,
		Reason:     reason,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Error("emit scan failure event", "error", err)
	}
}
