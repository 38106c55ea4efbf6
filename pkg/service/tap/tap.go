// Package tap implements the card-tap router. Every tap goes through the
// same gate: resolve the card, resolve the device, then dispatch on the
// device class to the payment or attendance flow.
//
// Rejections are deliberately uniform. A terminal is told only that the card
// is not active, never whether it is lost, stolen, deactivated or unknown.
package tap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/cache"
	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/events"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/eventbus"
	attendanceservice "github.com/ineza/schoolpay/pkg/service/attendance"
	paymentservice "github.com/ineza/schoolpay/pkg/service/payment"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Kind tells the terminal which flow handled the tap.
type Kind string

const (
	KindPayment    Kind = "payment"
	KindAttendance Kind = "attendance"
)

// Input is one tap as reported by a terminal.
type Input struct {
	CardUID  string
	DeviceID string
	// Amount is required for payment-class devices and ignored for
	// attendance-class ones.
	Amount money.Money
	// Location overrides the device's registered location on attendance
	// records when the terminal reports one.
	Location    string
	Description string
}

// Outcome is the routed result handed back to the terminal.
type Outcome struct {
	Kind       Kind
	Student    *student.Student
	Payment    *paymentservice.Result
	Attendance *attendanceservice.Result
}

// Service routes taps to the flow the device class selects.
type Service struct {
	uow        repository.UnitOfWork
	cardCache  cache.CardStatusCache
	cacheTTL   time.Duration
	bus        eventbus.Bus
	payments   *paymentservice.Service
	attendance *attendanceservice.Service
	logger     *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(
	deps config.Deps,
	payments *paymentservice.Service,
	att *attendanceservice.Service,
) *Service {
	ttl := deps.Config.Redis.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		uow:        deps.Uow,
		cardCache:  deps.CardCache,
		cacheTTL:   ttl,
		bus:        deps.EventBus,
		payments:   payments,
		attendance: att,
		logger:     deps.Logger.With("service", "tap"),
	}
}

// Route validates a tap and dispatches it. Validation order is fixed: card
// first, then device, then class. A tap with a bad card on a bad device
// reports the card problem.
func (s *Service) Route(ctx context.Context, in Input) (*Outcome, error) {
	logger := s.logger.With("card_uid", in.CardUID, "device_id", in.DeviceID)

	st, err := s.resolveCard(ctx, in.CardUID)
	if err != nil {
		s.reject(ctx, in, "card not active")
		return nil, err
	}

	d, err := s.resolveDevice(ctx, in.DeviceID)
	if err != nil {
		s.reject(ctx, in, err.Error())
		return nil, err
	}

	class, err := d.Type.Classify()
	if err != nil {
		s.reject(ctx, in, err.Error())
		return nil, err
	}

	switch class {
	case device.ClassPayment:
		res, err := s.payments.ProcessTap(ctx, st, d, in.Amount, in.Description)
		if err != nil {
			return nil, err
		}
		logger.Info("tap routed", "kind", KindPayment, "reference", res.Transaction.Reference)
		return &Outcome{Kind: KindPayment, Student: st, Payment: res}, nil
	case device.ClassAttendance:
		res, err := s.attendance.RecordCheckIn(ctx, st, d, in.Location)
		if err != nil {
			return nil, err
		}
		logger.Info("tap routed", "kind", KindAttendance, "record_id", res.Record.ID)
		return &Outcome{Kind: KindAttendance, Student: st, Attendance: res}, nil
	default:
		return nil, device.ErrUnsupportedDevice
	}
}

// ValidateCard answers the terminal pre-check without running a flow. The
// answer is served from the card-status cache when fresh.
func (s *Service) ValidateCard(ctx context.Context, cardUID string) error {
	if s.cardCache != nil {
		status, found, err := s.cardCache.Get(ctx, cardUID)
		if err == nil && found {
			if status != student.CardActive {
				return student.ErrCardNotActive
			}
			return nil
		}
	}
	_, err := s.resolveCard(ctx, cardUID)
	return err
}

// resolveCard maps a card UID to a tappable student. Unknown cards and every
// non-active card state collapse into ErrCardNotActive.
func (s *Service) resolveCard(ctx context.Context, cardUID string) (*student.Student, error) {
	if cardUID == "" {
		return nil, student.ErrCardNotActive
	}
	repo, err := s.uow.StudentRepository()
	if err != nil {
		return nil, err
	}
	st, err := repo.GetByCardUID(ctx, cardUID)
	if errors.Is(err, student.ErrStudentNotFound) {
		return nil, student.ErrCardNotActive
	}
	if err != nil {
		return nil, err
	}
	// The cache stores the composite answer, not the raw card status. A
	// deactivated student can still carry a card that reads active.
	cached := st.CardStatus
	if !st.Active {
		cached = student.CardDeactivated
	}
	if s.cardCache != nil {
		if cacheErr := s.cardCache.Set(ctx, cardUID, cached, s.cacheTTL); cacheErr != nil {
			s.logger.Warn("card cache set failed", "card_uid", cardUID, "error", cacheErr)
		}
	}
	if !st.CanTap() {
		return nil, student.ErrCardNotActive
	}
	return st, nil
}

func (s *Service) resolveDevice(ctx context.Context, deviceID string) (*device.Device, error) {
	repo, err := s.uow.DeviceRepository()
	if err != nil {
		return nil, err
	}
	d, err := repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !d.Available() {
		return nil, device.ErrDeviceUnavailable
	}
	return d, nil
}

func (s *Service) reject(ctx context.Context, in Input, reason string) {
	repo, err := s.uow.ScanFailureRepository()
	if err == nil {
		if err := repo.Create(ctx, &repository.ScanFailure{
			ID:        uuid.New(),
			CardUID:   in.CardUID,
			DeviceID:  in.DeviceID,
			Reason:    reason,
			CreatedAt: time.Now(),
		}); err != nil {
			s.logger.Error("scan failure audit write failed", "error", err)
		}
	}
	if err := s.bus.Emit(ctx, events.ScanFailed{
		CardUID:    in.CardUID,
		DeviceID:   in.DeviceID,
		Reason:     reason,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Error("emit scan failure event", "error", err)
	}
}
