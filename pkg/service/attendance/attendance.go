// Package attendance implements the check-in flow for attendance-class
// devices. Every tap appends a record; there is no dedup window, because the
// log tracks arrival events rather than an in/out state machine.
package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/attendance"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/events"
	"github.com/ineza/schoolpay/pkg/domain/student"
	"github.com/ineza/schoolpay/pkg/eventbus"
	"github.com/ineza/schoolpay/pkg/notification"
	"github.com/ineza/schoolpay/pkg/repository"
)

// Service records check-ins and notifies parents.
type Service struct {
	uow        repository.UnitOfWork
	bus        eventbus.Bus
	dispatcher *notification.Dispatcher
	logger     *slog.Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps, dispatcher *notification.Dispatcher) *Service {
	return &Service{
		uow:        deps.Uow,
		bus:        deps.EventBus,
		dispatcher: dispatcher,
		logger:     deps.Logger.With("service", "attendance"),
	}
}

// Result is the outcome of one check-in.
type Result struct {
	Record       *attendance.Record
	Notification notification.Result
}

// RecordCheckIn appends a check-in record, increments the device scan
// counter and sends the parent alert. The SMS outcome is stored on the
// record but never fails the check-in. An empty location falls back to the
// device's registered location.
func (s *Service) RecordCheckIn(
	ctx context.Context,
	st *student.Student,
	d *device.Device,
	location string,
) (*Result, error) {
	logger := s.logger.With("student_id", st.ID, "device_id", d.DeviceID)
	now := time.Now()

	if location == "" {
		location = d.Location
	}
	rec, err := attendance.New(st.ID, st.SchoolID, d.ID, location, now)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AttendanceRepository()
		if err != nil {
			return err
		}
		if err = repo.Create(ctx, rec); err != nil {
			return err
		}
		devRepo, err := uow.DeviceRepository()
		if err != nil {
			return err
		}
		return devRepo.IncrementScanCount(ctx, d.ID)
	})
	if err != nil {
		logger.Error("check-in failed", "error", err)
		return nil, err
	}

	logger.Info("check-in recorded", "record_id", rec.ID)

	if emitErr := s.bus.Emit(ctx, events.AttendanceRecorded{
		RecordID:    rec.ID,
		StudentID:   st.ID,
		StudentName: st.FullName(),
		ParentPhone: st.ParentPhone,
		DeviceID:    d.ID,
		Location:    location,
		CheckInAt:   now,
	}); emitErr != nil {
		logger.Error("emit attendance event", "error", emitErr)
	}

	res := &Result{Record: rec}
	if s.dispatcher != nil {
		res.Notification = s.dispatcher.SendAttendanceAlert(
			ctx, st.ID, st.ParentPhone, st.FullName(), now)
		rec.SetNotificationResult(res.Notification.Success, res.Notification.Error)
		if updErr := s.storeNotificationResult(ctx, rec); updErr != nil {
			logger.Warn("notification result not stored", "error", updErr)
		}
	}
	return res, nil
}

func (s *Service) storeNotificationResult(ctx context.Context, rec *attendance.Record) error {
	repo, err := s.uow.AttendanceRepository()
	if err != nil {
		return err
	}
	return repo.Update(ctx, rec)
}

// ListByDate returns a school's check-ins for one calendar day.
func (s *Service) ListByDate(
	ctx context.Context,
	schoolID uuid.UUID,
	date string,
) ([]*attendance.Record, error) {
	if _, err := time.Parse(attendance.DateLayout, date); err != nil {
		return nil, err
	}
	repo, err := s.uow.AttendanceRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListByDate(ctx, schoolID, date)
}

// ListByStudent returns a student's most recent check-ins, newest first.
func (s *Service) ListByStudent(
	ctx context.Context,
	studentID uuid.UUID,
	limit int,
) ([]*attendance.Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	repo, err := s.uow.AttendanceRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListByStudent(ctx, studentID, limit)
}
