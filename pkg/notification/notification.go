// Package notification sends SMS alerts to parents after taps are committed.
// Delivery failures never fail the tap that triggered them; callers get a
// Result value and an event is published for the audit trail.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ineza/schoolpay/pkg/domain/events"
	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/ineza/schoolpay/pkg/eventbus"
)

// Result reports the outcome of one send attempt.
type Result struct {
	Success bool
	Error   string
}

// SMSGateway delivers a single message to a phone number. Implementations
// return a Result, never an error: the gateway absorbs transport failures.
type SMSGateway interface {
	Send(ctx context.Context, phone, message string) Result
}

// Dispatcher formats and sends the tap notifications and publishes the
// outcome on the event bus.
type Dispatcher struct {
	gateway SMSGateway
	bus     eventbus.Bus
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	gateway SMSGateway,
	bus eventbus.Bus,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		gateway: gateway,
		bus:     bus,
		logger:  logger.With("component", "notification.Dispatcher"),
	}
}

// SendPaymentAlert notifies a parent of a completed purchase and the balance
// left on the account.
func (d *Dispatcher) SendPaymentAlert(
	ctx context.Context,
	studentID uuid.UUID,
	phone, studentName, merchantName string,
	amount, balance money.Money,
) Result {
	msg := fmt.Sprintf(
		"%s paid %s at %s. Balance: %s.",
		studentName, amount.String(), merchantName, balance.String(),
	)
	return d.send(ctx, studentID, phone, "payment", msg)
}

// SendTopUpAlert notifies a parent that a deposit landed.
func (d *Dispatcher) SendTopUpAlert(
	ctx context.Context,
	studentID uuid.UUID,
	phone, studentName string,
	amount, balance money.Money,
) Result {
	msg := fmt.Sprintf(
		"Top-up of %s received for %s. Balance: %s.",
		amount.String(), studentName, balance.String(),
	)
	return d.send(ctx, studentID, phone, "topup", msg)
}

// SendAttendanceAlert notifies a parent that their child checked in.
func (d *Dispatcher) SendAttendanceAlert(
	ctx context.Context,
	studentID uuid.UUID,
	phone, studentName string,
	at time.Time,
) Result {
	msg := fmt.Sprintf(
		"%s arrived at school at %s.",
		studentName, at.Format("15:04"),
	)
	return d.send(ctx, studentID, phone, "attendance", msg)
}

// SendLowBalanceAlert warns a parent that the account cannot cover a typical
// purchase.
func (d *Dispatcher) SendLowBalanceAlert(
	ctx context.Context,
	studentID uuid.UUID,
	phone, studentName string,
	balance money.Money,
) Result {
	msg := fmt.Sprintf(
		"Low balance for %s: %s. Please top up.",
		studentName, balance.String(),
	)
	return d.send(ctx, studentID, phone, "low_balance", msg)
}

func (d *Dispatcher) send(
	ctx context.Context,
	studentID uuid.UUID,
	phone, kind, msg string,
) Result {
	if phone == "" {
		res := Result{Success: false, Error: "no parent phone on file"}
		d.publish(ctx, studentID, phone, kind, res)
		return res
	}

	res := d.gateway.Send(ctx, phone, msg)
	d.publish(ctx, studentID, phone, kind, res)
	return res
}

func (d *Dispatcher) publish(
	ctx context.Context,
	studentID uuid.UUID,
	phone, kind string,
	res Result,
) {
	now := time.Now()
	if res.Success {
		if err := d.bus.Emit(ctx, events.NotificationSent{
			StudentID:  studentID,
			Phone:      phone,
			Kind:       kind,
			OccurredAt: now,
		}); err != nil {
			d.logger.Error("emit notification event", "error", err)
		}
		return
	}
	d.logger.Warn("sms delivery failed",
		"student_id", studentID, "kind", kind, "reason", res.Error)
	if err := d.bus.Emit(ctx, events.NotificationFailed{
		StudentID:  studentID,
		Phone:      phone,
		Kind:       kind,
		Reason:     res.Error,
		OccurredAt: now,
	}); err != nil {
		d.logger.Error("emit notification event", "error", err)
	}
}
