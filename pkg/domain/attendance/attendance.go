// Package attendance holds the append-only check-in log. Every tap on an
// attendance-class device creates a new record; there is deliberately no
// dedup window, because the system tracks arrival events rather than a
// sessioned in/out state machine.
package attendance

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when an attendance record cannot be found.
var ErrRecordNotFound = errors.New("attendance record not found")

// Record is a single check-in event.
type Record struct {
	ID                uuid.UUID
	StudentID         uuid.UUID
	SchoolID          uuid.UUID
	DeviceID          uuid.UUID
	Location          string
	CheckInAt         time.Time
	Date              string // calendar date, denormalized for range queries
	NotificationSent  bool
	NotificationError string
	CreatedAt         time.Time
}

// DateLayout is the calendar-date format stored on records.
const DateLayout = "2006-01-02"

// New creates a check-in record for the given tap.
func New(studentID, schoolID, deviceID uuid.UUID, location string, at time.Time) (*Record, error) {
	if studentID == uuid.Nil {
		return nil, errors.New("studentID is required")
	}
	if deviceID == uuid.Nil {
		return nil, errors.New("deviceID is required")
	}
	return &Record{
		ID:        uuid.New(),
		StudentID: studentID,
		SchoolID:  schoolID,
		DeviceID:  deviceID,
		Location:  location,
		CheckInAt: at,
		Date:      at.Format(DateLayout),
		CreatedAt: at,
	}, nil
}

// SetNotificationResult records the SMS outcome without ever failing the
// check-in itself.
func (r *Record) SetNotificationResult(sent bool, errMsg string) {
	r.NotificationSent = sent
	r.NotificationError = errMsg
}
