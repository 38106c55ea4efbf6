// Package student holds the student aggregate and the card lifecycle. A
// student owns exactly one active card UID at a time; replaced cards keep the
// previous UID for audit.
package student

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrStudentNotFound is returned when a student cannot be found.
	ErrStudentNotFound = errors.New("student not found")

	// ErrCardNotActive is returned for any tap with a card that does not
	// resolve to an active student with an active card. Lost, stolen,
	// deactivated and unknown cards are indistinguishable to a tap terminal,
	// so they all map to this error.
	ErrCardNotActive = errors.New("card is not active")

	// ErrCardUIDTaken is returned when enrolling or replacing with a card UID
	// already assigned to another student.
	ErrCardUIDTaken = errors.New("card UID already assigned")

	// ErrSameCardUID is returned when a replacement card has the same UID as
	// the card it replaces.
	ErrSameCardUID = errors.New("replacement card must have a new UID")
)

// CardStatus is the closed set of card lifecycle states.
type CardStatus int

const (
	CardActive CardStatus = iota
	CardLost
	CardStolen
	CardDeactivated
)

var cardStatusNames = map[CardStatus]string{
	CardActive:      "active",
	CardLost:        "lost",
	CardStolen:      "stolen",
	CardDeactivated: "deactivated",
}

// String returns the wire name of the status.
func (s CardStatus) String() string {
	if name, ok := cardStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CardStatus(%d)", int(s))
}

// ParseCardStatus maps a stored status string back to its variant.
func ParseCardStatus(s string) (CardStatus, error) {
	for status, name := range cardStatusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown card status %q", s)
}

// Student is the aggregate behind a card UID. Records are never hard-deleted;
// Active is the soft-delete flag.
type Student struct {
	ID              uuid.UUID
	SchoolID        uuid.UUID
	FirstName       string
	LastName        string
	ParentPhone     string
	CardUID         string
	PreviousCardUID string
	CardStatus      CardStatus
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Builder builds Student instances for enrollment and hydration.
type Builder struct {
	id          uuid.UUID
	schoolID    uuid.UUID
	firstName   string
	lastName    string
	parentPhone string
	cardUID     string
	prevCardUID string
	cardStatus  CardStatus
	active      bool
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a Builder with a fresh ID and an active card status.
func New() *Builder {
	return &Builder{
		id:         uuid.New(),
		cardStatus: CardActive,
		active:     true,
		createdAt:  time.Now(),
	}
}

func (b *Builder) WithID(id uuid.UUID) *Builder             { b.id = id; return b }
func (b *Builder) WithSchoolID(id uuid.UUID) *Builder       { b.schoolID = id; return b }
func (b *Builder) WithName(first, last string) *Builder     { b.firstName, b.lastName = first, last; return b }
func (b *Builder) WithParentPhone(phone string) *Builder    { b.parentPhone = phone; return b }
func (b *Builder) WithCardUID(uid string) *Builder          { b.cardUID = uid; return b }
func (b *Builder) WithPreviousCardUID(uid string) *Builder  { b.prevCardUID = uid; return b }
func (b *Builder) WithCardStatus(s CardStatus) *Builder     { b.cardStatus = s; return b }
func (b *Builder) WithActive(active bool) *Builder          { b.active = active; return b }
func (b *Builder) WithCreatedAt(t time.Time) *Builder       { b.createdAt = t; return b }
func (b *Builder) WithUpdatedAt(t time.Time) *Builder       { b.updatedAt = t; return b }

// Build validates the mandatory fields and returns the Student.
func (b *Builder) Build() (*Student, error) {
	if b.schoolID == uuid.Nil {
		return nil, errors.New("schoolID is required")
	}
	if b.firstName == "" || b.lastName == "" {
		return nil, errors.New("student name is required")
	}
	if b.cardUID == "" {
		return nil, errors.New("card UID is required")
	}
	return &Student{
		ID:              b.id,
		SchoolID:        b.schoolID,
		FirstName:       b.firstName,
		LastName:        b.lastName,
		ParentPhone:     b.parentPhone,
		CardUID:         b.cardUID,
		PreviousCardUID: b.prevCardUID,
		CardStatus:      b.cardStatus,
		Active:          b.active,
		CreatedAt:       b.createdAt,
		UpdatedAt:       b.updatedAt,
	}, nil
}

// FullName returns the display name used on receipts and SMS messages.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// CanTap reports whether a tap with this student's card may proceed.
// True iff the student record is active and the card status is active.
func (s *Student) CanTap() bool {
	return s.Active && s.CardStatus == CardActive
}

// ReportLost marks the card lost. Taps are rejected until a replacement.
func (s *Student) ReportLost() {
	s.CardStatus = CardLost
}

// ReportStolen marks the card stolen.
func (s *Student) ReportStolen() {
	s.CardStatus = CardStolen
}

// Deactivate disables the card without losing the student record.
func (s *Student) Deactivate() {
	s.CardStatus = CardDeactivated
}

// Reactivate re-enables a deactivated, lost or stolen card.
func (s *Student) Reactivate() {
	s.CardStatus = CardActive
}

// ReplaceCard assigns a new card UID, keeping the old one for audit, and
// reactivates the card.
func (s *Student) ReplaceCard(newUID string) error {
	if newUID == "" {
		return errors.New("card UID is required")
	}
	if newUID == s.CardUID {
		return ErrSameCardUID
	}
	s.PreviousCardUID = s.CardUID
	s.CardUID = newUID
	s.CardStatus = CardActive
	return nil
}
