// Package device holds the terminal registry types. Every tap arrives from a
// registered device; the device type decides whether the tap is an attendance
// check-in or a payment.
package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDeviceNotFound is returned when a device ID does not resolve.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceUnavailable is returned when a tap arrives from a device that
	// is not online or in maintenance.
	ErrDeviceUnavailable = errors.New("device is not available")

	// ErrUnsupportedDevice is returned for device types outside the closed
	// attendance/payment classification.
	ErrUnsupportedDevice = errors.New("unsupported device type")

	// ErrDeviceIDTaken is returned when registering a duplicate device ID.
	ErrDeviceIDTaken = errors.New("device ID already registered")
)

// Type is the declared hardware type of a terminal.
type Type string

const (
	TypeESP32            Type = "esp32"
	TypeRFIDReader       Type = "rfid_reader"
	TypeAttendanceReader Type = "attendance_reader"
	TypePOS              Type = "pos"
	TypeCanteenReader    Type = "canteen_reader"
)

// Class groups device types by what a tap on them means. The classification
// is a closed two-way branch: every supported type is exactly one of
// attendance-class or payment-class.
type Class int

const (
	ClassUnknown Class = iota
	ClassAttendance
	ClassPayment
)

// Classify maps a device type to its class. Unknown types return
// ClassUnknown and ErrUnsupportedDevice.
func (t Type) Classify() (Class, error) {
	switch t {
	case TypeESP32, TypeRFIDReader, TypeAttendanceReader:
		return ClassAttendance, nil
	case TypePOS, TypeCanteenReader:
		return ClassPayment, nil
	default:
		return ClassUnknown, fmt.Errorf("%w: %q", ErrUnsupportedDevice, t)
	}
}

// Status is the closed set of device operating states.
type Status int

const (
	StatusOnline Status = iota
	StatusOffline
	StatusMaintenance
	StatusFaulty
	StatusInactive
)

var statusNames = map[Status]string{
	StatusOnline:      "online",
	StatusOffline:     "offline",
	StatusMaintenance: "maintenance",
	StatusFaulty:      "faulty",
	StatusInactive:    "inactive",
}

// String returns the wire name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus maps a stored status string back to its variant.
func ParseStatus(s string) (Status, error) {
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown device status %q", s)
}

// Device is a registered terminal. Devices are registered once and never
// deleted; heartbeats update LastSeenAt and status.
type Device struct {
	ID         uuid.UUID
	DeviceID   string // physical identifier printed on the terminal
	Type       Type
	Status     Status
	SchoolID   uuid.UUID
	MerchantID uuid.UUID // set for payment-class devices only
	Location   string
	ScanCount  int64
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New validates and creates a Device for registration.
func New(deviceID string, typ Type, schoolID uuid.UUID, location string) (*Device, error) {
	if deviceID == "" {
		return nil, errors.New("device ID is required")
	}
	if _, err := typ.Classify(); err != nil {
		return nil, err
	}
	if schoolID == uuid.Nil {
		return nil, errors.New("schoolID is required")
	}
	return &Device{
		ID:        uuid.New(),
		DeviceID:  deviceID,
		Type:      typ,
		Status:    StatusOffline,
		SchoolID:  schoolID,
		Location:  location,
		CreatedAt: time.Now(),
	}, nil
}

// Available reports whether the device accepts taps. Maintenance counts as
// available so terminals can be tested in place.
func (d *Device) Available() bool {
	return d.Status == StatusOnline || d.Status == StatusMaintenance
}

// Heartbeat records a status report from the terminal.
func (d *Device) Heartbeat(status Status, at time.Time) {
	d.Status = status
	d.LastSeenAt = at
}

// BindMerchant associates a payment-class device with its merchant.
func (d *Device) BindMerchant(merchantID uuid.UUID) error {
	class, err := d.Type.Classify()
	if err != nil {
		return err
	}
	if class != ClassPayment {
		return fmt.Errorf("%w: %s devices cannot take payments", ErrUnsupportedDevice, d.Type)
	}
	d.MerchantID = merchantID
	return nil
}
