// Package merchant holds canteen/store records and their running sales
// totals, updated on every completed purchase routed through their devices.
package merchant

import (
	"errors"
	"time"

	"github.com/ineza/schoolpay/pkg/domain/money"
	"github.com/google/uuid"
)

var (
	// ErrMerchantNotFound is returned when a merchant cannot be found.
	ErrMerchantNotFound = errors.New("merchant not found")

	// ErrMerchantInactive is returned when a payment is routed to a merchant
	// that has been disabled.
	ErrMerchantInactive = errors.New("merchant is not active")

	// ErrNoMerchantBound is returned when a payment-class device has no
	// merchant association.
	ErrNoMerchantBound = errors.New("device has no merchant bound")
)

// Merchant is a selling point inside a school (canteen, store, ...).
type Merchant struct {
	ID         uuid.UUID
	Name       string
	Type       string
	SchoolID   uuid.UUID
	Active     bool
	TotalSales money.Money
	SalesCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New validates and creates a Merchant.
func New(name, typ string, schoolID uuid.UUID) (*Merchant, error) {
	if name == "" {
		return nil, errors.New("merchant name is required")
	}
	if schoolID == uuid.Nil {
		return nil, errors.New("schoolID is required")
	}
	return &Merchant{
		ID:         uuid.New(),
		Name:       name,
		Type:       typ,
		SchoolID:   schoolID,
		Active:     true,
		TotalSales: money.Zero(""),
		CreatedAt:  time.Now(),
	}, nil
}

// RecordSale adds a completed purchase to the running totals.
func (m *Merchant) RecordSale(amount money.Money) error {
	if !amount.IsPositive() {
		return errors.New("sale amount must be positive")
	}
	total, err := m.TotalSales.Add(amount)
	if err != nil {
		return err
	}
	m.TotalSales = total
	m.SalesCount++
	return nil
}
