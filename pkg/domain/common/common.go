// Package common holds domain errors and types shared across aggregates.
package common

import "errors"

var (
	// ErrInvalidCurrencyCode is returned when a currency code is not a valid
	// ISO 4217 code.
	ErrInvalidCurrencyCode = errors.New("invalid currency code")

	// ErrUnsupportedCurrency is returned when a currency code is valid but not
	// registered in the currency registry.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrCurrencyMismatch is returned when an operation mixes two currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)
