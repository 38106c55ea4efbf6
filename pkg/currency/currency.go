// Package currency holds the currency codes and metadata the ledger operates
// on. Balances are stored in the smallest unit of their currency, so the
// decimals count here drives all conversion between display amounts and
// stored amounts.
package currency

import (
	"regexp"
	"sync"
)

const (
	// DefaultCurrency is the fallback currency code (Rwandan franc).
	DefaultCurrency = Code("RWF")
	// DefaultDecimals is the default number of decimal places for currencies.
	DefaultDecimals = 2
)

// Code represents an ISO 4217 currency code (e.g., "RWF", "USD").
type Code string

// String returns the code as a plain string.
func (c Code) String() string {
	return string(c)
}

// Common currency codes.
const (
	RWF = Code("RWF")
	USD = Code("USD")
	KES = Code("KES")
	UGX = Code("UGX")
)

// Meta holds currency-specific metadata.
type Meta struct {
	Decimals int
	Symbol   string
}

var (
	mu       sync.RWMutex
	registry = map[Code]Meta{
		RWF: {Decimals: 0, Symbol: "FRw"},
		UGX: {Decimals: 0, Symbol: "USh"},
		KES: {Decimals: 2, Symbol: "KSh"},
		USD: {Decimals: 2, Symbol: "$"},
	}
)

var codeFormat = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValidCurrencyFormat reports whether the code is three uppercase letters.
func IsValidCurrencyFormat(code string) bool {
	return codeFormat.MatchString(code)
}

// IsSupported reports whether the code is registered.
func IsSupported(code string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[Code(code)]
	return ok
}

// Get returns the metadata for a registered currency code.
func (c Code) Get() (Meta, bool) {
	mu.RLock()
	defer mu.RUnlock()
	meta, ok := registry[c]
	return meta, ok
}

// Get returns the metadata for a registered currency code.
func Get(code string) (Meta, bool) {
	return Code(code).Get()
}

// Register adds or updates a currency in the registry.
func Register(code Code, meta Meta) {
	mu.Lock()
	defer mu.Unlock()
	registry[code] = meta
}

// ListSupported returns all registered currency codes.
func ListSupported() []Code {
	mu.RLock()
	defer mu.RUnlock()
	codes := make([]Code, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	return codes
}
