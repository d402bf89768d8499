package monitor

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidSample flags a non-positive price delivered by a collaborator.
var ErrInvalidSample = errors.New("invalid price sample")

// PriceSample is one observed price for a symbol. Immutable once created.
type PriceSample struct {
	Symbol     string
	Price      decimal.Decimal
	ObservedAt time.Time
}

// ChangeResult describes the strongest price move found in a symbol's window.
type ChangeResult struct {
	PercentChange  decimal.Decimal
	ReferencePrice decimal.Decimal
	CurrentPrice   decimal.Decimal
	ReferenceAt    time.Time
	CurrentAt      time.Time
}

// Window returns the elapsed time between the reference and current samples.
func (r ChangeResult) Window() time.Duration {
	return r.CurrentAt.Sub(r.ReferenceAt)
}

// AlertEvent is produced when a detected move clears the cooldown gate.
// Events are handed straight to the notifier and never persisted.
type AlertEvent struct {
	ID            string
	Symbol        string
	OldPrice      decimal.Decimal
	NewPrice      decimal.Decimal
	PercentChange decimal.Decimal
	Window        time.Duration
	TriggeredAt   time.Time
}

// NormalizeSymbol trims and uppercases a user-supplied symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
