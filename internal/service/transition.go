package service

import (
	"errors"
	"fmt"

	"cuentas/internal/model"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTransition signals a pay/collect/void attempt on a terminal
	// entry. The console disables those controls locally, so hitting this is
	// a race (e.g. a stale pay arriving after a void) and maps to a 409.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNonPositiveAmount rejects zero or negative payment amounts.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
)

// ApplyPayment reduces the entry's balance by amount, clamping at zero.
// Only OPEN entries accept payments; when the balance reaches zero the entry
// settles. Partial payments are fine, the caller may apply any number of
// them while the entry stays OPEN.
//
// The function mutates the entry in memory only; persisting the result is
// the caller's job. Any other implementation of the transition table (the
// console's optimistic update included) must replicate this arithmetic.
func ApplyPayment(entry *model.LedgerEntry, amount decimal.Decimal) error {
	if entry.Status != model.EntryStatusOpen {
		return fmt.Errorf("entry is %s: %w", entry.Status, ErrInvalidTransition)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	next := entry.Balance.Sub(amount)
	if next.IsNegative() {
		next = decimal.Zero
	}
	entry.Balance = next
	if next.IsZero() {
		entry.Status = model.EntryStatusSettled
	}
	return nil
}

// ApplyVoid marks an OPEN entry VOID. The balance is left untouched so the
// audit trail keeps what was outstanding at the moment of voiding.
func ApplyVoid(entry *model.LedgerEntry) error {
	if entry.Status != model.EntryStatusOpen {
		return fmt.Errorf("entry is %s: %w", entry.Status, ErrInvalidTransition)
	}
	entry.Status = model.EntryStatusVoid
	return nil
}
