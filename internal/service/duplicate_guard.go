package service

import (
	"strings"

	"cuentas/internal/model"

	"github.com/google/uuid"
)

// DuplicateCandidate identifies the entry being checked. EntryID may be the
// zero UUID for a draft that has not been created yet.
type DuplicateCandidate struct {
	EntryID        uuid.UUID
	CounterpartyID uuid.UUID
	InvoiceNumber  string
}

// DuplicateResult reports the first conflicting entry found, if any.
type DuplicateResult struct {
	Duplicate          bool       `json:"duplicate"`
	ConflictingEntryID *uuid.UUID `json:"conflicting_entry_id,omitempty"`
}

// NormalizeInvoiceNumber trims and lower-cases an invoice number so "F-100"
// and " f-100 " collide.
func NormalizeInvoiceNumber(number string) string {
	return strings.ToLower(strings.TrimSpace(number))
}

// FindDuplicate scans entries for a non-void CXP entry of the same
// counterparty carrying the same normalized invoice number, excluding the
// candidate itself. Empty invoice numbers never collide.
//
// This scan is advisory: the database carries the authoritative constraint,
// and a caller scanning a stale local list may get a false negative. A
// reported conflict never blocks permanently, the operator resolves it by
// fixing the number.
func FindDuplicate(entries []model.LedgerEntry, candidate DuplicateCandidate) DuplicateResult {
	number := NormalizeInvoiceNumber(candidate.InvoiceNumber)
	if number == "" {
		return DuplicateResult{}
	}

	for i := range entries {
		e := &entries[i]
		if e.ID == candidate.EntryID {
			continue
		}
		if e.Direction != model.DirectionPayable || e.Status == model.EntryStatusVoid {
			continue
		}
		if e.CounterpartyID != candidate.CounterpartyID {
			continue
		}
		if NormalizeInvoiceNumber(e.Invoice.Number) == number {
			id := e.ID
			return DuplicateResult{Duplicate: true, ConflictingEntryID: &id}
		}
	}
	return DuplicateResult{}
}
