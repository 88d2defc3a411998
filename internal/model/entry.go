package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Direction enum constants
const (
	DirectionPayable    = "CXP" // obligation owed to a supplier
	DirectionReceivable = "CXC" // obligation owed by a customer
)

// EntryStatus enum constants
const (
	EntryStatusOpen    = "OPEN"
	EntryStatusSettled = "SETTLED"
	EntryStatusVoid    = "VOID"
)

// SupplierInvoice holds the hard-copy invoice fields of a payable entry.
// Created empty alongside the entry; editable until the entry reaches a
// terminal status. The attachment arrives independently of the text fields.
type SupplierInvoice struct {
	Number             string          `gorm:"type:varchar(64);index" json:"number"`
	Date               *time.Time      `json:"date"`
	AttachmentURL      string          `gorm:"type:text" json:"attachment_url"`
	Observations       string          `gorm:"type:text" json:"observations"`
	ExchangeRateUsed   decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"exchange_rate_used"`
	ExchangeRateSource string          `gorm:"type:varchar(100)" json:"exchange_rate_source"`
	ExchangeRateDate   *time.Time      `json:"exchange_rate_date"`
}

// LedgerEntry is a single accounts-payable (CXP) or accounts-receivable
// (CXC) obligation. Balance starts equal to Amount and only decreases;
// entries are never deleted, void keeps the balance for the audit trail.
//
// Invariants maintained by the service layer:
//   - Amount and Balance share Currency.
//   - 0 <= Balance <= Amount.
//   - SETTLED implies Balance == 0; SETTLED and VOID are terminal.
type LedgerEntry struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Direction        string          `gorm:"type:varchar(3);not null;index" json:"direction"` // CXP, CXC
	CounterpartyID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"counterparty_id"`
	Counterparty     *Counterparty   `gorm:"foreignKey:CounterpartyID" json:"counterparty,omitempty"`
	LinkedDocumentID *uuid.UUID      `gorm:"type:uuid;index" json:"linked_document_id"` // purchase order / sales invoice
	DueDate          time.Time       `gorm:"not null" json:"due_date"`
	Currency         string          `gorm:"type:varchar(3);not null" json:"currency"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Balance          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance"`
	Status           string          `gorm:"type:varchar(10);not null;default:'OPEN';index" json:"status"`
	Invoice          SupplierInvoice `gorm:"embedded;embeddedPrefix:invoice_" json:"invoice"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the entry accepts no further transitions.
func (e *LedgerEntry) Terminal() bool {
	return e.Status == EntryStatusSettled || e.Status == EntryStatusVoid
}

// AmountMoney returns the original obligation as a MoneyAmount.
func (e *LedgerEntry) AmountMoney() MoneyAmount {
	return MoneyAmount{Value: e.Amount, Currency: e.Currency}
}

// BalanceMoney returns the remaining obligation as a MoneyAmount.
func (e *LedgerEntry) BalanceMoney() MoneyAmount {
	return MoneyAmount{Value: e.Balance, Currency: e.Currency}
}
