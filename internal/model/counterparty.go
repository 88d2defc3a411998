package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CounterpartyType enum constants
const (
	CounterpartyCustomer = "CUSTOMER"
	CounterpartySupplier = "SUPPLIER"
	CounterpartyBoth     = "BOTH"
)

// Counterparty is a supplier (CXP side), a customer (CXC side), or both.
type Counterparty struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Type          string         `gorm:"type:varchar(20);not null;index" json:"type"` // CUSTOMER, SUPPLIER, BOTH
	TaxID         string         `gorm:"type:varchar(50)" json:"tax_id"`
	ContactPerson string         `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string         `gorm:"type:varchar(50)" json:"phone"`
	Email         string         `gorm:"type:varchar(255)" json:"email"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (cp *Counterparty) BeforeCreate(tx *gorm.DB) error {
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	return nil
}
