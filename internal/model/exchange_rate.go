package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExchangeRate is the day's reference rate as published by the external
// feed, expressed as GTQ per 1 USD. The core only reads these rows; they are
// written when the gateway fetches a fresh rate.
type ExchangeRate struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ReferenceRate decimal.Decimal     `gorm:"type:decimal(18,6);not null" json:"reference_rate"`
	BuyRate       decimal.NullDecimal `gorm:"type:decimal(18,6)" json:"buy_rate"`
	SellRate      decimal.NullDecimal `gorm:"type:decimal(18,6)" json:"sell_rate"`
	AsOfDate      time.Time           `gorm:"type:date;uniqueIndex;not null" json:"as_of_date"`
	Source        string              `gorm:"type:varchar(100)" json:"source"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (r *ExchangeRate) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
