package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency enum constants
const (
	CurrencyGTQ = "GTQ"
	CurrencyUSD = "USD"
)

// ValidCurrency reports whether code is a supported currency.
func ValidCurrency(code string) bool {
	return code == CurrencyGTQ || code == CurrencyUSD
}

// MoneyAmount is a monetary value tagged with its currency. It is never
// persisted on its own; ledger entries store value and currency as columns.
type MoneyAmount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"` // GTQ, USD
}

// NewMoneyAmount builds a MoneyAmount, rejecting negative values and unknown
// currency codes.
func NewMoneyAmount(value decimal.Decimal, currency string) (MoneyAmount, error) {
	if value.IsNegative() {
		return MoneyAmount{}, fmt.Errorf("money amount cannot be negative: %s", value.String())
	}
	if !ValidCurrency(currency) {
		return MoneyAmount{}, fmt.Errorf("unsupported currency: %s", currency)
	}
	return MoneyAmount{Value: value, Currency: currency}, nil
}

// Display renders the value with two fraction digits.
func (m MoneyAmount) Display() string {
	return m.Value.StringFixed(2)
}

// Convert expresses amount in toCurrency using the day's reference rate
// (GTQ per 1 USD), rounding half-up to two decimals. The returned bool
// reports whether a conversion actually happened.
//
// Conversion is a convenience for data entry, never a precondition for
// saving: when the rate is missing or non-positive, or the value is not
// positive, the currency is switched but the value is kept as-is and the
// bool is false. Round-tripping accumulates rounding drift and must not be
// relied on for exact reproduction: starting from USD the drift stays within
// 0.01, but starting from GTQ the USD leg rounds to two decimals and the
// half-cent lost there multiplies back by the rate (about 0.04 GTQ at a
// rate near 7.8).
func Convert(amount MoneyAmount, toCurrency string, rate *ExchangeRate) (MoneyAmount, bool) {
	if toCurrency == amount.Currency {
		return amount, false
	}
	if rate == nil || rate.ReferenceRate.LessThanOrEqual(decimal.Zero) || amount.Value.LessThanOrEqual(decimal.Zero) {
		return MoneyAmount{Value: amount.Value, Currency: toCurrency}, false
	}

	var converted decimal.Decimal
	switch {
	case amount.Currency == CurrencyGTQ && toCurrency == CurrencyUSD:
		converted = amount.Value.DivRound(rate.ReferenceRate, 2)
	case amount.Currency == CurrencyUSD && toCurrency == CurrencyGTQ:
		converted = amount.Value.Mul(rate.ReferenceRate).Round(2)
	default:
		return MoneyAmount{Value: amount.Value, Currency: toCurrency}, false
	}

	return MoneyAmount{Value: converted, Currency: toCurrency}, true
}
