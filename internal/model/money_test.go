package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func rateOf(ref string) *ExchangeRate {
	return &ExchangeRate{ReferenceRate: decimal.RequireFromString(ref)}
}

func TestNewMoneyAmount(t *testing.T) {
	m, err := NewMoneyAmount(decimal.RequireFromString("150.50"), CurrencyGTQ)
	assert.NoError(t, err)
	assert.Equal(t, "150.50", m.Display())

	_, err = NewMoneyAmount(decimal.RequireFromString("-1"), CurrencyGTQ)
	assert.Error(t, err)

	_, err = NewMoneyAmount(decimal.NewFromInt(10), "EUR")
	assert.Error(t, err)
}

func TestConvertGTQToUSD(t *testing.T) {
	m := MoneyAmount{Value: decimal.RequireFromString("780.00"), Currency: CurrencyGTQ}

	out, applied := Convert(m, CurrencyUSD, rateOf("7.80"))

	assert.True(t, applied)
	assert.Equal(t, CurrencyUSD, out.Currency)
	assert.Equal(t, "100.00", out.Display())
}

func TestConvertUSDToGTQ(t *testing.T) {
	m := MoneyAmount{Value: decimal.RequireFromString("100.00"), Currency: CurrencyUSD}

	out, applied := Convert(m, CurrencyGTQ, rateOf("7.85"))

	assert.True(t, applied)
	assert.Equal(t, CurrencyGTQ, out.Currency)
	assert.Equal(t, "785.00", out.Display())
}

func TestConvertRoundsHalfUp(t *testing.T) {
	// 10 / 7.80 = 1.28205... -> 1.28; 1.005 * 7.80 style midpoints round up.
	m := MoneyAmount{Value: decimal.RequireFromString("10.00"), Currency: CurrencyGTQ}
	out, applied := Convert(m, CurrencyUSD, rateOf("7.80"))
	assert.True(t, applied)
	assert.Equal(t, "1.28", out.Display())

	m = MoneyAmount{Value: decimal.RequireFromString("0.125"), Currency: CurrencyUSD}
	out, applied = Convert(m, CurrencyGTQ, rateOf("1"))
	assert.True(t, applied)
	assert.Equal(t, "0.13", out.Display())
}

func TestConvertSameCurrencyIsIdentity(t *testing.T) {
	m := MoneyAmount{Value: decimal.RequireFromString("42.42"), Currency: CurrencyUSD}

	out, applied := Convert(m, CurrencyUSD, rateOf("7.80"))

	assert.False(t, applied)
	assert.Equal(t, m, out)
}

func TestConvertWithoutRateKeepsValue(t *testing.T) {
	m := MoneyAmount{Value: decimal.RequireFromString("500.00"), Currency: CurrencyGTQ}

	out, applied := Convert(m, CurrencyUSD, nil)
	assert.False(t, applied)
	assert.Equal(t, CurrencyUSD, out.Currency)
	assert.Equal(t, "500.00", out.Display())

	out, applied = Convert(m, CurrencyUSD, rateOf("0"))
	assert.False(t, applied)
	assert.Equal(t, "500.00", out.Display())
}

func TestConvertNonPositiveValueKeepsValue(t *testing.T) {
	m := MoneyAmount{Value: decimal.Zero, Currency: CurrencyUSD}

	out, applied := Convert(m, CurrencyGTQ, rateOf("7.80"))

	assert.False(t, applied)
	assert.Equal(t, CurrencyGTQ, out.Currency)
	assert.True(t, out.Value.IsZero())
}

func TestConvertRoundTripStaysWithinOneCent(t *testing.T) {
	rate := rateOf("7.79432")
	values := []string{"0.01", "1.00", "13.37", "999.99", "125000.50"}

	for _, v := range values {
		orig := MoneyAmount{Value: decimal.RequireFromString(v), Currency: CurrencyUSD}
		gtq, applied := Convert(orig, CurrencyGTQ, rate)
		assert.True(t, applied, v)
		back, applied := Convert(gtq, CurrencyUSD, rate)
		assert.True(t, applied, v)

		drift := back.Value.Sub(orig.Value).Abs()
		assert.True(t, drift.LessThanOrEqual(decimal.RequireFromString("0.01")),
			"round-trip of %s drifted by %s", v, drift.String())
	}
}

func TestConvertRoundTripFromGTQDriftsByRoundedRate(t *testing.T) {
	// The USD leg rounds to two decimals, so up to half a cent times the
	// rate is lost on the way back. At this rate that is under 0.05 GTQ.
	rate := rateOf("7.79432")
	values := []string{"1.00", "10.00", "777.77", "54321.09"}

	for _, v := range values {
		orig := MoneyAmount{Value: decimal.RequireFromString(v), Currency: CurrencyGTQ}
		usd, applied := Convert(orig, CurrencyUSD, rate)
		assert.True(t, applied, v)
		back, applied := Convert(usd, CurrencyGTQ, rate)
		assert.True(t, applied, v)

		drift := back.Value.Sub(orig.Value).Abs()
		assert.True(t, drift.LessThanOrEqual(decimal.RequireFromString("0.05")),
			"round-trip of %s drifted by %s", v, drift.String())
	}
}
