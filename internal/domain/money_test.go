package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var inr = Currency{Code: "INR", Symbol: "₹", Places: 0}

func TestCurrency_SubscriptionPrice(t *testing.T) {
	cases := []struct {
		cur   Currency
		price string
		want  string
	}{
		{usd, "18", "15.3"},
		{usd, "22", "18.7"},
		{usd, "26", "22.1"},
		{inr, "1499", "1274"},
		{inr, "2499", "2124"},
		{inr, "2199", "1869"},
	}
	for _, tc := range cases {
		got := tc.cur.SubscriptionPrice(dec(tc.price))
		assert.True(t, got.Equal(dec(tc.want)), "%s %s: got %s", tc.cur.Code, tc.price, got)
	}
}

func TestCurrency_Format(t *testing.T) {
	assert.Equal(t, "$51.30", usd.Format(dec("51.3")))
	assert.Equal(t, "$18.00", usd.Format(dec("18")))
	assert.Equal(t, "₹1,274", inr.Format(dec("1274.15")))
	assert.Equal(t, "$0.00", usd.Format(dec("0")))
	assert.Equal(t, "$0.00", usd.Format(dec("-0.001")))
}

func TestCurrency_FormatKeepsPrecision(t *testing.T) {
	assert.Equal(t, "$12,345,678,901,234,567.89", usd.Format(dec("12345678901234567.89")))
	assert.Equal(t, "$0.10", usd.Format(dec("0.1")))
	assert.Equal(t, "₹10,000,000", inr.Format(dec("9999999.5")))
	assert.Equal(t, "$123456789012345678901.00", usd.Format(dec("123456789012345678901")))
}

func TestCurrency_FormatNegative(t *testing.T) {
	assert.Equal(t, "-$3.00", usd.Format(dec("-3")))
	assert.Equal(t, "-₹1,726", inr.Format(dec("-1726")))
}

func TestFreeShipping(t *testing.T) {
	threshold := dec("50")

	p := FreeShipping(dec("0"), threshold)
	assert.True(t, p.Percent.IsZero())
	assert.True(t, p.Remaining.Equal(threshold))
	assert.False(t, p.Unlocked)

	p = FreeShipping(dec("25"), threshold)
	assert.True(t, p.Percent.Equal(dec("50")))
	assert.True(t, p.Remaining.Equal(dec("25")))

	for _, s := range []string{"50", "51.30", "500"} {
		p = FreeShipping(dec(s), threshold)
		assert.True(t, p.Percent.Equal(dec("100")), "subtotal %s", s)
		assert.True(t, p.Remaining.IsZero())
		assert.True(t, p.Unlocked)
	}
}

func TestFreeShipping_Monotonic(t *testing.T) {
	threshold := dec("3000")
	prev := FreeShipping(dec("0"), threshold).Percent
	for s := int64(0); s <= 4000; s += 137 {
		cur := FreeShipping(decimal.NewFromInt(s), threshold).Percent
		assert.False(t, cur.LessThan(prev), "progress decreased at %d", s)
		prev = cur
	}
}
