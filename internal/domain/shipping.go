package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ShippingProgress прогресс до бесплатной доставки
type ShippingProgress struct {
	Threshold decimal.Decimal `json:"threshold"`
	// Percent от 0 до 100
	Percent   decimal.Decimal `json:"percent"`
	Remaining decimal.Decimal `json:"remaining"`
	Unlocked  bool            `json:"unlocked"`
}

// FreeShipping считает прогресс для суммы корзины. Нулевой или отрицательный
// порог означает, что доставка всегда бесплатная.
func FreeShipping(subtotal, threshold decimal.Decimal) ShippingProgress {
	if !threshold.IsPositive() {
		return ShippingProgress{Threshold: threshold, Percent: hundred, Remaining: decimal.Zero, Unlocked: true}
	}
	percent := subtotal.Div(threshold).Mul(hundred)
	if percent.GreaterThan(hundred) {
		percent = hundred
	}
	if percent.IsNegative() {
		percent = decimal.Zero
	}
	remaining := threshold.Sub(subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return ShippingProgress{
		Threshold: threshold,
		Percent:   percent.Round(2),
		Remaining: remaining,
		Unlocked:  remaining.IsZero(),
	}
}
