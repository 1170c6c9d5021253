package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SubscriptionRate доля цены, которую платит подписчик (скидка 15%)
var SubscriptionRate = decimal.RequireFromString("0.85")

// Currency валюта витрины
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	// Places число знаков после запятой: 2 для USD, 0 для INR
	Places int32 `json:"places"`
}

// Round округляет сумму по правилам валюты
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Places)
}

// SubscriptionPrice цена единицы по подписке
func (c Currency) SubscriptionPrice(price decimal.Decimal) decimal.Decimal {
	return c.Round(price.Mul(SubscriptionRate))
}

// UnitPrice цена единицы для выбранного режима покупки
func (c Currency) UnitPrice(price decimal.Decimal, isSubscription bool) decimal.Decimal {
	if isSubscription {
		return c.SubscriptionPrice(price)
	}
	return price
}

// Format форматирует сумму для отображения: "$51.30", "₹1,274", "-$3.00".
// Значение не проходит через float: дробная часть берётся из StringFixed.
func (c Currency) Format(d decimal.Decimal) string {
	r := c.Round(d)
	sign := ""
	if r.IsNegative() {
		sign, r = "-", r.Neg()
	}
	whole, frac, _ := strings.Cut(r.StringFixed(c.Places), ".")
	// amounts beyond uint64 keep ungrouped digits
	if n := r.Truncate(0).BigInt(); n.IsUint64() {
		whole = message.NewPrinter(language.English).Sprintf("%d", n.Uint64())
	}
	if frac != "" {
		whole += "." + frac
	}
	return sign + c.Symbol + whole
}
