package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PurchaseMode режим покупки на странице товара
type PurchaseMode string

const (
	PurchaseOneTime   PurchaseMode = "one-time"
	PurchaseSubscribe PurchaseMode = "subscribe"
)

var ErrUnknownPurchaseMode = errors.New("unknown purchase mode")

// ParsePurchaseMode проверяет строковое значение режима
func ParsePurchaseMode(s string) (PurchaseMode, error) {
	switch PurchaseMode(s) {
	case PurchaseOneTime, PurchaseSubscribe:
		return PurchaseMode(s), nil
	}
	return "", ErrUnknownPurchaseMode
}

// IsSubscription значение флага для Cart.AddItem
func (m PurchaseMode) IsSubscription() bool { return m == PurchaseSubscribe }

// ProductView открытая карточка товара и выбранный режим покупки
type ProductView struct {
	ProductID string       `json:"product_id"`
	Mode      PurchaseMode `json:"mode"`
}

// Show открывает карточку товара. Переход на другой товар сбрасывает режим на разовую покупку.
func (v *ProductView) Show(productID string) {
	if v.ProductID != productID || v.Mode == "" {
		v.ProductID = productID
		v.Mode = PurchaseOneTime
	}
}

// Select выбирает режим покупки
func (v *ProductView) Select(m PurchaseMode) { v.Mode = m }

// DisplayPrice цена, которую показывает карточка для текущего режима
func (v ProductView) DisplayPrice(p Product, cur Currency) decimal.Decimal {
	return cur.UnitPrice(p.Price, v.Mode.IsSubscription())
}
