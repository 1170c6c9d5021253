package domain

import "github.com/shopspring/decimal"

// CartItem позиция корзины. Ключ позиции — пара (ID, IsSubscription).
type CartItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Image          string          `json:"image"`
	Quantity       int             `json:"quantity"`
	IsSubscription bool            `json:"is_subscription"`
}

// LineTotal цена позиции с учётом количества
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart корзина сессии: позиции в порядке добавления и флаг открытой корзины
type Cart struct {
	Items  []CartItem `json:"items"`
	IsOpen bool       `json:"is_open"`
}

// AddItem добавляет товар или увеличивает количество существующей позиции
// с тем же ключом. Цена фиксируется в момент первого добавления. Корзина открывается.
func (c *Cart) AddItem(p Product, isSubscription bool, cur Currency) {
	c.IsOpen = true
	for i := range c.Items {
		if c.Items[i].ID == p.ID && c.Items[i].IsSubscription == isSubscription {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, CartItem{
		ID:             p.ID,
		Name:           p.Name,
		Price:          cur.UnitPrice(p.Price, isSubscription),
		Image:          p.Image,
		Quantity:       1,
		IsSubscription: isSubscription,
	})
}

// RemoveItem удаляет все позиции товара, и разовую, и по подписке
func (c *Cart) RemoveItem(id string) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	// clear the tail so removed items are not retained by the backing array
	for i := len(kept); i < len(c.Items); i++ {
		c.Items[i] = CartItem{}
	}
	c.Items = kept
}

// UpdateQuantity меняет количество у всех позиций товара; минимум 1, позиция не удаляется
func (c *Cart) UpdateQuantity(id string, delta int) {
	for i := range c.Items {
		if c.Items[i].ID != id {
			continue
		}
		q := c.Items[i].Quantity + delta
		if q < 1 {
			q = 1
		}
		c.Items[i].Quantity = q
	}
}

func (c *Cart) Open()  { c.IsOpen = true }
func (c *Cart) Close() { c.IsOpen = false }

// TotalItems сумма количеств
func (c Cart) TotalItems() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Subtotal сумма price × quantity по всем позициям
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
