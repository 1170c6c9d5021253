package domain

import "github.com/shopspring/decimal"

// Ingredient запись глоссария ингредиентов
type Ingredient struct {
	Name     string `json:"name" yaml:"name"`
	Source   string `json:"source" yaml:"source"`
	Function string `json:"function" yaml:"function"`
	Benefit  string `json:"benefit" yaml:"benefit"`
}

// Product позиция каталога. Загружается один раз и больше не меняется.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Description  string          `json:"description"`
	Image        string          `json:"image"`
	TextureImage string          `json:"texture_image,omitempty"`
	Ingredients  []Ingredient    `json:"ingredients"`
	Reviews      int             `json:"reviews"`
	Rating       float64         `json:"rating"`
	BestSeller   bool            `json:"best_seller,omitempty"`
}

// IngredientNames имена ингредиентов в порядке каталога
func (p Product) IngredientNames() []string {
	out := make([]string, 0, len(p.Ingredients))
	for _, ing := range p.Ingredients {
		out = append(out, ing.Name)
	}
	return out
}

// Role автор сообщения в диалоге с ассистентом
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message сообщение диалога
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// AssistantCopy тексты ассистента, зависящие от витрины
type AssistantCopy struct {
	Greeting          string
	Fallback          string
	WrapUp            string
	SystemInstruction string
}

// Profile витрина: каталог, валюта, порог бесплатной доставки и тексты ассистента
type Profile struct {
	Name                  string
	Currency              Currency
	FreeShippingThreshold decimal.Decimal
	Ingredients           []Ingredient
	Products              []Product
	Assistant             AssistantCopy
}

// SessionState состояние одной сессии покупателя
type SessionState struct {
	Cart Cart        `json:"cart"`
	View ProductView `json:"view"`
}
