package assistant

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ActionAddToCart         = "add_to_cart"
	ActionShowCart          = "show_cart"
	ActionGetProductDetails = "get_product_details"
)

// Action закрытый набор действий ассистента. Реализации есть только в этом пакете.
type Action interface {
	actionName() string
}

// AddToCart добавить товар в корзину
type AddToCart struct {
	ProductName    string
	IsSubscription bool
}

// ShowCart открыть корзину
type ShowCart struct{}

// GetProductDetails описание товара
type GetProductDetails struct {
	ProductName string
}

func (AddToCart) actionName() string         { return ActionAddToCart }
func (ShowCart) actionName() string          { return ActionShowCart }
func (GetProductDetails) actionName() string { return ActionGetProductDetails }

// UnsupportedActionError модель вызвала действие, которое не объявлялось
type UnsupportedActionError struct {
	Name string
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported action %q", e.Name)
}

// DecodeAction превращает вызов модели в типизированное действие
func DecodeAction(call FunctionCall) (Action, error) {
	switch call.Name {
	case ActionAddToCart:
		return AddToCart{
			ProductName:    stringArg(call.Args, "productName"),
			IsSubscription: boolArg(call.Args, "isSubscription"),
		}, nil
	case ActionShowCart:
		return ShowCart{}, nil
	case ActionGetProductDetails:
		return GetProductDetails{ProductName: stringArg(call.Args, "productName")}, nil
	}
	return nil, &UnsupportedActionError{Name: call.Name}
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// boolArg truthiness: the model may send "true" as a string
func boolArg(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case float64:
		return v != 0
	}
	return false
}

// Declarations действия, объявляемые модели
func Declarations(productNames []string) []FunctionDeclaration {
	nameHint := "The name of the product."
	if len(productNames) > 0 {
		nameHint = fmt.Sprintf("The name of the product (%s).", joinOr(productNames))
	}
	return []FunctionDeclaration{
		{
			Name:        ActionAddToCart,
			Description: "Adds a product from the catalog to the shopping cart.",
			Parameters: &Schema{
				Type: TypeObject,
				Properties: map[string]Schema{
					"productName": {Type: TypeString, Description: nameHint},
					"isSubscription": {
						Type:        TypeBoolean,
						Description: "True if the user wants to subscribe and save 15%, false for one-time purchase.",
					},
				},
				Required: []string{"productName", "isSubscription"},
			},
		},
		{
			Name:        ActionShowCart,
			Description: "Opens the shopping cart drawer for the user to view their items.",
			Parameters:  &Schema{Type: TypeObject, Properties: map[string]Schema{}},
		},
		{
			Name:        ActionGetProductDetails,
			Description: "Retrieves detailed information about a specific product.",
			Parameters: &Schema{
				Type: TypeObject,
				Properties: map[string]Schema{
					"productName": {Type: TypeString, Description: "The name of the product to look up."},
				},
				Required: []string{"productName"},
			},
		},
	}
}

// joinAnd "A, B, and C"
func joinAnd(names []string) string { return joinList(names, "and") }

// joinOr "A, B, or C"
func joinOr(names []string) string { return joinList(names, "or") }

func joinList(names []string, conj string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " " + conj + " " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", " + conj + " " + names[len(names)-1]
}
