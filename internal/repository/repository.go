package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	NameSubstring string
	BestSeller    bool
}

// IngredientFilter поиск по глоссарию: по имени или по функции
type IngredientFilter struct {
	Term string
}

// CatalogRepository неизменяемый каталог витрины
type CatalogRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	// FindByName первый товар в порядке каталога, имя которого содержит name
	FindByName(ctx context.Context, name string) (*domain.Product, error)
	Ingredients(ctx context.Context, f IngredientFilter) ([]domain.Ingredient, error)
}

// SessionRepository хранилище состояния сессий покупателей
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.SessionState, error)
	Save(ctx context.Context, id string, s *domain.SessionState) error
	Delete(ctx context.Context, id string) error
}

// TxManager сериализует изменения одной сессии. Разные сессии друг друга не блокируют.
type TxManager interface {
	WithSession(ctx context.Context, id string, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
