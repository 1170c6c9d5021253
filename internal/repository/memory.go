package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"
)

// MemoryCatalog каталог, загруженный при старте. После создания не меняется,
// поэтому чтение блокировок не требует.
type MemoryCatalog struct {
	products    []domain.Product
	byID        map[string]int
	ingredients []domain.Ingredient
}

func NewMemoryCatalog(products []domain.Product, ingredients []domain.Ingredient) *MemoryCatalog {
	c := &MemoryCatalog{
		products:    append([]domain.Product(nil), products...),
		byID:        make(map[string]int, len(products)),
		ingredients: append([]domain.Ingredient(nil), ingredients...),
	}
	for i, p := range c.products {
		c.byID[p.ID] = i
	}
	return c
}

// NewProfileCatalog каталог витрины
func NewProfileCatalog(p *domain.Profile) *MemoryCatalog {
	return NewMemoryCatalog(p.Products, p.Ingredients)
}

// Ensure interfaces
var _ CatalogRepository = (*MemoryCatalog)(nil)

func (m *MemoryCatalog) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	i, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := m.products[i]
	return &cp, nil
}

func (m *MemoryCatalog) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		if f.BestSeller && !p.BestSeller {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *MemoryCatalog) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	for _, p := range m.products {
		if containsIgnoreCase(p.Name, name) {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryCatalog) Ingredients(ctx context.Context, f IngredientFilter) ([]domain.Ingredient, error) {
	out := make([]domain.Ingredient, 0, len(m.ingredients))
	for _, ing := range m.ingredients {
		if containsIgnoreCase(ing.Name, f.Term) || containsIgnoreCase(ing.Function, f.Term) {
			out = append(out, ing)
		}
	}
	return out, nil
}

// MemorySessions in-memory хранилище сессий с TTL
type MemorySessions struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memorySession
}

type memorySession struct {
	state     domain.SessionState
	expiresAt time.Time
}

// NewMemorySessions ttl <= 0 отключает истечение сессий
func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memorySession),
	}
}

var _ SessionRepository = (*MemorySessions)(nil)

func (m *MemorySessions) expired(s memorySession) bool {
	return m.ttl > 0 && !m.now().Before(s.expiresAt)
}

func (m *MemorySessions) Get(ctx context.Context, id string) (*domain.SessionState, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || m.expired(s) {
		return nil, ErrNotFound
	}
	// return copy
	cp := s.state
	cp.Cart.Items = append([]domain.CartItem(nil), s.state.Cart.Items...)
	return &cp, nil
}

func (m *MemorySessions) Save(ctx context.Context, id string, s *domain.SessionState) error {
	cp := *s
	cp.Cart.Items = append([]domain.CartItem(nil), s.Cart.Items...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = memorySession{state: cp, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemorySessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Sweep удаляет истёкшие сессии и возвращает их число
func (m *MemorySessions) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// MemoryTx блокировка на сессию, эмулирует границу транзакции
type MemoryTx struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemoryTx() *MemoryTx { return &MemoryTx{locks: make(map[string]*sessionLock)} }

var _ TxManager = (*MemoryTx)(nil)

func (tx *MemoryTx) WithSession(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	tx.mu.Lock()
	l, ok := tx.locks[id]
	if !ok {
		l = &sessionLock{}
		tx.locks[id] = l
	}
	l.refs++
	tx.mu.Unlock()

	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		tx.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(tx.locks, id)
		}
		tx.mu.Unlock()
	}()
	return fn(ctx)
}
