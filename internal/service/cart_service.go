package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ErrNoProductView режим покупки выбирают только при открытой карточке товара
var ErrNoProductView = errors.New("no product view open")

// CartSummary корзина вместе с производными значениями. Считается заново при каждом чтении.
type CartSummary struct {
	Items      []domain.CartItem       `json:"items"`
	IsOpen     bool                    `json:"is_open"`
	TotalItems int                     `json:"total_items"`
	Subtotal   decimal.Decimal         `json:"subtotal"`
	Shipping   domain.ShippingProgress `json:"shipping"`
	Currency   domain.Currency         `json:"currency"`
	// Display суммы, отформатированные по правилам валюты
	Display struct {
		Subtotal  string `json:"subtotal"`
		Remaining string `json:"remaining"`
	} `json:"display"`
}

// ViewSummary карточка товара с выбранным режимом покупки
type ViewSummary struct {
	Product      domain.Product      `json:"product"`
	Mode         domain.PurchaseMode `json:"mode"`
	CatalogPrice decimal.Decimal     `json:"catalog_price"`
	DisplayPrice decimal.Decimal     `json:"display_price"`
	Display      string              `json:"display"`
}

// CartService применяет операции корзины и карточки товара к состоянию сессии.
// Каждое изменение — загрузка, операция и сохранение под блокировкой сессии.
type CartService struct {
	catalog   repository.CatalogRepository
	sessions  repository.SessionRepository
	tx        repository.TxManager
	currency  domain.Currency
	threshold decimal.Decimal
	logger    *zap.Logger
}

func NewCartService(catalog repository.CatalogRepository, sessions repository.SessionRepository, tx repository.TxManager, profile *domain.Profile, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		catalog:   catalog,
		sessions:  sessions,
		tx:        tx,
		currency:  profile.Currency,
		threshold: profile.FreeShippingThreshold,
		logger:    logger,
	}
}

func (s *CartService) load(ctx context.Context, sid string) (*domain.SessionState, error) {
	st, err := s.sessions.Get(ctx, sid)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.SessionState{}, nil
	}
	return st, err
}

func (s *CartService) update(ctx context.Context, sid string, fn func(ctx context.Context, st *domain.SessionState) error) (*domain.SessionState, error) {
	if strings.TrimSpace(sid) == "" {
		return nil, ErrInvalidInput
	}
	var updated *domain.SessionState
	err := s.tx.WithSession(ctx, sid, func(ctx context.Context) error {
		st, err := s.load(ctx, sid)
		if err != nil {
			return err
		}
		if err := fn(ctx, st); err != nil {
			return err
		}
		if err := s.sessions.Save(ctx, sid, st); err != nil {
			return err
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Summary производные значения корзины
func (s *CartService) Summary(c domain.Cart) *CartSummary {
	sum := &CartSummary{
		Items:      c.Items,
		IsOpen:     c.IsOpen,
		TotalItems: c.TotalItems(),
		Subtotal:   c.Subtotal(),
		Currency:   s.currency,
	}
	if sum.Items == nil {
		sum.Items = []domain.CartItem{}
	}
	sum.Shipping = domain.FreeShipping(sum.Subtotal, s.threshold)
	sum.Display.Subtotal = s.currency.Format(sum.Subtotal)
	sum.Display.Remaining = s.currency.Format(sum.Shipping.Remaining)
	return sum
}

// Cart текущая корзина сессии
func (s *CartService) Cart(ctx context.Context, sid string) (*CartSummary, error) {
	if strings.TrimSpace(sid) == "" {
		return nil, ErrInvalidInput
	}
	st, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.Summary(st.Cart), nil
}

// AddItem добавляет товар каталога в корзину
func (s *CartService) AddItem(ctx context.Context, sid, productID string, isSubscription bool) (*CartSummary, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	st, err := s.update(ctx, sid, func(ctx context.Context, st *domain.SessionState) error {
		st.Cart.AddItem(*p, isSubscription, s.currency)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("cart item added", zap.String("session", sid), zap.String("product_id", p.ID), zap.Bool("subscription", isSubscription))
	return s.Summary(st.Cart), nil
}

// RemoveItem удаляет все позиции товара
func (s *CartService) RemoveItem(ctx context.Context, sid, productID string) (*CartSummary, error) {
	st, err := s.update(ctx, sid, func(ctx context.Context, st *domain.SessionState) error {
		st.Cart.RemoveItem(productID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(st.Cart), nil
}

// UpdateQuantity меняет количество на delta, минимум 1
func (s *CartService) UpdateQuantity(ctx context.Context, sid, productID string, delta int) (*CartSummary, error) {
	st, err := s.update(ctx, sid, func(ctx context.Context, st *domain.SessionState) error {
		st.Cart.UpdateQuantity(productID, delta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(st.Cart), nil
}

func (s *CartService) OpenCart(ctx context.Context, sid string) (*CartSummary, error) {
	return s.setOpen(ctx, sid, true)
}

func (s *CartService) CloseCart(ctx context.Context, sid string) (*CartSummary, error) {
	return s.setOpen(ctx, sid, false)
}

func (s *CartService) setOpen(ctx context.Context, sid string, open bool) (*CartSummary, error) {
	st, err := s.update(ctx, sid, func(ctx context.Context, st *domain.SessionState) error {
		if open {
			st.Cart.Open()
		} else {
			st.Cart.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(st.Cart), nil
}

func (s *CartService) viewSummary(p *domain.Product, v domain.ProductView) *ViewSummary {
	price := v.DisplayPrice(*p, s.currency)
	return &ViewSummary{
		Product:      *p,
		Mode:         v.Mode,
		CatalogPrice: p.Price,
		DisplayPrice: price,
		Display:      s.currency.Format(price),
	}
}

// ShowProduct открывает карточку товара; при смене товара режим сбрасывается на разовую покупку
func (s *CartService) ShowProduct(ctx context.Context, sid, productID string) (*ViewSummary, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	st, err := s.update(ctx, sid, func(ctx context.Context, st *domain.SessionState) error {
		st.View.Show(p.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.viewSummary(p, st.View), nil
}

// SelectMode выбирает режим покупки в открытой карточке
func (s *CartService) SelectMode(ctx context.Context, sid string, mode domain.PurchaseMode) (*ViewSummary, error) {
	if _, err := domain.ParsePurchaseMode(string(mode)); err != nil {
		return nil, ErrInvalidInput
	}
	var p *domain.Product
	st, err := s.update(ctx, sid, func(ctx context.Context, st *domain.SessionState) error {
		if st.View.ProductID == "" {
			return ErrNoProductView
		}
		var err error
		p, err = s.catalog.GetByID(ctx, st.View.ProductID)
		if err != nil {
			return err
		}
		st.View.Select(mode)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.viewSummary(p, st.View), nil
}

// AddFromView добавляет товар открытой карточки в выбранном режиме
func (s *CartService) AddFromView(ctx context.Context, sid string) (*CartSummary, error) {
	st, err := s.update(ctx, sid, func(ctx context.Context, st *domain.SessionState) error {
		if st.View.ProductID == "" {
			return ErrNoProductView
		}
		p, err := s.catalog.GetByID(ctx, st.View.ProductID)
		if err != nil {
			return err
		}
		st.Cart.AddItem(*p, st.View.Mode.IsSubscription(), s.currency)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(st.Cart), nil
}

// SessionCart корзина одной сессии, через которую ассистент выполняет действия
type SessionCart struct {
	svc *CartService
	sid string
}

// ForSession привязывает сервис к сессии
func (s *CartService) ForSession(sid string) *SessionCart {
	return &SessionCart{svc: s, sid: sid}
}

func (c *SessionCart) AddItem(ctx context.Context, productID string, isSubscription bool) error {
	_, err := c.svc.AddItem(ctx, c.sid, productID, isSubscription)
	return err
}

func (c *SessionCart) Open(ctx context.Context) error {
	_, err := c.svc.OpenCart(ctx, c.sid)
	return err
}
