package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxRounds   = 3
)

var (
	ErrBusy         = errors.New("assistant is already answering")
	ErrEmptyMessage = errors.New("empty message")
)

var tracer = otel.Tracer("storefront/assistant")

// Catalog каталог, в котором ассистент ищет товары по названию
type Catalog interface {
	FindByName(ctx context.Context, name string) (*domain.Product, error)
	List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error)
}

// Cart корзина сессии, над которой ассистент выполняет действия
type Cart interface {
	AddItem(ctx context.Context, productID string, isSubscription bool) error
	Open(ctx context.Context) error
}

// Options параметры моста
type Options struct {
	Copy     domain.AssistantCopy
	Currency domain.Currency
	// Temperature nil означает DefaultTemperature; явный 0 сохраняется
	Temperature *float32
	MaxRounds   int
	Logger      *zap.Logger
}

// Bridge диалог одной сессии: история, отправка сообщений и выполнение действий модели
type Bridge struct {
	model   Model
	catalog Catalog
	cart    Cart
	opts    Options
	logger  *zap.Logger

	temperature float32

	mu       sync.Mutex
	chat     Chat
	history  []domain.Message
	lastUsed time.Time

	inFlight atomic.Bool
}

func NewBridge(model Model, catalog Catalog, cart Cart, opts Options) *Bridge {
	temperature := float32(DefaultTemperature)
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		model:    model,
		catalog:  catalog,
		cart:     cart,
		opts:     opts,
		logger:   logger,
		lastUsed: time.Now(),

		temperature: temperature,
	}
	if opts.Copy.Greeting != "" {
		b.history = append(b.history, domain.Message{Role: domain.RoleAssistant, Text: opts.Copy.Greeting})
	}
	return b
}

// Open открывает диалог. Повторный вызов использует ту же сессию модели.
func (b *Bridge) Open(ctx context.Context) []domain.Message {
	b.session(ctx)
	return b.History()
}

// History копия истории сообщений
func (b *Bridge) History() []domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Message, len(b.history))
	copy(out, b.history)
	return out
}

// Pending true пока модель готовит ответ
func (b *Bridge) Pending() bool { return b.inFlight.Load() }

func (b *Bridge) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

func (b *Bridge) appendMessage(m domain.Message) {
	b.mu.Lock()
	b.history = append(b.history, m)
	b.lastUsed = time.Now()
	b.mu.Unlock()
}

func (b *Bridge) session(ctx context.Context) Chat {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUsed = time.Now()
	if b.chat != nil {
		return b.chat
	}
	b.chat = b.model.NewChat(ChatConfig{
		SystemInstruction: b.opts.Copy.SystemInstruction,
		Temperature:       b.temperature,
		Functions:         Declarations(b.productNames(ctx)),
	})
	return b.chat
}

func (b *Bridge) productNames(ctx context.Context) []string {
	products, err := b.catalog.List(ctx, repository.ProductFilter{})
	if err != nil {
		b.logger.Warn("catalog listing failed", zap.Error(err))
		return nil
	}
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return names
}

// Send отправляет сообщение покупателя и возвращает ответ ассистента.
// Ошибка модели превращается в резервный ответ, диалог остаётся рабочим.
func (b *Bridge) Send(ctx context.Context, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	if !b.inFlight.CompareAndSwap(false, true) {
		return domain.Message{}, ErrBusy
	}
	defer b.inFlight.Store(false)

	// the reply is kept even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "assistant.send")
	defer span.End()

	b.appendMessage(domain.Message{Role: domain.RoleUser, Text: text})

	reply, actions, err := b.converse(ctx, text)
	span.SetAttributes(attribute.Int("assistant.actions", actions))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Error("assistant turn failed", zap.Error(err), zap.Int("actions", actions))
		reply = b.opts.Copy.Fallback
	}

	msg := domain.Message{Role: domain.RoleAssistant, Text: reply}
	b.appendMessage(msg)
	return msg, nil
}

func (b *Bridge) converse(ctx context.Context, text string) (string, int, error) {
	chat := b.session(ctx)
	resp, err := chat.Send(ctx, text)
	if err != nil {
		return "", 0, err
	}

	actions := 0
	for round := 0; len(resp.Calls) > 0 && round < b.opts.MaxRounds; round++ {
		results := make([]FunctionResult, 0, len(resp.Calls))
		for _, call := range resp.Calls {
			results = append(results, FunctionResult{
				ID:     call.ID,
				Name:   call.Name,
				Result: b.execute(ctx, call),
			})
			actions++
		}
		resp, err = chat.SendResults(ctx, results)
		if err != nil {
			return "", actions, err
		}
	}
	if len(resp.Calls) > 0 {
		b.logger.Warn("action rounds exhausted", zap.Int("pending", len(resp.Calls)))
	}

	reply := sanitize(resp.Text)
	if reply == "" {
		reply = b.opts.Copy.WrapUp
	}
	if reply == "" {
		return "", actions, errors.New("model returned no text")
	}
	return reply, actions, nil
}

// sanitize markdown emphasis is not rendered
func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
}

func (b *Bridge) execute(ctx context.Context, call FunctionCall) string {
	action, err := DecodeAction(call)
	if err != nil {
		b.logger.Warn("unsupported action", zap.String("name", call.Name))
		return fmt.Sprintf("The action %s is not available.", call.Name)
	}
	b.logger.Info("executing action", zap.String("name", call.Name))

	switch a := action.(type) {
	case AddToCart:
		return b.addToCart(ctx, a)
	case ShowCart:
		if err := b.cart.Open(ctx); err != nil {
			b.logger.Error("open cart failed", zap.Error(err))
			return "I couldn't open your cart right now."
		}
		return "I have opened your cart for you."
	case GetProductDetails:
		return b.productDetails(ctx, a)
	default:
		return fmt.Sprintf("The action %s is not available.", call.Name)
	}
}

func (b *Bridge) addToCart(ctx context.Context, a AddToCart) string {
	p, err := b.catalog.FindByName(ctx, a.ProductName)
	if err != nil {
		return fmt.Sprintf("I couldn't find a product named %s. We have %s.", a.ProductName, joinAnd(b.productNames(ctx)))
	}
	if err := b.cart.AddItem(ctx, p.ID, a.IsSubscription); err != nil {
		b.logger.Error("add to cart failed", zap.Error(err), zap.String("product_id", p.ID))
		return "I couldn't update your cart right now."
	}
	mode := "one-time"
	if a.IsSubscription {
		mode = "subscription"
	}
	return fmt.Sprintf("I have added %s (%s) to your cart.", p.Name, mode)
}

func (b *Bridge) productDetails(ctx context.Context, a GetProductDetails) string {
	p, err := b.catalog.FindByName(ctx, a.ProductName)
	if err != nil {
		return fmt.Sprintf("I'm sorry, I couldn't find details for %s.", a.ProductName)
	}
	return fmt.Sprintf("%s: %s. It features %s. Price: %s.",
		p.Name,
		strings.TrimRight(p.Description, ". "),
		strings.Join(p.IngredientNames(), ", "),
		b.opts.Currency.Format(p.Price),
	)
}
