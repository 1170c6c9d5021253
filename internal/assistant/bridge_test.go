package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type scriptedChat struct {
	mu        sync.Mutex
	responses []*Response
	errs      []error
	sent      []string
	results   [][]FunctionResult
	block     chan struct{}
}

func (c *scriptedChat) next() (*Response, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(c.responses) == 0 {
		return &Response{}, nil
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	return r, nil
}

func (c *scriptedChat) Send(_ context.Context, text string) (*Response, error) {
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	return c.next()
}

func (c *scriptedChat) SendResults(_ context.Context, results []FunctionResult) (*Response, error) {
	c.mu.Lock()
	c.results = append(c.results, results)
	c.mu.Unlock()
	return c.next()
}

type fakeModel struct {
	chat    *scriptedChat
	configs []ChatConfig
}

func (m *fakeModel) NewChat(cfg ChatConfig) Chat {
	m.configs = append(m.configs, cfg)
	return m.chat
}

type fixture struct {
	catalog *service.CatalogService
	model   *fakeModel
	chat    *scriptedChat
	cart    *service.CartService
	bridge  *Bridge
}

func setup(t *testing.T, responses ...*Response) *fixture {
	t.Helper()
	p, err := repository.LoadProfile("vela-flora")
	require.NoError(t, err)
	repo := repository.NewProfileCatalog(p)
	catalog := service.NewCatalogService(repo, p)
	carts := service.NewCartService(repo, repository.NewMemorySessions(0), repository.NewMemoryTx(), p, nil)

	chat := &scriptedChat{responses: responses}
	model := &fakeModel{chat: chat}
	b := NewBridge(model, catalog, carts.ForSession("s1"), Options{Copy: p.Assistant, Currency: p.Currency})
	return &fixture{catalog: catalog, model: model, chat: chat, cart: carts, bridge: b}
}

func call(name string, args map[string]any) FunctionCall {
	return FunctionCall{ID: name + "-1", Name: name, Args: args}
}

func TestBridge_GreetingAndLazyChat(t *testing.T) {
	f := setup(t)

	h := f.bridge.History()
	require.Len(t, h, 1)
	assert.Equal(t, domain.RoleAssistant, h[0].Role)
	assert.Contains(t, h[0].Text, "Flora Guide")
	assert.Empty(t, f.model.configs)

	f.bridge.Open(context.Background())
	f.bridge.Open(context.Background())
	require.Len(t, f.model.configs, 1)

	cfg := f.model.configs[0]
	assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
	assert.Contains(t, cfg.SystemInstruction, "Flora Guide")
	require.Len(t, cfg.Functions, 3)
	assert.Equal(t, ActionAddToCart, cfg.Functions[0].Name)
	assert.Contains(t, cfg.Functions[0].Parameters.Properties["productName"].Description, "The Dew Stick, Bloom Balm, or The Night Mask")
}

func TestBridge_ExplicitZeroTemperature(t *testing.T) {
	f := setup(t)
	zero := float32(0)
	b := NewBridge(f.model, f.catalog, f.cart.ForSession("s2"), Options{Temperature: &zero})
	b.Open(context.Background())

	require.Len(t, f.model.configs, 1)
	assert.Zero(t, f.model.configs[0].Temperature)
}

func TestBridge_PlainReply(t *testing.T) {
	f := setup(t, &Response{Text: "Our **Bloom Balm** is a *favourite*."})

	msg, err := f.bridge.Send(context.Background(), "  what do you recommend?  ")
	require.NoError(t, err)
	assert.Equal(t, "Our Bloom Balm is a favourite.", msg.Text)
	assert.Equal(t, []string{"what do you recommend?"}, f.chat.sent)

	h := f.bridge.History()
	require.Len(t, h, 3)
	assert.Equal(t, domain.RoleUser, h[1].Role)
	assert.Equal(t, domain.RoleAssistant, h[2].Role)
}

func TestBridge_EmptyMessage(t *testing.T) {
	f := setup(t)
	_, err := f.bridge.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Len(t, f.bridge.History(), 1)
}

func TestBridge_AddToCartAction(t *testing.T) {
	f := setup(t,
		&Response{Calls: []FunctionCall{call(ActionAddToCart, map[string]any{"productName": "dew stick", "isSubscription": true})}},
		&Response{Text: "Done. Your Dew Stick is on its way every month."},
	)

	msg, err := f.bridge.Send(context.Background(), "subscribe me to the dew stick")
	require.NoError(t, err)
	assert.Equal(t, "Done. Your Dew Stick is on its way every month.", msg.Text)

	require.Len(t, f.chat.results, 1)
	assert.Equal(t, "I have added The Dew Stick (subscription) to your cart.", f.chat.results[0][0].Result)
	assert.Equal(t, ActionAddToCart, f.chat.results[0][0].Name)

	sum, err := f.cart.Cart(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, sum.Items, 1)
	assert.True(t, sum.Items[0].IsSubscription)
	assert.True(t, sum.IsOpen)
}

func TestBridge_UnknownProduct(t *testing.T) {
	f := setup(t,
		&Response{Calls: []FunctionCall{call(ActionAddToCart, map[string]any{"productName": "Lip Oil"})}},
		&Response{},
	)

	msg, err := f.bridge.Send(context.Background(), "add lip oil")
	require.NoError(t, err)
	assert.Equal(t, f.bridge.opts.Copy.WrapUp, msg.Text)
	assert.Equal(t,
		"I couldn't find a product named Lip Oil. We have The Dew Stick, Bloom Balm, and The Night Mask.",
		f.chat.results[0][0].Result)

	sum, err := f.cart.Cart(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, sum.Items)
}

func TestBridge_ShowCartAndDetails(t *testing.T) {
	f := setup(t,
		&Response{Calls: []FunctionCall{
			call(ActionShowCart, nil),
			call(ActionGetProductDetails, map[string]any{"productName": "night mask"}),
			call(ActionGetProductDetails, map[string]any{"productName": "sunscreen"}),
			call("checkout", nil),
		}},
		&Response{Text: "Here you go."},
	)

	_, err := f.bridge.Send(context.Background(), "show me my cart and tell me about the mask")
	require.NoError(t, err)

	require.Len(t, f.chat.results, 1)
	res := f.chat.results[0]
	require.Len(t, res, 4)
	assert.Equal(t, "I have opened your cart for you.", res[0].Result)
	assert.Contains(t, res[1].Result, "The Night Mask: ")
	assert.Contains(t, res[1].Result, "It features ")
	assert.Contains(t, res[1].Result, "Price: $26.00.")
	assert.Equal(t, "I'm sorry, I couldn't find details for sunscreen.", res[2].Result)
	assert.Equal(t, "The action checkout is not available.", res[3].Result)

	sum, err := f.cart.Cart(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, sum.IsOpen)
}

func TestBridge_MaxRounds(t *testing.T) {
	again := &Response{Calls: []FunctionCall{call(ActionShowCart, nil)}}
	f := setup(t, again, again, again, again, again)

	msg, err := f.bridge.Send(context.Background(), "loop")
	require.NoError(t, err)
	assert.Len(t, f.chat.results, DefaultMaxRounds)
	assert.Equal(t, f.bridge.opts.Copy.WrapUp, msg.Text)
}

func TestBridge_ModelErrorFallsBack(t *testing.T) {
	f := setup(t, &Response{Text: "I'm back."})
	f.chat.errs = []error{errors.New("upstream 503")}

	msg, err := f.bridge.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, f.bridge.opts.Copy.Fallback, msg.Text)

	msg, err = f.bridge.Send(context.Background(), "hello again")
	require.NoError(t, err)
	assert.Equal(t, "I'm back.", msg.Text)
	assert.Len(t, f.bridge.History(), 5)
}

func TestBridge_BusyWhileAnswering(t *testing.T) {
	f := setup(t, &Response{Text: "first"})
	f.chat.block = make(chan struct{})

	done := make(chan domain.Message)
	go func() {
		msg, _ := f.bridge.Send(context.Background(), "one")
		done <- msg
	}()

	require.Eventually(t, f.bridge.Pending, time.Second, 5*time.Millisecond)
	_, err := f.bridge.Send(context.Background(), "two")
	assert.ErrorIs(t, err, ErrBusy)

	close(f.chat.block)
	msg := <-done
	assert.Equal(t, "first", msg.Text)
	assert.False(t, f.bridge.Pending())
}

func TestBridge_CancelledCallerKeepsReply(t *testing.T) {
	f := setup(t, &Response{Text: "still here"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, err := f.bridge.Send(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "still here", msg.Text)
	assert.Len(t, f.bridge.History(), 3)
}
