package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/assistant"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// cartModel asks to add the named product, then answers with text
type cartModel struct{}

func (cartModel) NewChat(assistant.ChatConfig) assistant.Chat { return &cartChat{} }

type cartChat struct{}

func (*cartChat) Send(_ context.Context, text string) (*assistant.Response, error) {
	if strings.HasPrefix(text, "add ") {
		return &assistant.Response{Calls: []assistant.FunctionCall{{
			Name: assistant.ActionAddToCart,
			Args: map[string]any{"productName": strings.TrimPrefix(text, "add "), "isSubscription": false},
		}}}, nil
	}
	return &assistant.Response{Text: "We have three products."}, nil
}

func (*cartChat) SendResults(context.Context, []assistant.FunctionResult) (*assistant.Response, error) {
	return &assistant.Response{Text: "Added."}, nil
}

func setupServer(t *testing.T, opts Options) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	p, err := repository.LoadProfile("vela-flora")
	require.NoError(t, err)
	repo := repository.NewProfileCatalog(p)
	catalog := service.NewCatalogService(repo, p)
	carts := service.NewCartService(repo, repository.NewMemorySessions(0), repository.NewMemoryTx(), p, nil)
	convs := assistant.NewConversations(func(sid string) *assistant.Bridge {
		return assistant.NewBridge(cartModel{}, catalog, carts.ForSession(sid), assistant.Options{
			Copy:     p.Assistant,
			Currency: p.Currency,
		})
	}, 0)
	if opts.SessionKey == nil {
		opts.SessionKey = []byte(strings.Repeat("s", 32))
	}
	return NewServer(catalog, carts, convs, opts)
}

// client keeps the session cookie and extra headers between requests
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
	header  http.Header
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, h: h, cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

func (cl *client) doJSON(method, path string, body any) *httptest.ResponseRecorder {
	cl.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			cl.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cl.header {
		req.Header[k] = v
	}
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	cl.h.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		cl.cookies[ck.Name] = ck
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

type cartBody struct {
	Items []struct {
		ID             string `json:"id"`
		Quantity       int    `json:"quantity"`
		IsSubscription bool   `json:"is_subscription"`
		Price          string `json:"price"`
	} `json:"items"`
	IsOpen     bool   `json:"is_open"`
	TotalItems int    `json:"total_items"`
	Subtotal   string `json:"subtotal"`
	Display    struct {
		Subtotal  string `json:"subtotal"`
		Remaining string `json:"remaining"`
	} `json:"display"`
}

func TestCatalogEndpoints(t *testing.T) {
	cl := newClient(t, setupServer(t, Options{}).Engine())

	w := cl.doJSON(http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	prof := decode[map[string]any](t, w)
	assert.Equal(t, "vela-flora", prof["name"])
	assert.Equal(t, "$50.00", prof["display"])

	w = cl.doJSON(http.MethodGet, "/api/v1/products?q=mask", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]map[string]any](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "night-mask", list[0]["id"])
	assert.Equal(t, "$26.00", list[0]["display_price"])
	assert.Equal(t, "$22.10", list[0]["subscription_price"])

	w = cl.doJSON(http.MethodGet, "/api/v1/products/bloom-balm", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = cl.doJSON(http.MethodGet, "/api/v1/products/lip-oil", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = cl.doJSON(http.MethodGet, "/api/v1/ingredients?q=sealant", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ings := decode[[]map[string]any](t, w)
	require.Len(t, ings, 1)
	assert.Equal(t, "Candelilla Wax", ings[0]["name"])
}

func TestCartFlow(t *testing.T) {
	cl := newClient(t, setupServer(t, Options{}).Engine())

	w := cl.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "dew-stick"})
	require.Equal(t, http.StatusOK, w.Code)
	w = cl.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "dew-stick"})
	require.Equal(t, http.StatusOK, w.Code)
	w = cl.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "dew-stick", "is_subscription": true})
	require.Equal(t, http.StatusOK, w.Code)

	cart := decode[cartBody](t, w)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "15.3", cart.Items[1].Price)
	assert.Equal(t, 3, cart.TotalItems)
	assert.True(t, cart.IsOpen)
	assert.Equal(t, "$51.30", cart.Display.Subtotal)

	w = cl.doJSON(http.MethodPatch, "/api/v1/cart/items/dew-stick", map[string]any{"delta": -10})
	require.Equal(t, http.StatusOK, w.Code)
	cart = decode[cartBody](t, w)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	w = cl.doJSON(http.MethodPatch, "/api/v1/cart/items/dew-stick", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = cl.doJSON(http.MethodPost, "/api/v1/cart/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[cartBody](t, w).IsOpen)

	w = cl.doJSON(http.MethodDelete, "/api/v1/cart/items/dew-stick", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[cartBody](t, w).Items)

	w = cl.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "lip-oil"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = cl.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionIsolation(t *testing.T) {
	s := setupServer(t, Options{})
	alice := newClient(t, s.Engine())
	bob := newClient(t, s.Engine())

	w := alice.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "bloom-balm"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, alice.cookies, sessionCookie)

	w = bob.doJSON(http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[cartBody](t, w).Items)

	w = alice.doJSON(http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[cartBody](t, w).Items, 1)

	// a forged cookie starts a new session
	forged := newClient(t, s.Engine())
	forged.cookies[sessionCookie] = &http.Cookie{Name: sessionCookie, Value: "forged"}
	w = forged.doJSON(http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[cartBody](t, w).Items)
}

func TestProductViewFlow(t *testing.T) {
	cl := newClient(t, setupServer(t, Options{}).Engine())

	w := cl.doJSON(http.MethodPut, "/api/v1/view/mode", map[string]any{"mode": "subscribe"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = cl.doJSON(http.MethodGet, "/api/v1/products/bloom-balm/view", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[map[string]any](t, w)
	assert.Equal(t, "one-time", view["mode"])
	assert.Equal(t, "$22.00", view["display"])

	w = cl.doJSON(http.MethodPut, "/api/v1/view/mode", map[string]any{"mode": "weekly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = cl.doJSON(http.MethodPut, "/api/v1/view/mode", map[string]any{"mode": "subscribe"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$18.70", decode[map[string]any](t, w)["display"])

	w = cl.doJSON(http.MethodPost, "/api/v1/view/add", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[cartBody](t, w)
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Items[0].IsSubscription)
}

func TestAssistantFlow(t *testing.T) {
	cl := newClient(t, setupServer(t, Options{}).Engine())

	w := cl.doJSON(http.MethodPost, "/api/v1/assistant/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	conv := decode[conversationResp](t, w)
	require.Len(t, conv.Messages, 1)
	assert.Contains(t, conv.Messages[0].Text, "Flora Guide")
	assert.False(t, conv.Pending)

	w = cl.doJSON(http.MethodPost, "/api/v1/assistant/messages", map[string]any{"text": "add night mask"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"message"`
		Cart cartBody `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "assistant", resp.Message.Role)
	assert.Equal(t, "Added.", resp.Message.Text)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, "night-mask", resp.Cart.Items[0].ID)

	w = cl.doJSON(http.MethodPost, "/api/v1/assistant/messages", map[string]any{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = cl.doJSON(http.MethodGet, "/api/v1/assistant/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[conversationResp](t, w).Messages, 3)
}

func TestHealthz(t *testing.T) {
	w := newClient(t, setupServer(t, Options{}).Engine()).doJSON(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	failing := setupServer(t, Options{Health: func(context.Context) error { return errors.New("redis down") }})
	w = newClient(t, failing.Engine()).doJSON(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCSRFProtection(t *testing.T) {
	s := setupServer(t, Options{CSRFKey: []byte(strings.Repeat("c", 32))})
	cl := newClient(t, s.Handler())

	w := cl.doJSON(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = cl.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "dew-stick"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	s := setupServer(t, Options{CSRFKey: []byte(strings.Repeat("c", 32))})
	cl := newClient(t, s.Handler())

	w := cl.doJSON(http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	cl.header.Set("X-CSRF-Token", token)
	w = cl.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "dew-stick"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[cartBody](t, w).TotalItems)

	w = cl.doJSON(http.MethodPost, "/api/v1/cart/open", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	cl.header.Set("X-CSRF-Token", "forged")
	w = cl.doJSON(http.MethodPost, "/api/v1/cart/close", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFHeaderAbsentWhenDisabled(t *testing.T) {
	w := newClient(t, setupServer(t, Options{}).Handler()).doJSON(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-CSRF-Token"))
}

func TestMapErrorToStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, mapErrorToStatus(service.ErrInvalidInput))
	assert.Equal(t, http.StatusNotFound, mapErrorToStatus(repository.ErrNotFound))
	assert.Equal(t, http.StatusConflict, mapErrorToStatus(assistant.ErrBusy))
	assert.Equal(t, http.StatusInternalServerError, mapErrorToStatus(errors.New("boom")))
}
