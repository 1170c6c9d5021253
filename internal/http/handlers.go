package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

type profileResp struct {
	Name                  string          `json:"name"`
	Currency              domain.Currency `json:"currency"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold"`
	Display               string          `json:"display"`
}

// @Summary Storefront profile
// @Tags catalog
// @Produce json
// @Success 200 {object} profileResp
// @Router /profile [get]
func (s *Server) getProfile(c *gin.Context) {
	p := s.catalog.Profile()
	c.JSON(http.StatusOK, profileResp{
		Name:                  p.Name,
		Currency:              p.Currency,
		FreeShippingThreshold: p.FreeShippingThreshold,
		Display:               p.Currency.Format(p.FreeShippingThreshold),
	})
}

type productResp struct {
	domain.Product
	DisplayPrice      string `json:"display_price"`
	SubscriptionPrice string `json:"subscription_price"`
}

func (s *Server) toProductResp(p domain.Product) productResp {
	cur := s.catalog.Profile().Currency
	return productResp{
		Product:           p,
		DisplayPrice:      cur.Format(p.Price),
		SubscriptionPrice: cur.Format(cur.SubscriptionPrice(p.Price)),
	}
}

// @Summary List products
// @Tags catalog
// @Produce json
// @Param q query string false "Name contains"
// @Param best_seller query bool false "Only best sellers"
// @Success 200 {array} productResp
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	var f repository.ProductFilter
	if q := c.Query("q"); q != "" {
		f.NameSubstring = q
	}
	if c.Query("best_seller") == "true" {
		f.BestSeller = true
	}
	list, err := s.catalog.List(c, f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]productResp, 0, len(list))
	for _, p := range list {
		out = append(out, s.toProductResp(p))
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Get product by id
// @Tags catalog
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} productResp
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.catalog.GetByID(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toProductResp(*p))
}

// @Summary Ingredient glossary
// @Tags catalog
// @Produce json
// @Param q query string false "Name or function contains"
// @Success 200 {array} domain.Ingredient
// @Router /ingredients [get]
func (s *Server) listIngredients(c *gin.Context) {
	list, err := s.catalog.Glossary(c, c.Query("q"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Open product view
// @Description Opens the product detail view; selecting another product resets the purchase mode
// @Tags view
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} service.ViewSummary
// @Failure 404 {object} map[string]string
// @Router /products/{id}/view [get]
func (s *Server) showProduct(c *gin.Context) {
	v, err := s.carts.ShowProduct(c, sessionID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type selectModeReq struct {
	Mode string `json:"mode" example:"subscribe"`
}

// @Summary Select purchase mode
// @Tags view
// @Accept json
// @Produce json
// @Param input body selectModeReq true "one-time or subscribe"
// @Success 200 {object} service.ViewSummary
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /view/mode [put]
func (s *Server) selectMode(c *gin.Context) {
	var req selectModeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v, err := s.carts.SelectMode(c, sessionID(c), domain.PurchaseMode(req.Mode))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary Add viewed product to cart
// @Tags view
// @Produce json
// @Success 200 {object} service.CartSummary
// @Failure 409 {object} map[string]string
// @Router /view/add [post]
func (s *Server) addFromView(c *gin.Context) {
	sum, err := s.carts.AddFromView(c, sessionID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Get cart
// @Tags cart
// @Produce json
// @Success 200 {object} service.CartSummary
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	sum, err := s.carts.Cart(c, sessionID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

type addItemReq struct {
	ProductID      string `json:"product_id"`
	IsSubscription bool   `json:"is_subscription"`
}

// @Summary Add item to cart
// @Description Adding the same product in the same purchase mode increments its quantity
// @Tags cart
// @Accept json
// @Produce json
// @Param input body addItemReq true "Item"
// @Success 200 {object} service.CartSummary
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items [post]
func (s *Server) addItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sum, err := s.carts.AddItem(c, sessionID(c), req.ProductID, req.IsSubscription)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Remove product from cart
// @Description Removes every line of the product regardless of purchase mode
// @Tags cart
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} service.CartSummary
// @Router /cart/items/{id} [delete]
func (s *Server) removeItem(c *gin.Context) {
	sum, err := s.carts.RemoveItem(c, sessionID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

type updateQuantityReq struct {
	Delta *int `json:"delta"`
}

// @Summary Change quantity
// @Description Quantity never drops below 1
// @Tags cart
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body updateQuantityReq true "Delta"
// @Success 200 {object} service.CartSummary
// @Failure 400 {object} map[string]string
// @Router /cart/items/{id} [patch]
func (s *Server) updateQuantity(c *gin.Context) {
	var req updateQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Delta == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sum, err := s.carts.UpdateQuantity(c, sessionID(c), c.Param("id"), *req.Delta)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Open cart drawer
// @Tags cart
// @Produce json
// @Success 200 {object} service.CartSummary
// @Router /cart/open [post]
func (s *Server) openCart(c *gin.Context) {
	sum, err := s.carts.OpenCart(c, sessionID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Close cart drawer
// @Tags cart
// @Produce json
// @Success 200 {object} service.CartSummary
// @Router /cart/close [post]
func (s *Server) closeCart(c *gin.Context) {
	sum, err := s.carts.CloseCart(c, sessionID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
