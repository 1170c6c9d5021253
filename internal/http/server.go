package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"storefront/internal/assistant"
	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// Options параметры HTTP-слоя
type Options struct {
	SessionKey     []byte
	CookieSecure   bool
	CookieDomain   string
	CSRFKey        []byte
	TrustedOrigins []string
	// Health проверка зависимостей для /healthz
	Health func(ctx context.Context) error
	Logger *zap.Logger
}

type Server struct {
	engine        *gin.Engine
	catalog       *service.CatalogService
	carts         *service.CartService
	conversations *assistant.Conversations
	cookies       *sessions.CookieStore
	opts          Options
	logger        *zap.Logger
}

func NewServer(catalog *service.CatalogService, carts *service.CartService, conversations *assistant.Conversations, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cookies := sessions.NewCookieStore(opts.SessionKey)
	cookies.Options.HttpOnly = true
	cookies.Options.Secure = opts.CookieSecure
	cookies.Options.SameSite = http.SameSiteLaxMode
	cookies.Options.Path = "/"
	if opts.CookieDomain != "" {
		cookies.Options.Domain = opts.CookieDomain
	}

	r := gin.New()
	r.Use(logging.GinLogger(logger), gin.Recovery())
	s := &Server{
		engine:        r,
		catalog:       catalog,
		carts:         carts,
		conversations: conversations,
		cookies:       cookies,
		opts:          opts,
		logger:        logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler движок с трассировкой и, если задан ключ, защитой от CSRF.
// Токен отдаётся в заголовке X-CSRF-Token каждого ответа /api/v1 и ожидается в нём же.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.engine
	if s.csrfEnabled() {
		protect := csrf.Protect(
			s.opts.CSRFKey,
			csrf.Secure(s.opts.CookieSecure),
			csrf.Path("/"),
			csrf.RequestHeader(csrfHeader),
			csrf.TrustedOrigins(s.opts.TrustedOrigins),
		)
		h = protect(h)
		if !s.opts.CookieSecure {
			// plain HTTP: no https Referer check
			inner := h
			h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				inner.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
			})
		}
	}
	return otelhttp.NewHandler(h, "storefront")
}

func (s *Server) csrfEnabled() bool { return len(s.opts.CSRFKey) > 0 }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", s.healthz)

	v1 := s.engine.Group("/api/v1")
	v1.Use(s.sessionMiddleware())
	{
		v1.GET("/profile", s.getProfile)
		v1.GET("/ingredients", s.listIngredients)

		products := v1.Group("/products")
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)
		products.GET(":id/view", s.showProduct)

		view := v1.Group("/view")
		view.PUT("/mode", s.selectMode)
		view.POST("/add", s.addFromView)

		cart := v1.Group("/cart")
		cart.GET("", s.getCart)
		cart.POST("/items", s.addItem)
		cart.DELETE("/items/:id", s.removeItem)
		cart.PATCH("/items/:id", s.updateQuantity)
		cart.POST("/open", s.openCart)
		cart.POST("/close", s.closeCart)

		chat := v1.Group("/assistant")
		chat.POST("/open", s.openAssistant)
		chat.GET("/messages", s.listMessages)
		chat.POST("/messages", s.sendMessage)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	if s.opts.Health != nil {
		if err := s.opts.Health(c); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownPurchaseMode),
		errors.Is(err, assistant.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoProductView),
		errors.Is(err, assistant.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
