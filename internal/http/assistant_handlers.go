package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service"
)

type conversationResp struct {
	Messages []domain.Message `json:"messages"`
	Pending  bool             `json:"pending"`
}

// @Summary Open assistant
// @Description Starts the model session on first call; the greeting is the first message
// @Tags assistant
// @Produce json
// @Success 200 {object} conversationResp
// @Router /assistant/open [post]
func (s *Server) openAssistant(c *gin.Context) {
	b := s.conversations.Get(sessionID(c))
	msgs := b.Open(c)
	c.JSON(http.StatusOK, conversationResp{Messages: msgs, Pending: b.Pending()})
}

// @Summary Conversation history
// @Tags assistant
// @Produce json
// @Success 200 {object} conversationResp
// @Router /assistant/messages [get]
func (s *Server) listMessages(c *gin.Context) {
	b := s.conversations.Get(sessionID(c))
	c.JSON(http.StatusOK, conversationResp{Messages: b.History(), Pending: b.Pending()})
}

type sendMessageReq struct {
	Text string `json:"text" example:"Add the Dew Stick as a subscription"`
}

type sendMessageResp struct {
	Message domain.Message       `json:"message"`
	Cart    *service.CartSummary `json:"cart,omitempty"`
}

// @Summary Send message to assistant
// @Description Actions requested by the model are applied to the session cart before the reply is returned
// @Tags assistant
// @Accept json
// @Produce json
// @Param input body sendMessageReq true "Message"
// @Success 200 {object} sendMessageResp
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /assistant/messages [post]
func (s *Server) sendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sid := sessionID(c)
	msg, err := s.conversations.Get(sid).Send(c, req.Text)
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp := sendMessageResp{Message: msg}
	if sum, err := s.carts.Cart(c, sid); err == nil {
		resp.Cart = sum
	}
	c.JSON(http.StatusOK, resp)
}
