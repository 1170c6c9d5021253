package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

const (
	sessionCookie  = "storefront-session"
	sessionIDValue = "sid"
	ctxSessionID   = "session_id"
	csrfHeader     = "X-CSRF-Token"
)

// sessionMiddleware выдаёт покупателю идентификатор сессии в подписанной cookie
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := s.cookies.Get(c.Request, sessionCookie)
		if err != nil {
			// tampered or signed with an old key; a fresh session is issued
			s.logger.Debug("session cookie rejected", zap.Error(err))
		}
		id, _ := sess.Values[sessionIDValue].(string)
		if _, perr := uuid.Parse(id); perr != nil {
			id = uuid.NewString()
			sess.Values[sessionIDValue] = id
			if err := sess.Save(c.Request, c.Writer); err != nil {
				s.logger.Error("save session cookie", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
				return
			}
		}
		c.Set(ctxSessionID, id)
		if s.csrfEnabled() {
			c.Header(csrfHeader, csrf.Token(c.Request))
		}
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}
