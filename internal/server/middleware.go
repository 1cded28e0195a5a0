package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/backoffice/internal/observability/context"
)

const (
	HeaderRole  = "X-Role"
	HeaderActor = "X-Actor-ID"
)

// Actor resolves the caller's role and id. Identity is asserted by the
// gateway in front of this service.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderRole)))
		if role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		actorID := strings.TrimSpace(c.GetHeader(HeaderActor))
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actorID, role))
		c.Next()
	}
}

// authorize gates a route on the caller's role.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := obscontext.ActorFromContext(c.Request.Context())
		if err := s.authzSvc.Authorize(c.Request.Context(), role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
