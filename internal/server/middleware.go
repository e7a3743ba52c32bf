package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	"github.com/smallbiznis/shaadmin/internal/observability/logger"
	"go.uber.org/zap"
)

// HeaderUserID carries the user the upstream gateway authenticated.
const HeaderUserID = "X-User-Id"

// ActorRequired resolves the upstream identity header to an active user and
// stores it on the request context.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		user, err := s.identitySvc.FindActive(ctx, userID)
		if err != nil {
			logger.FromContext(ctx).Debug("actor lookup failed", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := actorcontext.Actor{UserID: user.ID, Role: string(user.Role)}
		c.Request = c.Request.WithContext(actorcontext.WithActor(ctx, actor))
		c.Next()
	}
}

func actorFrom(c *gin.Context) (actorcontext.Actor, bool) {
	return actorcontext.ActorFromContext(c.Request.Context())
}
