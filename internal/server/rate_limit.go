package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shaadmin/internal/observability/logger"
	"github.com/smallbiznis/shaadmin/internal/ratelimit"
	"go.uber.org/zap"
)

// rateLimit applies the token bucket for class, keyed by the actor. Limiter
// failures let the request through.
func (s *Server) rateLimit(class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		subject := ""
		if actor, ok := actorFrom(c); ok {
			subject = actor.Subject()
		}

		res, err := s.limiter.Allow(ctx, class, subject)
		if err != nil {
			logger.FromContext(ctx).Warn("rate limit check failed",
				zap.String("class", string(class)),
				zap.String("endpoint", normalizeRateLimitEndpoint(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(res.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			logger.FromContext(ctx).Warn("rate limit exceeded",
				zap.String("class", string(class)),
				zap.String("endpoint", normalizeRateLimitEndpoint(c)),
			)
			c.Header("Retry-After", strconv.Itoa(retry))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
