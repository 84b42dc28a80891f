package middleware

import (
	"net/http"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	u "github.com/steamtrust/backend/utils"
)

// RateLimitMiddleware applies per-second rate limits. Requests carrying a
// bearer token are keyed by token, everything else by client IP.
func RateLimitMiddleware(conf *config.ServerConfiguration) gin.HandlerFunc {
	errorHandler := func(c *gin.Context, info ratelimit.Info) {
		appErr := types.NewAppError(types.ErrCodeRateLimitExceeded, http.StatusTooManyRequests, nil, nil)
		u.APIResponse(c, appErr.Status, "error", appErr.Message(u.Language(c)), map[string]interface{}{
			"code":        appErr.Code,
			"retry_after": time.Until(info.ResetTime).Seconds(),
			"limit":       info.Limit,
		})
		c.Abort()
	}

	unauthenticatedLimiter := ratelimit.RateLimiter(
		ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Second,
			Limit: uint(conf.RateLimitUnauthenticated),
		}),
		&ratelimit.Options{
			ErrorHandler: errorHandler,
			KeyFunc: func(c *gin.Context) string {
				return "ip:" + c.ClientIP()
			},
		},
	)

	authenticatedLimiter := ratelimit.RateLimiter(
		ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Second,
			Limit: uint(conf.RateLimitAuthenticated),
		}),
		&ratelimit.Options{
			ErrorHandler: errorHandler,
			KeyFunc: func(c *gin.Context) string {
				return "auth:" + c.GetHeader("Authorization")
			},
		},
	)

	return func(c *gin.Context) {
		if strings.HasPrefix(c.GetHeader("Authorization"), "Bearer ") {
			authenticatedLimiter(c)
		} else {
			unauthenticatedLimiter(c)
		}
	}
}
