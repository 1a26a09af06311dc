package middleware

import (
	"fmt"
	"strconv"
	"time"

	redisStore "tradelink/internal/adapter/storage/redis"
	"tradelink/pkg/apperror"
	"tradelink/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the per-endpoint-group limits.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"status": {Limit: 120, Window: time.Minute},
		"link":   {Limit: 20, Window: time.Minute},
		"unlink": {Limit: 20, Window: time.Minute},
		"trade":  {Limit: 60, Window: time.Minute},
		"portal": {Limit: 30, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for an endpoint group.
// Signed surfaces key on the caller's kid, the portal keys on client IP.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := extractIdentifier(c)
		key := fmt.Sprintf("%s:%s", identifier, group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

func extractIdentifier(c *gin.Context) string {
	if kid := c.GetHeader(HeaderKid); kid != "" {
		return kid
	}
	return c.ClientIP()
}
