package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/ratelimit"
)

// RateLimit enforces the per-key token bucket. Runs after Auth so the bucket
// key is the API key id. Limiter failures fail open; throttling must not
// take the service down with it.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := AuthenticatedKey(c)
		if key == nil {
			unauthorized(c, "authentication required")
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), key.ID.String())
		if err != nil {
			logger.Warn("rate limiter unavailable", "api_key_id", key.ID, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			common.Error(c, http.StatusTooManyRequests, domainerrors.CodeRateLimitExceeded,
				"rate limit exceeded", map[string]any{"retry_after_seconds": retryAfter})
			return
		}
		c.Next()
	}
}
