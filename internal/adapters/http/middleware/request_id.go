// Package middleware holds the HTTP cross-cutting concerns: request ids,
// logging, recovery, authentication, scope checks, rate limiting, metrics
// and the audit trail.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/adapters/http/common"
)

// RequestID attaches a request id to every request, honoring a client
// supplied X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(common.RequestIDKey)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		common.SetRequestID(c, requestID)
		c.Next()
	}
}
