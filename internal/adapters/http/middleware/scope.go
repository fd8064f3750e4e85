package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// RequireScope rejects requests whose key lacks the scope. Runs after Auth.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := AuthenticatedKey(c)
		if key == nil {
			unauthorized(c, "authentication required")
			return
		}
		if !key.HasScope(scope) {
			common.Error(c, http.StatusForbidden, domainerrors.CodeForbiddenScope,
				"api key lacks required scope", map[string]any{"required_scope": scope})
			return
		}
		c.Next()
	}
}
