package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/pkg/apikey"
)

// authKeyContextKey holds the authenticated *entities.APIKey on the gin
// context.
const authKeyContextKey = "auth_api_key"

// Auth authenticates requests by the bearer API key. The raw key is hashed
// and looked up; unknown or revoked keys get 401 without distinguishing the
// two cases.
func Auth(keys ports.APIKeyRepository, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "missing Authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			unauthorized(c, "expected 'Bearer <api_key>'")
			return
		}

		key, err := keys.FindByHash(c.Request.Context(), apikey.Hash(parts[1]))
		if err != nil {
			if domainerrors.IsNotFound(err) {
				unauthorized(c, "invalid api key")
				return
			}
			common.HandleDomainError(c, err)
			return
		}
		if !key.IsActive() {
			unauthorized(c, "invalid api key")
			return
		}

		if err := keys.TouchLastUsed(c.Request.Context(), key.ID, time.Now().UTC()); err != nil {
			logger.Warn("failed to touch api key", "api_key_id", key.ID, "error", err)
		}

		c.Set(authKeyContextKey, key)
		c.Next()
	}
}

// AuthenticatedKey returns the API key set by Auth, nil when the request is
// unauthenticated.
func AuthenticatedKey(c *gin.Context) *entities.APIKey {
	if v, exists := c.Get(authKeyContextKey); exists {
		if key, ok := v.(*entities.APIKey); ok {
			return key
		}
	}
	return nil
}

func unauthorized(c *gin.Context, message string) {
	common.Error(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, message, nil)
}
