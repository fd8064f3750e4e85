package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// Recovery converts panics into 500 responses with the stack logged.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogAttrs(c.Request.Context(), slog.LevelError, "panic recovered",
					slog.String("error", fmt.Sprintf("%v", r)),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("request_id", common.GetRequestID(c)),
					slog.String("stack", string(debug.Stack())),
				)
				common.Error(c, http.StatusInternalServerError,
					domainerrors.CodeInternal, "internal error", nil)
			}
		}()
		c.Next()
	}
}
