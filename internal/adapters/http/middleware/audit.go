package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
)

// Audit records every request after it completes. Only the SHA-256 of the
// body is stored, never the body itself. Writes are best effort; an audit
// failure never fails the request.
func Audit(audits ports.AuditRepository, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var requestHash string
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			body, err := io.ReadAll(c.Request.Body)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewReader(body))
				sum := sha256.Sum256(body)
				requestHash = hex.EncodeToString(sum[:])
			}
		}

		c.Next()

		record := &entities.AuditRecord{
			ID:             uuid.New(),
			Route:          c.FullPath(),
			Method:         c.Request.Method,
			IP:             c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			RequestHash:    requestHash,
			ResponseStatus: c.Writer.Status(),
			CreatedAt:      time.Now().UTC(),
		}
		if key := AuthenticatedKey(c); key != nil {
			id := key.ID
			record.APIKeyID = &id
		}
		if err := audits.Create(c.Request.Context(), record); err != nil {
			logger.Warn("audit write failed", "route", record.Route, "error", err)
		}
	}
}
