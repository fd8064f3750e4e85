// Package common holds the response helpers and context keys shared by the
// handlers and the middleware. It is the only place that maps error codes
// to HTTP status codes.
package common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// RequestIDKey is the gin context key and response header for the request id.
const RequestIDKey = "X-Request-ID"

// GetRequestID returns the request id set by the request-id middleware.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// SetRequestID stores the request id on the context and echoes it in the
// response header.
func SetRequestID(c *gin.Context, id string) {
	c.Set(RequestIDKey, id)
	c.Header(RequestIDKey, id)
}

// Success writes a 200 with the given payload. The API never returns 201;
// idempotent replays and first runs look identical.
func Success(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Error writes an error body with the given status.
func Error(c *gin.Context, status int, code, message string, details map[string]any) {
	c.AbortWithStatusJSON(status, ErrorBody{
		ErrorCode: code,
		Message:   message,
		Details:   details,
	})
}

// statusByCode maps every stable error code to its HTTP status.
var statusByCode = map[string]int{
	domainerrors.CodeValidationError:         http.StatusBadRequest,
	domainerrors.CodeInvalidAmount:           http.StatusBadRequest,
	domainerrors.CodeCurrencyMismatch:        http.StatusBadRequest,
	domainerrors.CodeInsufficientFunds:       http.StatusBadRequest,
	domainerrors.CodeLimitExceeded:           http.StatusBadRequest,
	domainerrors.CodeCounterpartyNotAllowed:  http.StatusBadRequest,
	domainerrors.CodeAmountExceedsHold:       http.StatusBadRequest,
	domainerrors.CodeAmountExceedsRefundable: http.StatusBadRequest,
	domainerrors.CodeSelfTransfer:            http.StatusBadRequest,
	domainerrors.CodeSelfPayment:             http.StatusBadRequest,
	domainerrors.CodeHoldExpired:             http.StatusBadRequest,
	domainerrors.CodeHoldNotCapturable:       http.StatusBadRequest,
	domainerrors.CodeHoldNotReleasable:       http.StatusBadRequest,
	domainerrors.CodeIntentExpired:           http.StatusBadRequest,
	domainerrors.CodeIntentNotPayable:        http.StatusBadRequest,

	domainerrors.CodeUnauthorized: http.StatusUnauthorized,

	domainerrors.CodeForbidden:       http.StatusForbidden,
	domainerrors.CodeForbiddenScope:  http.StatusForbidden,
	domainerrors.CodeWalletNotActive: http.StatusForbidden,
	domainerrors.CodeWalletFrozen:    http.StatusForbidden,
	domainerrors.CodeWalletClosed:    http.StatusForbidden,

	domainerrors.CodeNotFound:          http.StatusNotFound,
	domainerrors.CodeWalletNotFound:    http.StatusNotFound,
	domainerrors.CodeRecipientNotFound: http.StatusNotFound,
	domainerrors.CodeHoldNotFound:      http.StatusNotFound,
	domainerrors.CodeCaptureNotFound:   http.StatusNotFound,
	domainerrors.CodeIntentNotFound:    http.StatusNotFound,

	domainerrors.CodeIdempotencyConflict: http.StatusConflict,
	domainerrors.CodeHandleTaken:         http.StatusConflict,
	domainerrors.CodeIdentityTaken:       http.StatusConflict,

	domainerrors.CodeRateLimitExceeded: http.StatusTooManyRequests,

	domainerrors.CodeInternal: http.StatusInternalServerError,
}

// StatusForCode returns the HTTP status for a stable error code, 500 for
// unknown codes.
func StatusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleDomainError translates an error from the application layer into an
// HTTP response. Non-domain errors are logged and masked as INTERNAL_ERROR.
func HandleDomainError(c *gin.Context, err error) {
	if de, ok := domainerrors.AsDomain(err); ok {
		Error(c, StatusForCode(de.Code), de.Code, de.Message, de.Details)
		return
	}
	switch {
	case errors.Is(err, domainerrors.ErrNotFound):
		Error(c, http.StatusNotFound, domainerrors.CodeNotFound, "resource not found", nil)
	case errors.Is(err, domainerrors.ErrUnauthorized):
		Error(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, "authentication required", nil)
	case errors.Is(err, domainerrors.ErrIdempotencyConflict):
		Error(c, http.StatusConflict, domainerrors.CodeIdempotencyConflict,
			"idempotency key was already used for a different operation", nil)
	default:
		slog.Error("unhandled error at http boundary",
			"request_id", GetRequestID(c),
			"path", c.FullPath(),
			"error", err)
		Error(c, http.StatusInternalServerError, domainerrors.CodeInternal, "internal error", nil)
	}
}
