// Package handlers translates HTTP requests into use case calls. Handlers
// carry no business logic; they bind, delegate and render.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// BindJSON binds and validates a JSON body, writing a VALIDATION_ERROR
// response on failure. Unknown fields are ignored.
func BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		validationError(c, err)
		return false
	}
	return true
}

// BindOptionalJSON is BindJSON for endpoints whose body may be absent
// entirely, e.g. when the Idempotency-Key header carries everything.
func BindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	return BindJSON(c, obj)
}

// BindQuery binds and validates query parameters.
func BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		validationError(c, err)
		return false
	}
	return true
}

// PathUUID parses a :param path segment as a UUID.
func PathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		common.Error(c, http.StatusBadRequest, domainerrors.CodeValidationError,
			"invalid uuid in path", map[string]any{"param": name})
		return uuid.Nil, false
	}
	return id, true
}

// ResolveIdempotencyKey merges the Idempotency-Key header into the body
// value. The body wins when both are present; having neither is a
// validation error.
func ResolveIdempotencyKey(c *gin.Context, bodyKey string) (string, bool) {
	key := bodyKey
	if key == "" {
		key = c.GetHeader("Idempotency-Key")
	}
	if key == "" {
		common.Error(c, http.StatusBadRequest, domainerrors.CodeValidationError,
			"idempotency_key is required, in the body or the Idempotency-Key header", nil)
		return "", false
	}
	return key, true
}

func validationError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		common.Error(c, http.StatusBadRequest, domainerrors.CodeValidationError,
			"request validation failed", map[string]any{"fields": fields})
		return
	}
	common.Error(c, http.StatusBadRequest, domainerrors.CodeValidationError,
		"malformed request body", nil)
}
