package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	"github.com/agentpay/walletd/internal/adapters/http/middleware"
	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/domain/entities"
)

type CreateRefundUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.RefundRequest) (*dtos.RefundResponse, error)
}

// RefundHandler serves POST /v1/refunds.
type RefundHandler struct {
	createRefund CreateRefundUseCase
}

func NewRefundHandler(createRefund CreateRefundUseCase) *RefundHandler {
	return &RefundHandler{createRefund: createRefund}
}

// Create returns captured funds from the caller (the capture's recipient)
// back to the payer.
func (h *RefundHandler) Create(c *gin.Context) {
	var req dtos.RefundRequest
	if !BindJSON(c, &req) {
		return
	}
	key, ok := ResolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	result, err := h.createRefund.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	middleware.EntriesPosted.WithLabelValues(string(entities.EntryTypeRefund)).Inc()
	common.Success(c, result)
}

func (h *RefundHandler) RegisterRoutes(router *gin.RouterGroup, requireScope func(string) gin.HandlerFunc) {
	router.POST("/refunds", requireScope("refund:create"), h.Create)
}
