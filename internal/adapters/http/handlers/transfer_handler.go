package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	"github.com/agentpay/walletd/internal/adapters/http/middleware"
	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/domain/entities"
)

type CreateTransferUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.TransferRequest) (*dtos.TransferResponse, error)
}

// TransferHandler serves POST /v1/transfers.
type TransferHandler struct {
	createTransfer CreateTransferUseCase
}

func NewTransferHandler(createTransfer CreateTransferUseCase) *TransferHandler {
	return &TransferHandler{createTransfer: createTransfer}
}

// Create posts a transfer from the caller's wallet to a recipient.
func (h *TransferHandler) Create(c *gin.Context) {
	var req dtos.TransferRequest
	if !BindJSON(c, &req) {
		return
	}
	key, ok := ResolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	result, err := h.createTransfer.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	middleware.EntriesPosted.WithLabelValues(string(entities.EntryTypeTransfer)).Inc()
	common.Success(c, result)
}

func (h *TransferHandler) RegisterRoutes(router *gin.RouterGroup, requireScope func(string) gin.HandlerFunc) {
	router.POST("/transfers", requireScope("transfer:create"), h.Create)
}
