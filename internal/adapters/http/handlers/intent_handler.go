package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	"github.com/agentpay/walletd/internal/adapters/http/middleware"
	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/domain/entities"
)

type CreateIntentUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.CreatePaymentIntentRequest) (*dtos.PaymentIntentResponse, error)
}

type PayIntentUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, intentID uuid.UUID, req dtos.PayIntentRequest) (*dtos.PayIntentResponse, error)
}

type CancelIntentUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, intentID uuid.UUID) (*dtos.PaymentIntentResponse, error)
}

// IntentHandler serves the payment intent lifecycle.
type IntentHandler struct {
	createIntent CreateIntentUseCase
	payIntent    PayIntentUseCase
	cancelIntent CancelIntentUseCase
}

func NewIntentHandler(createIntent CreateIntentUseCase, payIntent PayIntentUseCase, cancelIntent CancelIntentUseCase) *IntentHandler {
	return &IntentHandler{
		createIntent: createIntent,
		payIntent:    payIntent,
		cancelIntent: cancelIntent,
	}
}

// Create registers a request to be paid. No funds move.
func (h *IntentHandler) Create(c *gin.Context) {
	var req dtos.CreatePaymentIntentRequest
	if !BindJSON(c, &req) {
		return
	}
	result, err := h.createIntent.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// Pay settles the intent from the caller's wallet.
func (h *IntentHandler) Pay(c *gin.Context) {
	intentID, ok := PathUUID(c, "id")
	if !ok {
		return
	}
	var req dtos.PayIntentRequest
	if !BindOptionalJSON(c, &req) {
		return
	}
	key, ok := ResolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	result, err := h.payIntent.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), intentID, req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	middleware.EntriesPosted.WithLabelValues(string(entities.EntryTypeTransfer)).Inc()
	common.Success(c, result)
}

// Cancel voids an unpaid intent. Only the merchant that created it may
// cancel; cancelling twice is a no-op.
func (h *IntentHandler) Cancel(c *gin.Context) {
	intentID, ok := PathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.cancelIntent.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), intentID)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

func (h *IntentHandler) RegisterRoutes(router *gin.RouterGroup, requireScope func(string) gin.HandlerFunc) {
	intents := router.Group("/payment_intents")
	{
		intents.POST("", requireScope("payment_intent:create"), h.Create)
		intents.POST("/:id/pay", requireScope("payment_intent:pay"), h.Pay)
		intents.POST("/:id/cancel", requireScope("payment_intent:create"), h.Cancel)
	}
}
