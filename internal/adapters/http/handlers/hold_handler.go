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

type CreateHoldUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.CreateHoldRequest) (*dtos.HoldResponse, error)
}

type CaptureHoldUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, holdID uuid.UUID, req dtos.CaptureHoldRequest) (*dtos.CaptureResponse, error)
}

type ReleaseHoldUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, holdID uuid.UUID, req dtos.ReleaseHoldRequest) (*dtos.ReleaseResponse, error)
}

// HoldHandler serves the hold lifecycle: create, capture, release.
type HoldHandler struct {
	createHold  CreateHoldUseCase
	captureHold CaptureHoldUseCase
	releaseHold ReleaseHoldUseCase
}

func NewHoldHandler(createHold CreateHoldUseCase, captureHold CaptureHoldUseCase, releaseHold ReleaseHoldUseCase) *HoldHandler {
	return &HoldHandler{
		createHold:  createHold,
		captureHold: captureHold,
		releaseHold: releaseHold,
	}
}

// Create reserves funds on the caller's wallet.
func (h *HoldHandler) Create(c *gin.Context) {
	var req dtos.CreateHoldRequest
	if !BindJSON(c, &req) {
		return
	}
	key, ok := ResolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	result, err := h.createHold.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	middleware.EntriesPosted.WithLabelValues(string(entities.EntryTypeHold)).Inc()
	common.Success(c, result)
}

// Capture settles part of the hold into a destination wallet.
func (h *HoldHandler) Capture(c *gin.Context) {
	holdID, ok := PathUUID(c, "hold_id")
	if !ok {
		return
	}
	var req dtos.CaptureHoldRequest
	if !BindJSON(c, &req) {
		return
	}
	key, ok := ResolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	result, err := h.captureHold.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), holdID, req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	middleware.EntriesPosted.WithLabelValues(string(entities.EntryTypeCapture)).Inc()
	common.Success(c, result)
}

// Release returns the remaining held funds to available.
func (h *HoldHandler) Release(c *gin.Context) {
	holdID, ok := PathUUID(c, "hold_id")
	if !ok {
		return
	}
	var req dtos.ReleaseHoldRequest
	if !BindOptionalJSON(c, &req) {
		return
	}
	key, ok := ResolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	result, err := h.releaseHold.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), holdID, req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	middleware.EntriesPosted.WithLabelValues(string(entities.EntryTypeRelease)).Inc()
	common.Success(c, result)
}

func (h *HoldHandler) RegisterRoutes(router *gin.RouterGroup, requireScope func(string) gin.HandlerFunc) {
	holds := router.Group("/holds")
	{
		holds.POST("", requireScope("hold:create"), h.Create)
		holds.POST("/:hold_id/capture", requireScope("hold:capture"), h.Capture)
		holds.POST("/:hold_id/release", requireScope("hold:release"), h.Release)
	}
}
