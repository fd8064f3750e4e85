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

type CreateWalletUseCase interface {
	Execute(ctx context.Context, req dtos.CreateWalletRequest) (*dtos.WalletResponse, error)
}

type CreateAPIKeyUseCase interface {
	Execute(ctx context.Context, req dtos.CreateAPIKeyRequest) (*dtos.APIKeyResponse, error)
}

type RevokeAPIKeyUseCase interface {
	Execute(ctx context.Context, keyID uuid.UUID) (*dtos.APIKeyResponse, error)
}

type SetWalletStatusUseCase interface {
	Freeze(ctx context.Context, walletID uuid.UUID) (*dtos.WalletResponse, error)
	Unfreeze(ctx context.Context, walletID uuid.UUID) (*dtos.WalletResponse, error)
}

type DepositUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.DepositRequest) (*dtos.DepositResponse, error)
}

// AdminHandler serves the /admin surface: wallet provisioning, key
// management and external deposits.
type AdminHandler struct {
	createWallet CreateWalletUseCase
	createAPIKey CreateAPIKeyUseCase
	revokeAPIKey RevokeAPIKeyUseCase
	walletStatus SetWalletStatusUseCase
	deposit      DepositUseCase
}

func NewAdminHandler(
	createWallet CreateWalletUseCase,
	createAPIKey CreateAPIKeyUseCase,
	revokeAPIKey RevokeAPIKeyUseCase,
	walletStatus SetWalletStatusUseCase,
	deposit DepositUseCase,
) *AdminHandler {
	return &AdminHandler{
		createWallet: createWallet,
		createAPIKey: createAPIKey,
		revokeAPIKey: revokeAPIKey,
		walletStatus: walletStatus,
		deposit:      deposit,
	}
}

// CreateWallet provisions a wallet, optionally with a handle and an
// external identity binding.
func (h *AdminHandler) CreateWallet(c *gin.Context) {
	var req dtos.CreateWalletRequest
	if !BindJSON(c, &req) {
		return
	}
	result, err := h.createWallet.Execute(c.Request.Context(), req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// CreateAPIKey issues a key for a wallet. The raw key appears only in this
// response.
func (h *AdminHandler) CreateAPIKey(c *gin.Context) {
	var req dtos.CreateAPIKeyRequest
	if !BindJSON(c, &req) {
		return
	}
	result, err := h.createAPIKey.Execute(c.Request.Context(), req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// RevokeAPIKey deactivates a key. Revoking twice is a no-op.
func (h *AdminHandler) RevokeAPIKey(c *gin.Context) {
	keyID, ok := PathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.revokeAPIKey.Execute(c.Request.Context(), keyID)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// FreezeWallet blocks a wallet from both sending and receiving.
func (h *AdminHandler) FreezeWallet(c *gin.Context) {
	walletID, ok := PathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.walletStatus.Freeze(c.Request.Context(), walletID)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// UnfreezeWallet reactivates a frozen wallet.
func (h *AdminHandler) UnfreezeWallet(c *gin.Context) {
	walletID, ok := PathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.walletStatus.Unfreeze(c.Request.Context(), walletID)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// Deposit credits external funds into a wallet from the system wallet.
func (h *AdminHandler) Deposit(c *gin.Context) {
	var req dtos.DepositRequest
	if !BindJSON(c, &req) {
		return
	}
	key, ok := ResolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	result, err := h.deposit.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), req)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	middleware.EntriesPosted.WithLabelValues(string(entities.EntryTypeDepositExternal)).Inc()
	common.Success(c, result)
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup, requireScope func(string) gin.HandlerFunc) {
	router.POST("/wallets", requireScope("admin:wallets"), h.CreateWallet)
	router.POST("/wallets/:id/freeze", requireScope("admin:wallets"), h.FreezeWallet)
	router.POST("/wallets/:id/unfreeze", requireScope("admin:wallets"), h.UnfreezeWallet)
	router.POST("/api_keys", requireScope("admin:api_keys"), h.CreateAPIKey)
	router.POST("/api_keys/:id/revoke", requireScope("admin:api_keys"), h.RevokeAPIKey)
	router.POST("/deposits", requireScope("admin:deposits"), h.Deposit)
}
