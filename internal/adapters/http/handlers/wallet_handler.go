package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/walletd/internal/adapters/http/common"
	"github.com/agentpay/walletd/internal/adapters/http/middleware"
	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/domain/entities"
)

type GetWalletUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey) (*dtos.WalletResponse, error)
}

type GetBalanceUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey) (*dtos.BalanceResponse, error)
}

type ListTransactionsUseCase interface {
	Execute(ctx context.Context, apiKey *entities.APIKey, query dtos.ListTransactionsQuery) (*dtos.TransactionListResponse, error)
}

type ResolveUseCase interface {
	Execute(ctx context.Context, query dtos.ResolveQuery) (*dtos.ResolveResponse, error)
}

// WalletHandler serves the caller-facing read endpoints.
type WalletHandler struct {
	getWallet        GetWalletUseCase
	getBalance       GetBalanceUseCase
	listTransactions ListTransactionsUseCase
	resolve          ResolveUseCase
}

func NewWalletHandler(
	getWallet GetWalletUseCase,
	getBalance GetBalanceUseCase,
	listTransactions ListTransactionsUseCase,
	resolve ResolveUseCase,
) *WalletHandler {
	return &WalletHandler{
		getWallet:        getWallet,
		getBalance:       getBalance,
		listTransactions: listTransactions,
		resolve:          resolve,
	}
}

// GetMe returns the authenticated key's wallet.
func (h *WalletHandler) GetMe(c *gin.Context) {
	result, err := h.getWallet.Execute(c.Request.Context(), middleware.AuthenticatedKey(c))
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// GetBalance returns the available and held balances.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	result, err := h.getBalance.Execute(c.Request.Context(), middleware.AuthenticatedKey(c))
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// ListTransactions pages the wallet's journal entries, newest first.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	var query dtos.ListTransactionsQuery
	if !BindQuery(c, &query) {
		return
	}
	result, err := h.listTransactions.Execute(c.Request.Context(), middleware.AuthenticatedKey(c), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

// Resolve looks up a recipient by wallet id, handle or external identity.
func (h *WalletHandler) Resolve(c *gin.Context) {
	var query dtos.ResolveQuery
	if !BindQuery(c, &query) {
		return
	}
	result, err := h.resolve.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}
	common.Success(c, result)
}

func (h *WalletHandler) RegisterRoutes(router *gin.RouterGroup, requireRead gin.HandlerFunc) {
	me := router.Group("/wallets/me", requireRead)
	{
		me.GET("", h.GetMe)
		me.GET("/balance", h.GetBalance)
		me.GET("/transactions", h.ListTransactions)
	}
	router.GET("/resolve", requireRead, h.Resolve)
}
