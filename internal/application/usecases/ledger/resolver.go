package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// Resolver turns recipient references into wallets. Precedence when a
// request sets several fields: wallet_id, handle, external_identity.
type Resolver struct {
	wallets    ports.WalletRepository
	identities ports.ExternalIdentityRepository
}

func NewResolver(wallets ports.WalletRepository, identities ports.ExternalIdentityRepository) *Resolver {
	return &Resolver{wallets: wallets, identities: identities}
}

// Resolve finds the wallet a RecipientRef points at and verifies it can
// receive funds. Missing recipients are RECIPIENT_NOT_FOUND; frozen or
// closed ones surface their state error.
func (r *Resolver) Resolve(ctx context.Context, ref dtos.RecipientRef) (*entities.Wallet, error) {
	wallet, err := r.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := wallet.EnsureActive(); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *Resolver) lookup(ctx context.Context, ref dtos.RecipientRef) (*entities.Wallet, error) {
	switch {
	case ref.WalletID != nil:
		return r.byID(ctx, *ref.WalletID)
	case ref.Handle != nil:
		return r.byHandle(ctx, *ref.Handle)
	case ref.ExternalIdentity != nil:
		return r.byIdentity(ctx, ref.ExternalIdentity.Provider, ref.ExternalIdentity.ExternalUserID)
	default:
		return nil, domainerrors.Validation("recipient requires wallet_id, handle or external_identity")
	}
}

// ResolveQuery serves GET /v1/resolve: the same three paths, addressed by
// query parameters, without the active-state requirement.
func (r *Resolver) ResolveQuery(ctx context.Context, query dtos.ResolveQuery) (*entities.Wallet, error) {
	switch query.Type {
	case "wallet_id":
		id, err := uuid.Parse(query.Value)
		if err != nil {
			return nil, domainerrors.Validation("value is not a valid wallet id")
		}
		return r.byID(ctx, id)
	case "handle":
		return r.byHandle(ctx, query.Value)
	case "external_identity":
		if query.Provider == "" {
			return nil, domainerrors.Validation("provider is required for external_identity lookups")
		}
		return r.byIdentity(ctx, query.Provider, query.Value)
	default:
		return nil, domainerrors.Validation("type must be wallet_id, handle or external_identity")
	}
}

func (r *Resolver) byID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	wallet, err := r.wallets.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAsRecipient(err)
	}
	return wallet, nil
}

func (r *Resolver) byHandle(ctx context.Context, handle string) (*entities.Wallet, error) {
	wallet, err := r.wallets.FindByHandle(ctx, NormalizeHandle(handle))
	if err != nil {
		return nil, notFoundAsRecipient(err)
	}
	return wallet, nil
}

// NormalizeHandle prepends the "@" that handles are stored with when the
// caller left it off.
func NormalizeHandle(handle string) string {
	if handle == "" || strings.HasPrefix(handle, "@") {
		return handle
	}
	return "@" + handle
}

func (r *Resolver) byIdentity(ctx context.Context, provider, externalUserID string) (*entities.Wallet, error) {
	identity, err := r.identities.Find(ctx, provider, externalUserID)
	if err != nil {
		return nil, notFoundAsRecipient(err)
	}
	wallet, err := r.wallets.FindByID(ctx, identity.WalletID)
	if err != nil {
		return nil, notFoundAsRecipient(err)
	}
	return wallet, nil
}

func notFoundAsRecipient(err error) error {
	if errors.Is(err, domainerrors.ErrNotFound) {
		return domainerrors.New(domainerrors.CodeRecipientNotFound, "recipient not found")
	}
	return err
}
