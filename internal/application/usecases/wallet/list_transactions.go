package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ListTransactionsUseCase pages the caller's journal entries, newest first,
// one item per entry regardless of how many lines touch the caller.
type ListTransactionsUseCase struct {
	wallets ports.WalletRepository
	ledger  ports.LedgerRepository
	engine  *ledger.Engine
}

func NewListTransactionsUseCase(wallets ports.WalletRepository, ledgerRepo ports.LedgerRepository, engine *ledger.Engine) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{wallets: wallets, ledger: ledgerRepo, engine: engine}
}

func (uc *ListTransactionsUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, query dtos.ListTransactionsQuery) (*dtos.TransactionListResponse, error) {
	filter, err := uc.buildFilter(query)
	if err != nil {
		return nil, err
	}

	accounts, err := uc.ledger.AccountsByWallet(ctx, apiKey.WalletID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return &dtos.TransactionListResponse{Items: []dtos.TransactionItem{}}, nil
	}
	accountIDs := make([]uuid.UUID, 0, len(accounts))
	mine := make(map[uuid.UUID]entities.AccountKind, len(accounts))
	for _, acc := range accounts {
		accountIDs = append(accountIDs, acc.ID)
		mine[acc.ID] = acc.Kind
	}

	// One extra row decides whether there is a next page.
	limit := filter.Limit
	filter.Limit = limit + 1
	entries, err := uc.ledger.ListEntriesForAccounts(ctx, accountIDs, filter)
	if err != nil {
		return nil, err
	}
	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	foreign := uc.collectForeignAccounts(entries, mine)
	walletOf, err := uc.ledger.AccountWallets(ctx, foreign)
	if err != nil {
		return nil, err
	}
	handleOf, err := uc.counterpartyHandles(ctx, walletOf)
	if err != nil {
		return nil, err
	}

	items := make([]dtos.TransactionItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, uc.toItem(entry, mine, walletOf, handleOf))
	}

	resp := &dtos.TransactionListResponse{Items: items}
	if hasMore && len(items) > 0 {
		last := entries[len(entries)-1]
		cursor := EncodeCursor(last.CreatedAt, last.ID)
		resp.NextCursor = &cursor
	}
	return resp, nil
}

func (uc *ListTransactionsUseCase) buildFilter(query dtos.ListTransactionsQuery) (ports.TransactionFilter, error) {
	filter := ports.TransactionFilter{Limit: defaultPageSize}
	if query.Limit > 0 {
		filter.Limit = min(query.Limit, maxPageSize)
	}
	if query.Type != "" {
		t := entities.EntryType(query.Type)
		filter.Type = &t
	}
	if query.Status != "" {
		s := entities.EntryStatus(query.Status)
		filter.Status = &s
	}
	if query.From != "" {
		from, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			return filter, domainerrors.Validation("from must be an RFC 3339 timestamp")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			return filter, domainerrors.Validation("to must be an RFC 3339 timestamp")
		}
		filter.To = &to
	}
	if query.Cursor != "" {
		ts, id, err := DecodeCursor(query.Cursor)
		if err != nil {
			return filter, err
		}
		filter.CursorTime = &ts
		filter.CursorID = &id
	}
	return filter, nil
}

func (uc *ListTransactionsUseCase) collectForeignAccounts(entries []*entities.JournalEntry, mine map[uuid.UUID]entities.AccountKind) []uuid.UUID {
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, entry := range entries {
		for _, line := range entry.Lines {
			if _, ours := mine[line.LedgerAccountID]; !ours && !seen[line.LedgerAccountID] {
				seen[line.LedgerAccountID] = true
				ids = append(ids, line.LedgerAccountID)
			}
		}
	}
	return ids
}

// counterpartyHandles loads the handle of every wallet appearing on the
// other side of the page's entries.
func (uc *ListTransactionsUseCase) counterpartyHandles(ctx context.Context, walletOf map[uuid.UUID]uuid.UUID) (map[uuid.UUID]*string, error) {
	handles := make(map[uuid.UUID]*string)
	for _, wid := range walletOf {
		if _, done := handles[wid]; done {
			continue
		}
		w, err := uc.wallets.FindByID(ctx, wid)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				handles[wid] = nil
				continue
			}
			return nil, err
		}
		handles[wid] = w.Handle
	}
	return handles, nil
}

// toItem views one entry from the caller's side. The caller's line gives
// amount and direction, preferring the available account when an entry
// touches both of the caller's accounts. The counterparty is the first line
// on someone else's account; self-only entries get nil.
func (uc *ListTransactionsUseCase) toItem(entry *entities.JournalEntry, mine map[uuid.UUID]entities.AccountKind, walletOf map[uuid.UUID]uuid.UUID, handleOf map[uuid.UUID]*string) dtos.TransactionItem {
	var myLine *entities.JournalLine
	for i := range entry.Lines {
		line := &entry.Lines[i]
		kind, ours := mine[line.LedgerAccountID]
		if !ours {
			continue
		}
		if myLine == nil || kind == entities.AccountKindAvailable {
			myLine = line
		}
		if kind == entities.AccountKindAvailable {
			break
		}
	}

	var counterparty *uuid.UUID
	var counterpartyHandle *string
	for _, line := range entry.Lines {
		if _, ours := mine[line.LedgerAccountID]; !ours {
			if wid, ok := walletOf[line.LedgerAccountID]; ok {
				counterparty = &wid
				counterpartyHandle = handleOf[wid]
			}
			break
		}
	}

	item := dtos.TransactionItem{
		ID:                   entry.ID,
		Type:                 string(entry.Type),
		Status:               string(entry.Status),
		CounterpartyWalletID: counterparty,
		CounterpartyHandle:   counterpartyHandle,
		CreatedAt:            entry.CreatedAt,
	}
	if myLine != nil {
		item.Amount = myLine.Amount.String()
		item.Currency = myLine.Amount.Currency().String()
		item.Direction = string(myLine.Direction)
	} else {
		item.Amount = ledger.EntryAmount(entry).String()
		item.Currency = entry.Currency().String()
	}
	return item
}
