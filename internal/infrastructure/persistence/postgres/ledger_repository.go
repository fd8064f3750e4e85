package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// LedgerRepository persists ledger accounts, journal entries and lines.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) CreateAccounts(ctx context.Context, accounts []*entities.LedgerAccount) error {
	q := getQuerier(ctx, r.pool)
	for _, acc := range accounts {
		_, err := q.Exec(ctx, `
			INSERT INTO ledger_accounts (id, wallet_id, kind, currency, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			acc.ID, acc.WalletID, acc.Kind, acc.Currency, acc.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("ledger account %s/%s: %w", acc.WalletID, acc.Kind, domainerrors.ErrDuplicateKey)
			}
			return fmt.Errorf("failed to insert ledger account: %w", err)
		}
	}
	return nil
}

func (r *LedgerRepository) AccountsByWallet(ctx context.Context, walletID uuid.UUID) (map[entities.AccountKind]*entities.LedgerAccount, error) {
	q := getQuerier(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, wallet_id, kind, currency, created_at
		FROM ledger_accounts WHERE wallet_id = $1`, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[entities.AccountKind]*entities.LedgerAccount, 2)
	for rows.Next() {
		var acc entities.LedgerAccount
		if err := rows.Scan(&acc.ID, &acc.WalletID, &acc.Kind, &acc.Currency, &acc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger account: %w", err)
		}
		accounts[acc.Kind] = &acc
	}
	return accounts, rows.Err()
}

func (r *LedgerRepository) FindAccountByID(ctx context.Context, id uuid.UUID) (*entities.LedgerAccount, error) {
	q := getQuerier(ctx, r.pool)
	var acc entities.LedgerAccount
	err := q.QueryRow(ctx, `
		SELECT id, wallet_id, kind, currency, created_at
		FROM ledger_accounts WHERE id = $1`, id).
		Scan(&acc.ID, &acc.WalletID, &acc.Kind, &acc.Currency, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan ledger account: %w", err)
	}
	return &acc, nil
}

func (r *LedgerRepository) AccountWallets(ctx context.Context, accountIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	result := make(map[uuid.UUID]uuid.UUID, len(accountIDs))
	if len(accountIDs) == 0 {
		return result, nil
	}
	q := getQuerier(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, wallet_id FROM ledger_accounts WHERE id = ANY($1)`, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query account wallets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var accountID, walletID uuid.UUID
		if err := rows.Scan(&accountID, &walletID); err != nil {
			return nil, fmt.Errorf("failed to scan account wallet: %w", err)
		}
		result[accountID] = walletID
	}
	return result, rows.Err()
}

// LockAccounts takes FOR UPDATE locks. The ORDER BY matches the caller's
// ascending-id discipline, so concurrent postings queue instead of
// deadlocking.
func (r *LedgerRepository) LockAccounts(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	q := getQuerier(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id FROM ledger_accounts WHERE id = ANY($1)
		ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return fmt.Errorf("failed to lock ledger accounts: %w", err)
	}
	defer rows.Close()
	locked := 0
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan locked account: %w", err)
		}
		locked++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if locked != len(ids) {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *LedgerRepository) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	q := getQuerier(ctx, r.pool)
	var raw string
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(
			CASE WHEN jl.direction = 'credit' THEN jl.amount ELSE -jl.amount END
		), 0)::text
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.journal_entry_id
		WHERE jl.ledger_account_id = $1 AND je.status = 'posted'`, accountID).
		Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return decimal.NewFromString(raw)
}

func (r *LedgerRepository) DailyDebitTotal(ctx context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	q := getQuerier(ctx, r.pool)
	var raw string
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(jl.amount), 0)::text
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.journal_entry_id
		WHERE jl.ledger_account_id = $1
		  AND jl.direction = 'debit'
		  AND je.status = 'posted'
		  AND je.created_at >= $2`, accountID, since).
		Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read daily debit total: %w", err)
	}
	return decimal.NewFromString(raw)
}

func (r *LedgerRepository) CreateEntry(ctx context.Context, entry *entities.JournalEntry) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO journal_entries
			(id, type, status, idempotency_key, reference_id, created_by_api_key_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.Type, entry.Status, entry.IdempotencyKey,
		entry.ReferenceID, entry.CreatedByAPIKeyID, entry.Metadata, entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("journal entry idempotency key %q: %w", entry.IdempotencyKey, domainerrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	for _, line := range entry.Lines {
		_, err := q.Exec(ctx, `
			INSERT INTO journal_lines
				(id, journal_entry_id, ledger_account_id, direction, amount, currency)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
			line.ID, line.JournalEntryID, line.LedgerAccountID,
			line.Direction, line.Amount.String(), line.Amount.Currency(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert journal line: %w", err)
		}
	}
	return nil
}

const entryColumns = `id, type, status, idempotency_key, reference_id, created_by_api_key_id, metadata, created_at`

func (r *LedgerRepository) FindEntryByID(ctx context.Context, id uuid.UUID) (*entities.JournalEntry, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*entities.JournalEntry{entry}); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *LedgerRepository) FindEntryByIdempotency(ctx context.Context, idempotencyKey string, apiKeyID uuid.UUID) (*entities.JournalEntry, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE idempotency_key = $1 AND created_by_api_key_id = $2`,
		idempotencyKey, apiKeyID)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*entities.JournalEntry{entry}); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *LedgerRepository) ListEntriesForAccounts(ctx context.Context, accountIDs []uuid.UUID, filter ports.TransactionFilter) ([]*entities.JournalEntry, error) {
	sql := `
		SELECT DISTINCT ` + prefixColumns("je", entryColumns) + `
		FROM journal_entries je
		JOIN journal_lines jl ON jl.journal_entry_id = je.id
		WHERE jl.ledger_account_id = ANY($1)`
	args := []any{accountIDs}
	n := 1

	add := func(clause string, value any) {
		n++
		sql += fmt.Sprintf(clause, n)
		args = append(args, value)
	}
	if filter.Type != nil {
		add(" AND je.type = $%d", *filter.Type)
	}
	if filter.Status != nil {
		add(" AND je.status = $%d", *filter.Status)
	}
	if filter.From != nil {
		add(" AND je.created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add(" AND je.created_at <= $%d", *filter.To)
	}
	if filter.CursorTime != nil && filter.CursorID != nil {
		sql += fmt.Sprintf(" AND (je.created_at, je.id) < ($%d, $%d)", n+1, n+2)
		args = append(args, *filter.CursorTime, *filter.CursorID)
		n += 2
	}
	sql += " ORDER BY je.created_at DESC, je.id DESC"
	if filter.Limit > 0 {
		n++
		sql += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, filter.Limit)
	}

	q := getQuerier(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*entities.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerRepository) loadLines(ctx context.Context, entries []*entities.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*entities.JournalEntry, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}
	q := getQuerier(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, journal_entry_id, ledger_account_id, direction, amount::text, currency
		FROM journal_lines WHERE journal_entry_id = ANY($1)
		ORDER BY journal_entry_id, id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load journal lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			line     entities.JournalLine
			amount   string
			currency valueobjects.Currency
		)
		if err := rows.Scan(&line.ID, &line.JournalEntryID, &line.LedgerAccountID,
			&line.Direction, &amount, &currency); err != nil {
			return fmt.Errorf("failed to scan journal line: %w", err)
		}
		money, err := valueobjects.NewMoney(amount, currency)
		if err != nil {
			return fmt.Errorf("stored amount %q is invalid: %w", amount, err)
		}
		line.Amount = money
		if entry, ok := byID[line.JournalEntryID]; ok {
			entry.Lines = append(entry.Lines, line)
		}
	}
	return rows.Err()
}

func scanEntry(row pgx.Row) (*entities.JournalEntry, error) {
	var e entities.JournalEntry
	err := row.Scan(&e.ID, &e.Type, &e.Status, &e.IdempotencyKey,
		&e.ReferenceID, &e.CreatedByAPIKeyID, &e.Metadata, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan journal entry: %w", err)
	}
	return &e, nil
}

// prefixColumns turns "a, b" into "t.a, t.b".
func prefixColumns(table, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += table + "." + col
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(columns); i++ {
		if i == len(columns) || columns[i] == ',' {
			col := columns[start:i]
			for len(col) > 0 && col[0] == ' ' {
				col = col[1:]
			}
			if col != "" {
				out = append(out, col)
			}
			start = i + 1
		}
	}
	return out
}
