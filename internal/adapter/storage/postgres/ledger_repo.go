package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, type, amount, balance, currency, details, created_at`

// LedgerRepo implements ports.LedgerStore. Every write locks the customer's
// wallet row so balance snapshots are taken serially.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Balance returns the running balance, zero for customers without a wallet row.
func (r *LedgerRepo) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("get wallet balance: %w", err)
	}
	return balance, nil
}

// Record appends one ledger row and its meta in a single transaction.
func (r *LedgerRepo) Record(ctx context.Context, entry domain.LedgerEntry) (*domain.WalletTransaction, error) {
	if !entry.Type.Valid() {
		return nil, fmt.Errorf("record transaction: unknown type %q", entry.Type)
	}
	if !domain.ValidAmount(entry.Amount) {
		return nil, fmt.Errorf("record transaction: amount %s must be positive with at most %d decimals", entry.Amount, domain.AmountScale)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO wallets (user_id, balance, currency, updated_at) VALUES ($1, 0, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING`,
		entry.UserID, entry.Currency,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}

	var current decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, entry.UserID).Scan(&current)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	next := current.Add(entry.Amount)
	if entry.Type == domain.TransactionTypeDebit {
		if entry.Amount.GreaterThan(current) {
			return nil, fmt.Errorf("debit %s from %s: %w", entry.Amount, current, domain.ErrInsufficientFunds)
		}
		next = current.Sub(entry.Amount)
	}

	t := &domain.WalletTransaction{
		UserID:   entry.UserID,
		Type:     entry.Type,
		Amount:   entry.Amount,
		Balance:  next,
		Currency: entry.Currency,
		Details:  entry.Details,
		Meta:     make(map[string]string, len(entry.Meta)),
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO wallet_transactions (user_id, type, amount, balance, currency, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`,
		t.UserID, string(t.Type), t.Amount, t.Balance, t.Currency, t.Details,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert wallet transaction: %w", err)
	}

	for _, key := range sortedKeys(entry.Meta) {
		value := entry.Meta[key]
		if value == "" {
			continue
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO wallet_transaction_meta (transaction_id, meta_key, meta_value) VALUES ($1, $2, $3)`,
			t.ID, key, value,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("insert meta %s=%s: %w", key, value, domain.ErrDuplicateReference)
			}
			return nil, fmt.Errorf("insert meta %s: %w", key, err)
		}
		t.Meta[key] = value
	}

	_, err = tx.Exec(ctx, `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE user_id = $2`, next, entry.UserID)
	if err != nil {
		return nil, fmt.Errorf("update wallet balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("commit ledger transaction: %w", domain.ErrDuplicateReference)
		}
		return nil, fmt.Errorf("commit ledger transaction: %w", err)
	}
	return t, nil
}

// GetByID fetches a transaction with its meta.
func (r *LedgerRepo) GetByID(ctx context.Context, id int64) (*domain.WalletTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`

	t, err := scanWalletTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil || t == nil {
		return t, err
	}
	if err := r.loadMeta(ctx, []*domain.WalletTransaction{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// FindByReference fetches the transaction carrying the external reference.
func (r *LedgerRepo) FindByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	query := `SELECT t.id, t.user_id, t.type, t.amount, t.balance, t.currency, t.details, t.created_at
		FROM wallet_transactions t
		JOIN wallet_transaction_meta m ON m.transaction_id = t.id
		WHERE m.meta_key = $1 AND m.meta_value = $2
		LIMIT 1`

	t, err := scanWalletTransaction(r.pool.QueryRow(ctx, query, domain.MetaExternalReference, reference))
	if err != nil || t == nil {
		return t, err
	}
	if err := r.loadMeta(ctx, []*domain.WalletTransaction{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// SetMeta upserts meta keys; an empty value deletes the key.
func (r *LedgerRepo) SetMeta(ctx context.Context, transactionID int64, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin meta update: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, key := range sortedKeys(meta) {
		value := meta[key]
		if value == "" {
			_, err = tx.Exec(ctx,
				`DELETE FROM wallet_transaction_meta WHERE transaction_id = $1 AND meta_key = $2`,
				transactionID, key,
			)
		} else {
			_, err = tx.Exec(ctx,
				`INSERT INTO wallet_transaction_meta (transaction_id, meta_key, meta_value) VALUES ($1, $2, $3)
				ON CONFLICT (transaction_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`,
				transactionID, key, value,
			)
		}
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("set meta %s: %w", key, domain.ErrDuplicateReference)
			}
			return fmt.Errorf("set meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit meta update: %w", err)
	}
	return nil
}

// List returns one page of a customer's history, newest first.
func (r *LedgerRepo) List(ctx context.Context, userID int64, page, perPage int) ([]domain.WalletTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	// Count total
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}

	// Fetch page
	offset := (page - 1) * perPage
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.WalletTransaction
	for rows.Next() {
		var t domain.WalletTransaction
		var typ string
		if err := rows.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.Balance, &t.Currency, &t.Details, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan wallet transaction row: %w", err)
		}
		t.Type = domain.TransactionType(typ)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wallet transaction rows: %w", err)
	}

	ptrs := make([]*domain.WalletTransaction, len(txns))
	for i := range txns {
		ptrs[i] = &txns[i]
	}
	if err := r.loadMeta(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *LedgerRepo) loadMeta(ctx context.Context, txns []*domain.WalletTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	ids := make([]int64, len(txns))
	byID := make(map[int64]*domain.WalletTransaction, len(txns))
	for i, t := range txns {
		ids[i] = t.ID
		if t.Meta == nil {
			t.Meta = map[string]string{}
		}
		byID[t.ID] = t
	}

	rows, err := r.pool.Query(ctx,
		`SELECT transaction_id, meta_key, meta_value FROM wallet_transaction_meta WHERE transaction_id = ANY($1)`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("load transaction meta: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var key, value string
		if err := rows.Scan(&id, &key, &value); err != nil {
			return fmt.Errorf("scan transaction meta: %w", err)
		}
		if t, ok := byID[id]; ok {
			t.Meta[key] = value
		}
	}
	return rows.Err()
}

func scanWalletTransaction(row pgx.Row) (*domain.WalletTransaction, error) {
	t := &domain.WalletTransaction{}
	var typ string
	err := row.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.Balance, &t.Currency, &t.Details, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet transaction: %w", err)
	}
	t.Type = domain.TransactionType(typ)
	return t, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
