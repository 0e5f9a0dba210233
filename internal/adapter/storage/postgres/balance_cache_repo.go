package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceCacheRepo implements ports.BalanceCacheRepository.
type BalanceCacheRepo struct {
	pool Pool
}

// NewBalanceCacheRepo creates a new BalanceCacheRepo.
func NewBalanceCacheRepo(pool Pool) *BalanceCacheRepo {
	return &BalanceCacheRepo{pool: pool}
}

// Get returns the cached remote balance, or nil when none was ever stored.
func (r *BalanceCacheRepo) Get(ctx context.Context, userID int64) (*domain.BalanceCache, error) {
	c := &domain.BalanceCache{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, balance, updated_at FROM balance_cache WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &c.Balance, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance cache: %w", err)
	}
	return c, nil
}

// Set always overwrites; the POS response is the newest truth.
func (r *BalanceCacheRepo) Set(ctx context.Context, userID int64, balance decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO balance_cache (user_id, balance, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at`,
		userID, balance,
	)
	if err != nil {
		return fmt.Errorf("set balance cache: %w", err)
	}
	return nil
}
