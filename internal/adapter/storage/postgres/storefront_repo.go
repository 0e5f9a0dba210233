package postgres

import (
	"context"
	"fmt"
)

// StorefrontRepo implements ports.Storefront against the shop tables.
type StorefrontRepo struct {
	pool Pool
}

// NewStorefrontRepo creates a new StorefrontRepo.
func NewStorefrontRepo(pool Pool) *StorefrontRepo {
	return &StorefrontRepo{pool: pool}
}

// ReduceStock decrements stock for the order's items once per order.
func (r *StorefrontRepo) ReduceStock(ctx context.Context, orderID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin stock update: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `UPDATE orders SET stock_reduced = TRUE WHERE id = $1 AND NOT stock_reduced`, orderID)
	if err != nil {
		return fmt.Errorf("flag stock reduced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`UPDATE products p SET stock_quantity = p.stock_quantity - i.quantity
		FROM order_items i
		WHERE i.order_id = $1 AND p.id = i.product_id AND p.manage_stock`,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("reduce stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stock update: %w", err)
	}
	return nil
}

// EmptyCart removes every cart line of the customer.
func (r *StorefrontRepo) EmptyCart(ctx context.Context, customerID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID); err != nil {
		return fmt.Errorf("empty cart: %w", err)
	}
	return nil
}

// AddOrderNote appends a private note to the order.
func (r *StorefrontRepo) AddOrderNote(ctx context.Context, orderID int64, note string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO order_notes (order_id, note, created_at) VALUES ($1, $2, NOW())`,
		orderID, note,
	)
	if err != nil {
		return fmt.Errorf("add order note: %w", err)
	}
	return nil
}
