package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, customer_id, total, currency, status, payment_method, transaction_id,
	pos_transaction_id, pos_reference, paid_via_ssot, is_renewal, renewal_processed, refunded_total, refund_count,
	paid_at, created_at, updated_at`

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// GetByID fetches an order by id.
func (r *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// Update persists the payment stamps of an order. Totals are never rewritten.
func (r *OrderRepo) Update(ctx context.Context, o *domain.Order) error {
	query := `UPDATE orders SET status = $1, transaction_id = $2, pos_transaction_id = $3, pos_reference = $4,
		paid_via_ssot = $5, renewal_processed = $6, paid_at = $7, updated_at = $8
		WHERE id = $9`

	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, query,
		string(o.Status), o.TransactionID, o.POSTransactionID, o.POSReference,
		o.PaidViaSSoT, o.RenewalProcessed, o.PaidAt, now, o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %d", o.ID)
	}
	o.UpdatedAt = now
	return nil
}

// ReserveRefund claims amount against the order total in one statement, so
// concurrent refunds can never exceed it.
func (r *OrderRepo) ReserveRefund(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Order, bool, error) {
	query := `UPDATE orders SET refunded_total = refunded_total + $2, refund_count = refund_count + 1, updated_at = NOW()
		WHERE id = $1 AND refunded_total + $2 <= total
		RETURNING ` + orderColumns

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reserve refund: %w", err)
	}
	return o, true, nil
}

// ReleaseRefund returns a reserved amount. refund_count stays as is.
func (r *OrderRepo) ReleaseRefund(ctx context.Context, id int64, amount decimal.Decimal) error {
	query := `UPDATE orders SET refunded_total = GREATEST(refunded_total - $2, 0), updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("release refund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %d", id)
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	var status string
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Total, &o.Currency, &status, &o.PaymentMethod, &o.TransactionID,
		&o.POSTransactionID, &o.POSReference, &o.PaidViaSSoT, &o.IsRenewal, &o.RenewalProcessed,
		&o.RefundedTotal, &o.RefundCount, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}
