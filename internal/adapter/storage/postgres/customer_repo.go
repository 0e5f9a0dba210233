package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, email, first_name, last_name, phone, password_hash, wallet_locked, pos_originated, created_at`

// CustomerRepo implements ports.CustomerRepository.
type CustomerRepo struct {
	pool Pool
}

// NewCustomerRepo creates a new CustomerRepo.
func NewCustomerRepo(pool Pool) *CustomerRepo {
	return &CustomerRepo{pool: pool}
}

// Create inserts a customer and fills in the generated id.
func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	query := `INSERT INTO customers (email, first_name, last_name, phone, password_hash, wallet_locked, pos_originated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		strings.ToLower(c.Email), c.FirstName, c.LastName, c.Phone,
		c.PasswordHash, c.WalletLocked, c.POSOriginated,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert customer %s: email already registered", c.Email)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID fetches a customer by id.
func (r *CustomerRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return scanCustomer(r.pool.QueryRow(ctx, query, id), "get customer by id")
}

// GetByEmail fetches a customer by email, case-insensitively.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`
	return scanCustomer(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))), "get customer by email")
}

// GetByPhone fetches the oldest customer with the given phone number.
func (r *CustomerRepo) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1 ORDER BY id LIMIT 1`
	return scanCustomer(r.pool.QueryRow(ctx, query, strings.TrimSpace(phone)), "get customer by phone")
}

func scanCustomer(row pgx.Row, op string) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := row.Scan(
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Phone,
		&c.PasswordHash, &c.WalletLocked, &c.POSOriginated, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}
