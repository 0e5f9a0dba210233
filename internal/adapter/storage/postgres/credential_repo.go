package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-pos-bridge/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// CredentialRepo implements ports.CredentialRepository over a single-row table.
type CredentialRepo struct {
	pool Pool
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(pool Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

func (r *CredentialRepo) Get(ctx context.Context) (*ports.StoredCredentials, error) {
	c := &ports.StoredCredentials{}
	err := r.pool.QueryRow(ctx,
		`SELECT api_key, signing_secret_enc, generated_at, revoked_at FROM pos_credentials WHERE id = 1`,
	).Scan(&c.APIKey, &c.SigningSecretEnc, &c.GeneratedAt, &c.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pos credentials: %w", err)
	}
	return c, nil
}

// Save replaces the stored pair.
func (r *CredentialRepo) Save(ctx context.Context, c *ports.StoredCredentials) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pos_credentials (id, api_key, signing_secret_enc, generated_at, revoked_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			signing_secret_enc = EXCLUDED.signing_secret_enc,
			generated_at = EXCLUDED.generated_at,
			revoked_at = EXCLUDED.revoked_at`,
		c.APIKey, c.SigningSecretEnc, c.GeneratedAt, c.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("save pos credentials: %w", err)
	}
	return nil
}
