package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/database"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// TwoFactorRepository stores per-account second-factor configuration. The
// TOTP secret is encrypted before it reaches this layer.
type TwoFactorRepository struct {
	pool *pgxpool.Pool
}

func NewTwoFactorRepository(db *database.DB) *TwoFactorRepository {
	return &TwoFactorRepository{pool: db.Pool}
}

func (r *TwoFactorRepository) GetByAccountID(ctx context.Context, accountID string) (*models.TwoFactorConfig, error) {
	query := `
		SELECT account_id, enabled, secret_encrypted, secret_nonce, enrolled_at, updated_at
		FROM two_factor_configs WHERE account_id = $1
	`

	var cfg models.TwoFactorConfig
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&cfg.AccountID, &cfg.Enabled, &cfg.SecretEncrypted, &cfg.SecretNonce,
		&cfg.EnrolledAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &cfg, nil
}

// Upsert writes the account's second-factor configuration, replacing any
// previous secret.
func (r *TwoFactorRepository) Upsert(ctx context.Context, cfg *models.TwoFactorConfig) error {
	cfg.UpdatedAt = time.Now()

	query := `
		INSERT INTO two_factor_configs (account_id, enabled, secret_encrypted, secret_nonce, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE
			SET enabled = $2, secret_encrypted = $3, secret_nonce = $4, enrolled_at = $5, updated_at = $6
	`

	_, err := r.pool.Exec(ctx, query,
		cfg.AccountID, cfg.Enabled, cfg.SecretEncrypted, cfg.SecretNonce,
		cfg.EnrolledAt, cfg.UpdatedAt,
	)
	return database.MapPostgresError(err)
}

// Delete removes the account's second-factor configuration along with its
// secret material.
func (r *TwoFactorRepository) Delete(ctx context.Context, accountID string) error {
	query := `DELETE FROM two_factor_configs WHERE account_id = $1`

	result, err := r.pool.Exec(ctx, query, accountID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
