package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/database"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// DeviceTrustRepository manages the bounded per-account trust list.
type DeviceTrustRepository struct {
	pool *pgxpool.Pool
}

func NewDeviceTrustRepository(db *database.DB) *DeviceTrustRepository {
	return &DeviceTrustRepository{pool: db.Pool}
}

func scanDeviceRow(scanner rowScanner) (*models.DeviceTrustEntry, error) {
	var entry models.DeviceTrustEntry

	err := scanner.Scan(
		&entry.Token, &entry.AccountID, &entry.Fingerprint,
		&entry.CreatedAt, &entry.LastUsedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

// Create inserts a trust entry, evicting the account's oldest entries so the
// list never exceeds capacity. Insert and eviction run in one transaction.
func (r *DeviceTrustRepository) Create(ctx context.Context, entry *models.DeviceTrustEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO trusted_devices (token, account_id, fingerprint, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := tx.Exec(ctx, insert,
		entry.Token, entry.AccountID, entry.Fingerprint, entry.CreatedAt, entry.LastUsedAt,
	); err != nil {
		return database.MapPostgresError(err)
	}

	evict := `
		DELETE FROM trusted_devices
		WHERE account_id = $1 AND token NOT IN (
			SELECT token FROM trusted_devices
			WHERE account_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)
	`

	if _, err := tx.Exec(ctx, evict, entry.AccountID, models.DeviceTrustCapacity); err != nil {
		return database.MapPostgresError(err)
	}

	return tx.Commit(ctx)
}

// GetByToken looks up a trust entry by its opaque token.
func (r *DeviceTrustRepository) GetByToken(ctx context.Context, token string) (*models.DeviceTrustEntry, error) {
	query := `
		SELECT token, account_id, fingerprint, created_at, last_used_at
		FROM trusted_devices WHERE token = $1
	`

	return scanDeviceRow(r.pool.QueryRow(ctx, query, token))
}

// ListByAccount returns the account's trust entries, newest first.
func (r *DeviceTrustRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.DeviceTrustEntry, error) {
	query := `
		SELECT token, account_id, fingerprint, created_at, last_used_at
		FROM trusted_devices
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trusted devices: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.DeviceTrustEntry, 0)
	for rows.Next() {
		entry, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trusted device: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trusted device rows: %w", err)
	}

	return entries, nil
}

// Touch updates the entry's last-used timestamp.
func (r *DeviceTrustRepository) Touch(ctx context.Context, token string, usedAt time.Time) error {
	query := `UPDATE trusted_devices SET last_used_at = $1 WHERE token = $2`

	_, err := r.pool.Exec(ctx, query, usedAt, token)
	return database.MapPostgresError(err)
}

// Delete removes one trust entry scoped to the owning account.
func (r *DeviceTrustRepository) Delete(ctx context.Context, accountID, token string) error {
	query := `DELETE FROM trusted_devices WHERE account_id = $1 AND token = $2`

	result, err := r.pool.Exec(ctx, query, accountID, token)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteByAccount clears the account's entire trust list.
func (r *DeviceTrustRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	query := `DELETE FROM trusted_devices WHERE account_id = $1`

	result, err := r.pool.Exec(ctx, query, accountID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
