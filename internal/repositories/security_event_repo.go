package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/database"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// SecurityEventRepository handles the append-only security event log.
type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityEventRepository creates a new SecurityEventRepository
func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{pool: db.Pool}
}

// scanSecurityEventRow handles nullable fields and populates a SecurityEvent model from a database row
func scanSecurityEventRow(row rowScanner) (*models.SecurityEvent, error) {
	var event models.SecurityEvent

	err := row.Scan(
		&event.ID, &event.EventType, &event.Identifier, &event.ClientSignature,
		&event.IPAddress, &event.Metadata, &event.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &event, nil
}

// scanSecurityEventRows iterates through rows and scans each into SecurityEvent models
func scanSecurityEventRows(rows pgx.Rows) ([]*models.SecurityEvent, error) {
	defer rows.Close()

	events := make([]*models.SecurityEvent, 0)

	for rows.Next() {
		event, err := scanSecurityEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security event rows: %w", err)
	}

	return events, nil
}

// Create appends one security event. Entries are never updated afterwards.
func (r *SecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error) {
	query := `
		INSERT INTO security_events (event_type, identifier, client_signature, ip_address, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, event_type, identifier, client_signature, ip_address, metadata, created_at
	`

	result, err := scanSecurityEventRow(r.pool.QueryRow(
		ctx, query,
		event.EventType, event.Identifier, event.ClientSignature, event.IPAddress, event.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create security event: %w", err)
	}

	return result, nil
}

// ListRecent retrieves the most recent events across all identifiers.
func (r *SecurityEventRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT id, event_type, identifier, client_signature, ip_address, metadata, created_at
		FROM security_events
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanSecurityEventRows(rows)
}

// ListByIdentifier retrieves events for one identifier, newest first.
func (r *SecurityEventRepository) ListByIdentifier(ctx context.Context, identifier string, limit, offset int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT id, event_type, identifier, client_signature, ip_address, metadata, created_at
		FROM security_events
		WHERE identifier = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, identifier, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanSecurityEventRows(rows)
}

// ListByEventType retrieves events of one type, newest first.
func (r *SecurityEventRepository) ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT id, event_type, identifier, client_signature, ip_address, metadata, created_at
		FROM security_events
		WHERE event_type = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, eventType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanSecurityEventRows(rows)
}

// CountByIdentifier counts events recorded for one identifier.
func (r *SecurityEventRepository) CountByIdentifier(ctx context.Context, identifier string) (int64, error) {
	query := `SELECT COUNT(*) FROM security_events WHERE identifier = $1`

	var count int64
	err := r.pool.QueryRow(ctx, query, identifier).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count security events: %w", err)
	}

	return count, nil
}

// Cleanup removes events older than the specified number of days
func (r *SecurityEventRepository) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
		DELETE FROM security_events
		WHERE created_at < CURRENT_TIMESTAMP - INTERVAL '1 day' * $1
	`

	result, err := r.pool.Exec(ctx, query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup security events: %w", err)
	}

	return result.RowsAffected(), nil
}
