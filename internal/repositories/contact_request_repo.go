package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/database"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// ContactRequestRepository stores lockout escape-hatch requests for
// operator follow-up.
type ContactRequestRepository struct {
	pool *pgxpool.Pool
}

func NewContactRequestRepository(db *database.DB) *ContactRequestRepository {
	return &ContactRequestRepository{pool: db.Pool}
}

func scanContactRequestRow(scanner rowScanner) (*models.ContactRequest, error) {
	var req models.ContactRequest

	err := scanner.Scan(
		&req.ID, &req.Identifier, &req.Message, &req.Status,
		&req.CreatedAt, &req.ResolvedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &req, nil
}

func (r *ContactRequestRepository) Create(ctx context.Context, req *models.ContactRequest) (*models.ContactRequest, error) {
	req.ID = uuid.New().String()
	req.Status = models.ContactRequestPending
	req.CreatedAt = time.Now()

	query := `
		INSERT INTO contact_requests (id, identifier, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, identifier, message, status, created_at, resolved_at
	`

	created, err := scanContactRequestRow(r.pool.QueryRow(ctx, query,
		req.ID, req.Identifier, req.Message, req.Status, req.CreatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

// ListPending returns unresolved requests, oldest first so operators work
// the queue in arrival order.
func (r *ContactRequestRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.ContactRequest, error) {
	query := `
		SELECT id, identifier, message, status, created_at, resolved_at
		FROM contact_requests
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, models.ContactRequestPending, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.ContactRequest, 0)
	for rows.Next() {
		req, err := scanContactRequestRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact request rows: %w", err)
	}

	return requests, nil
}

// Resolve marks a pending request as handled.
func (r *ContactRequestRepository) Resolve(ctx context.Context, id string) error {
	query := `
		UPDATE contact_requests SET status = $1, resolved_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query,
		models.ContactRequestResolved, time.Now(), id, models.ContactRequestPending,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountPendingByIdentifier counts open requests for one identifier, used to
// throttle repeat submissions.
func (r *ContactRequestRepository) CountPendingByIdentifier(ctx context.Context, identifier string) (int64, error) {
	query := `SELECT COUNT(*) FROM contact_requests WHERE identifier = $1 AND status = $2`

	var count int64
	err := r.pool.QueryRow(ctx, query, identifier, models.ContactRequestPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contact requests: %w", err)
	}

	return count, nil
}
