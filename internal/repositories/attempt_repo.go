package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/database"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// AttemptRepository persists the per-identifier failed-attempt counters.
// All increments go through a single UPSERT so concurrent submissions for
// the same identifier serialize on the row instead of clobbering each other.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{pool: db.Pool}
}

// Get returns the attempt record for an identifier. A missing row yields the
// zero record. When the stored row cannot be read back into a coherent
// record (scan failure, negative count, lock set before the window opened),
// Get reports corrupted=true alongside the zero record so callers can treat
// the state as absent rather than deny service.
func (r *AttemptRepository) Get(ctx context.Context, identifier string) (*models.AttemptRecord, bool, error) {
	query := `
		SELECT identifier, count, window_start, lock_until, updated_at
		FROM attempt_records WHERE identifier = $1
	`

	var rec models.AttemptRecord
	err := r.pool.QueryRow(ctx, query, identifier).Scan(
		&rec.Identifier, &rec.Count, &rec.WindowStart, &rec.LockUntil, &rec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return models.ZeroAttemptRecord(identifier), false, nil
	}
	if err != nil {
		return models.ZeroAttemptRecord(identifier), true, nil
	}

	if rec.Count < 0 || (rec.LockUntil != nil && rec.LockUntil.Before(rec.WindowStart)) {
		return models.ZeroAttemptRecord(identifier), true, nil
	}

	return &rec, false, nil
}

// Increment records one failed attempt and returns the updated record.
// The first failure for an identifier creates the row and opens the window;
// later failures bump the counter in place.
func (r *AttemptRepository) Increment(ctx context.Context, identifier string, now time.Time) (*models.AttemptRecord, error) {
	query := `
		INSERT INTO attempt_records (identifier, count, window_start, updated_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (identifier) DO UPDATE
			SET count = attempt_records.count + 1, updated_at = $2
		RETURNING identifier, count, window_start, lock_until, updated_at
	`

	var rec models.AttemptRecord
	err := r.pool.QueryRow(ctx, query, identifier, now).Scan(
		&rec.Identifier, &rec.Count, &rec.WindowStart, &rec.LockUntil, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &rec, nil
}

// SetLock stamps a lockout deadline on an identifier's record. Applying the
// same deadline twice is harmless, so racing submissions that both cross the
// threshold converge on one lock.
func (r *AttemptRepository) SetLock(ctx context.Context, identifier string, lockUntil, now time.Time) error {
	query := `
		UPDATE attempt_records SET lock_until = $1, updated_at = $2
		WHERE identifier = $3
	`

	_, err := r.pool.Exec(ctx, query, lockUntil, now, identifier)
	return database.MapPostgresError(err)
}

// Reset clears the identifier's attempt state entirely. Used on successful
// login and when an expired lockout is followed by a fresh attempt.
func (r *AttemptRepository) Reset(ctx context.Context, identifier string) error {
	query := `DELETE FROM attempt_records WHERE identifier = $1`

	_, err := r.pool.Exec(ctx, query, identifier)
	return database.MapPostgresError(err)
}

// DeleteStale removes records untouched for longer than the retention
// period. Expired lockouts ride along: a record whose lock has lapsed and
// that sees no new activity ages out here.
func (r *AttemptRepository) DeleteStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM attempt_records WHERE updated_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
