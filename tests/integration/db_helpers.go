package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/database"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/repositories"
	"github.com/yayasalr/shalomjobcenter-27-sub004/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	// Create PostgreSQL container
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("securitygate"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	// Get connection string
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	// Create connection pool
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Run migrations
	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create database.DB wrapper
	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Get absolute path to migrations directory
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Suppress goose logs
	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a stdlib DB connection, use the pgx adapter
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"contact_requests",
		"security_events",
		"two_factor_configs",
		"trusted_devices",
		"attempt_records",
		"revoked_tokens",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.UserRepository,
	*repositories.TokenRevocationRepository,
	*repositories.AttemptRepository,
	*repositories.DeviceTrustRepository,
	*repositories.TwoFactorRepository,
	*repositories.SecurityEventRepository,
	*repositories.ContactRequestRepository,
) {
	return repositories.NewUserRepository(db),
		repositories.NewTokenRevocationRepository(db),
		repositories.NewAttemptRepository(db),
		repositories.NewDeviceTrustRepository(db),
		repositories.NewTwoFactorRepository(db),
		repositories.NewSecurityEventRepository(db),
		repositories.NewContactRequestRepository(db)
}

// SeedUser inserts a test user with hashed password
func SeedUser(ctx context.Context, pool *pgxpool.Pool, email, password, role string) (*models.User, error) {
	// Hash password
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, email, name, role, status, preferred_language, two_factor_enabled, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query, uuid.NewString(), email, hashedPassword, role).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Status,
		&user.PreferredLanguage,
		&user.TwoFactorEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	user.PasswordHash = hashedPassword
	return &user, nil
}

// SeedTrustedDevice registers a trust token for the account
func SeedTrustedDevice(ctx context.Context, pool *pgxpool.Pool, accountID, fingerprint string) (string, error) {
	token := "test-trust-token-" + uuid.NewString()

	query := `
		INSERT INTO trusted_devices (token, account_id, fingerprint, created_at, last_used_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING token
	`

	var returned string
	if err := pool.QueryRow(ctx, query, token, accountID, fingerprint).Scan(&returned); err != nil {
		return "", fmt.Errorf("failed to insert trusted device: %w", err)
	}

	return returned, nil
}

// SeedLockedAttemptRecord creates an attempt row that is already locked
func SeedLockedAttemptRecord(ctx context.Context, pool *pgxpool.Pool, identifier string, remaining time.Duration) error {
	query := `
		INSERT INTO attempt_records (identifier, count, window_start, lock_until, updated_at)
		VALUES ($1, $2, NOW(), NOW() + $3::interval, NOW())
	`

	interval := fmt.Sprintf("%d seconds", int(remaining.Seconds()))
	if _, err := pool.Exec(ctx, query, identifier, 5, interval); err != nil {
		return fmt.Errorf("failed to insert attempt record: %w", err)
	}

	return nil
}
