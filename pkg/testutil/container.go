// Package testutil provides testing utilities for the StockLot backend.
// It includes a testcontainers PostgreSQL harness, sqlmock helpers and
// fixture factories for lots, tags, units and production batches.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "stocklot_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "stocklot_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateLotSchema creates the lot service schema. The CHECK constraints
// on lots mirror the invariants the repositories rely on: the available
// balance can never go negative or exceed the received quantity.
func (c *PostgresContainer) CreateLotSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS units (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			display_name VARCHAR(100) NOT NULL,
			inventory_type VARCHAR(50) NOT NULL,
			allows_decimal BOOLEAN NOT NULL DEFAULT false,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (display_name, inventory_type)
		);

		CREATE TABLE IF NOT EXISTS tags (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			display_name VARCHAR(100) NOT NULL,
			inventory_type VARCHAR(50) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true,
			low_stock_threshold NUMERIC(14,3),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (display_name, inventory_type)
		);

		CREATE SEQUENCE IF NOT EXISTS lot_code_seq;

		CREATE TABLE IF NOT EXISTS lots (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			lot_code VARCHAR(50) UNIQUE NOT NULL,
			inventory_type VARCHAR(50) NOT NULL,
			name VARCHAR(255) NOT NULL,
			unit_id UUID NOT NULL REFERENCES units(id),
			quantity_received NUMERIC(14,3) NOT NULL CHECK (quantity_received > 0),
			quantity_available NUMERIC(14,3) NOT NULL CHECK (quantity_available >= 0),
			primary_tag_id UUID REFERENCES tags(id),
			usable BOOLEAN NOT NULL DEFAULT true,
			condition VARCHAR(100),
			batch_name VARCHAR(255),
			quantity_created NUMERIC(14,3),
			is_archived BOOLEAN NOT NULL DEFAULT false,
			supplier_id VARCHAR(100),
			received_date DATE,
			handover_to VARCHAR(255),
			amount_paid NUMERIC(14,2),
			storage_notes TEXT,
			document_url TEXT,
			created_by UUID NOT NULL,
			updated_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (quantity_available <= quantity_received)
		);

		CREATE TABLE IF NOT EXISTS lot_tags (
			lot_id UUID NOT NULL REFERENCES lots(id),
			tag_id UUID NOT NULL REFERENCES tags(id),
			PRIMARY KEY (lot_id, tag_id)
		);

		CREATE TABLE IF NOT EXISTS movements (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			lot_id UUID NOT NULL REFERENCES lots(id),
			tag_id UUID REFERENCES tags(id),
			movement_date DATE NOT NULL,
			kind VARCHAR(20) NOT NULL CHECK (kind IN ('consumption', 'waste')),
			quantity NUMERIC(14,3) NOT NULL CHECK (quantity > 0),
			recorded_by UUID NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_movements_lot ON movements(lot_id);
		CREATE INDEX IF NOT EXISTS idx_movements_tag_date ON movements(tag_id, movement_date);

		CREATE TABLE IF NOT EXISTS production_batches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			is_locked BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS production_batch_lots (
			batch_id UUID NOT NULL REFERENCES production_batches(id),
			lot_id UUID NOT NULL REFERENCES lots(id),
			PRIMARY KEY (batch_id, lot_id)
		);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create lot schema: %w", err)
	}

	return nil
}

// TruncateAll empties every table so tests can share one container
// without leaking state into each other.
func (c *PostgresContainer) TruncateAll(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE production_batch_lots, production_batches, movements,
		         lot_tags, lots, tags, units
	`)
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
