package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// UnitRepository handles unit catalog persistence
type UnitRepository struct {
	db *database.DB
}

// NewUnitRepository creates a new unit repository
func NewUnitRepository(db *database.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// Create creates a new unit
func (r *UnitRepository) Create(ctx context.Context, unit *Unit) error {
	if unit.ID == "" {
		unit.ID = uuid.New().String()
	}

	query := `
		INSERT INTO units (id, display_name, inventory_type, allows_decimal, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		unit.ID, unit.DisplayName, unit.InventoryType, unit.AllowsDecimal, unit.IsActive,
	).Scan(&unit.CreatedAt, &unit.UpdatedAt); err != nil {
		return errors.Storage(err)
	}
	return nil
}

// GetByID gets a unit by ID
func (r *UnitRepository) GetByID(ctx context.Context, id string) (*Unit, error) {
	var unit Unit
	query := `
		SELECT id, display_name, inventory_type, allows_decimal, is_active, created_at, updated_at
		FROM units WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &unit, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("unit")
		}
		return nil, errors.Storage(err)
	}
	return &unit, nil
}

// List lists units, optionally scoped to an inventory type
func (r *UnitRepository) List(ctx context.Context, invType InventoryType, includeInactive bool) ([]*Unit, error) {
	query := `
		SELECT id, display_name, inventory_type, allows_decimal, is_active, created_at, updated_at
		FROM units WHERE 1=1
	`
	args := []interface{}{}
	if invType != "" {
		query += ` AND inventory_type = $1`
		args = append(args, invType)
	}
	if !includeInactive {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY display_name`

	var units []*Unit
	if err := r.db.SelectContext(ctx, &units, query, args...); err != nil {
		return nil, errors.Storage(err)
	}
	return units, nil
}

// Update updates a unit
func (r *UnitRepository) Update(ctx context.Context, unit *Unit) error {
	query := `
		UPDATE units SET display_name = $2, allows_decimal = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		unit.ID, unit.DisplayName, unit.AllowsDecimal, unit.IsActive,
	)
	if err != nil {
		return errors.Storage(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("unit")
	}

	return nil
}
