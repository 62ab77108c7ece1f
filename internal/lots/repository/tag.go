package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// TagRepository handles tag catalog persistence
type TagRepository struct {
	db *database.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *database.DB) *TagRepository {
	return &TagRepository{db: db}
}

// Create creates a new tag
func (r *TagRepository) Create(ctx context.Context, tag *Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}

	query := `
		INSERT INTO tags (id, display_name, inventory_type, is_active, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		tag.ID, tag.DisplayName, tag.InventoryType, tag.IsActive, tag.LowStockThreshold,
	).Scan(&tag.CreatedAt, &tag.UpdatedAt); err != nil {
		return errors.Storage(err)
	}
	return nil
}

// GetByID gets a tag by ID
func (r *TagRepository) GetByID(ctx context.Context, id string) (*Tag, error) {
	var tag Tag
	query := `
		SELECT id, display_name, inventory_type, is_active, low_stock_threshold, created_at, updated_at
		FROM tags WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &tag, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("tag")
		}
		return nil, errors.Storage(err)
	}
	return &tag, nil
}

// GetByIDs gets tags for the given ids
func (r *TagRepository) GetByIDs(ctx context.Context, ids []string) ([]*Tag, error) {
	var tags []*Tag
	query := `
		SELECT id, display_name, inventory_type, is_active, low_stock_threshold, created_at, updated_at
		FROM tags WHERE id = ANY($1)
	`
	if err := r.db.SelectContext(ctx, &tags, query, pq.Array(ids)); err != nil {
		return nil, errors.Storage(err)
	}
	return tags, nil
}

// List lists tags, optionally scoped to an inventory type
func (r *TagRepository) List(ctx context.Context, invType InventoryType, includeInactive bool) ([]*Tag, error) {
	query := `
		SELECT id, display_name, inventory_type, is_active, low_stock_threshold, created_at, updated_at
		FROM tags WHERE 1=1
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

	var tags []*Tag
	if err := r.db.SelectContext(ctx, &tags, query, args...); err != nil {
		return nil, errors.Storage(err)
	}
	return tags, nil
}

// Update updates a tag
func (r *TagRepository) Update(ctx context.Context, tag *Tag) error {
	query := `
		UPDATE tags SET display_name = $2, is_active = $3, low_stock_threshold = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		tag.ID, tag.DisplayName, tag.IsActive, tag.LowStockThreshold,
	)
	if err != nil {
		return errors.Storage(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("tag")
	}

	return nil
}

// Thresholds returns the per-tag low-stock threshold overrides. Tags
// without an override fall back to the configured global default.
func (r *TagRepository) Thresholds(ctx context.Context) (map[string]decimal.Decimal, error) {
	type row struct {
		ID        string          `db:"id"`
		Threshold decimal.Decimal `db:"low_stock_threshold"`
	}

	var rows []row
	query := `SELECT id, low_stock_threshold FROM tags WHERE low_stock_threshold IS NOT NULL`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Storage(err)
	}

	thresholds := make(map[string]decimal.Decimal, len(rows))
	for _, t := range rows {
		thresholds[t.ID] = t.Threshold
	}
	return thresholds, nil
}
