package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// MovementRepository handles the append-only movement log
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Record decrements the lot's available quantity and appends the
// movement row in one transaction. The decrement is a conditional
// update so concurrent movements against the same lot serialize on the
// row and can never drive the balance negative.
func (r *MovementRepository) Record(ctx context.Context, m *Movement) (decimal.Decimal, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	var newBalance decimal.Decimal

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		decrement := `
			UPDATE lots
			SET quantity_available = quantity_available - $2,
			    updated_by = $3, updated_at = NOW()
			WHERE id = $1 AND quantity_available >= $2
			RETURNING quantity_available, primary_tag_id
		`
		err := tx.QueryRowxContext(ctx, decrement, m.LotID, m.Quantity, m.RecordedBy).
			Scan(&newBalance, &m.TagID)
		if err == sql.ErrNoRows {
			// Either the lot does not exist or the balance is short.
			var available decimal.Decimal
			err := tx.QueryRowxContext(ctx,
				`SELECT quantity_available FROM lots WHERE id = $1`, m.LotID,
			).Scan(&available)
			if err == sql.ErrNoRows {
				return errors.NotFound("lot")
			}
			if err != nil {
				return errors.Storage(err)
			}
			return errors.InsufficientQuantity(m.Quantity.String(), available.String())
		}
		if err != nil {
			return errors.Storage(err)
		}

		insert := `
			INSERT INTO movements (id, lot_id, tag_id, movement_date, kind, quantity, recorded_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING recorded_at
		`
		if err := tx.QueryRowxContext(ctx, insert,
			m.ID, m.LotID, m.TagID, m.MovementDate, m.Kind, m.Quantity, m.RecordedBy,
		).Scan(&m.RecordedAt); err != nil {
			return errors.Storage(err)
		}

		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return newBalance, nil
}

// ListByLot lists movements for a lot ordered by date
func (r *MovementRepository) ListByLot(ctx context.Context, lotID string) ([]*Movement, error) {
	var movements []*Movement
	query := `
		SELECT id, lot_id, tag_id, movement_date, kind, quantity, recorded_by, recorded_at
		FROM movements
		WHERE lot_id = $1
		ORDER BY movement_date, recorded_at
	`
	if err := r.db.SelectContext(ctx, &movements, query, lotID); err != nil {
		return nil, errors.Storage(err)
	}
	return movements, nil
}

// SummaryRows aggregates movements by (tag, date, kind) within the
// inclusive date range for lots of the given type.
func (r *MovementRepository) SummaryRows(ctx context.Context, invType InventoryType, start, end time.Time) ([]SummaryRow, error) {
	var rows []SummaryRow
	query := `
		SELECT m.tag_id, t.display_name AS tag_name, m.movement_date, m.kind,
		       SUM(m.quantity) AS total_quantity, COUNT(*) AS transaction_count
		FROM movements m
		JOIN tags t ON t.id = m.tag_id
		JOIN lots l ON l.id = m.lot_id
		WHERE l.inventory_type = $1
		  AND m.movement_date BETWEEN $2 AND $3
		GROUP BY m.tag_id, t.display_name, m.movement_date, m.kind
		ORDER BY m.movement_date, t.display_name
	`
	if err := r.db.SelectContext(ctx, &rows, query, invType, start, end); err != nil {
		return nil, errors.Storage(err)
	}
	return rows, nil
}

// DetailRows lists the movement rows composing one (tag, date) summary
// cell. Read-only elaboration; the summary remains the source of truth
// for totals.
func (r *MovementRepository) DetailRows(ctx context.Context, tagID string, date time.Time, invType InventoryType) ([]DetailRow, error) {
	var rows []DetailRow
	query := `
		SELECT m.id AS movement_id, m.lot_id, l.lot_code, m.kind, m.quantity,
		       u.display_name AS unit_name
		FROM movements m
		JOIN lots l ON l.id = m.lot_id
		JOIN units u ON u.id = l.unit_id
		WHERE m.tag_id = $1 AND m.movement_date = $2 AND l.inventory_type = $3
		ORDER BY m.recorded_at
	`
	if err := r.db.SelectContext(ctx, &rows, query, tagID, date, invType); err != nil {
		return nil, errors.Storage(err)
	}
	return rows, nil
}
