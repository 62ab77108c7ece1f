package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

const lotColumns = `
	id, lot_code, inventory_type, name, unit_id, quantity_received,
	quantity_available, primary_tag_id, usable, condition, batch_name,
	quantity_created, is_archived, supplier_id, received_date, handover_to,
	amount_paid, storage_notes, document_url, created_by, updated_by,
	created_at, updated_at`

// LotRepository handles lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Create inserts a lot with its tag assignments in one transaction.
// A fresh lot_code is minted from the per-type sequence and
// quantity_available starts equal to quantity_received.
func (r *LotRepository) Create(ctx context.Context, lot *Lot, tagIDs []string) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var seq int64
		if err := tx.QueryRowxContext(ctx, `SELECT nextval('lot_code_seq')`).Scan(&seq); err != nil {
			return errors.Storage(err)
		}
		lot.LotCode = fmt.Sprintf("%s-%06d", lot.InventoryType.CodePrefix(), seq)
		lot.QuantityAvailable = lot.QuantityReceived

		if len(tagIDs) > 0 {
			lot.PrimaryTagID = &tagIDs[0]
		}

		query := `
			INSERT INTO lots (
				id, lot_code, inventory_type, name, unit_id, quantity_received,
				quantity_available, primary_tag_id, usable, condition, batch_name,
				quantity_created, supplier_id, received_date, handover_to,
				amount_paid, storage_notes, document_url, created_by, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19, $19)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowxContext(ctx, query,
			lot.ID, lot.LotCode, lot.InventoryType, lot.Name, lot.UnitID,
			lot.QuantityReceived, lot.QuantityAvailable, lot.PrimaryTagID,
			lot.Usable, lot.Condition, lot.BatchName, lot.QuantityCreated,
			lot.SupplierID, lot.ReceivedDate, lot.HandoverTo, lot.AmountPaid,
			lot.StorageNotes, lot.DocumentURL, lot.CreatedBy,
		).Scan(&lot.CreatedAt, &lot.UpdatedAt)
		if err != nil {
			return errors.Storage(err)
		}
		lot.UpdatedBy = lot.CreatedBy

		if err := replaceTags(ctx, tx, lot.ID, tagIDs); err != nil {
			return err
		}
		lot.TagIDs = tagIDs

		return nil
	})
}

func replaceTags(ctx context.Context, tx *sqlx.Tx, lotID string, tagIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM lot_tags WHERE lot_id = $1`, lotID); err != nil {
		return errors.Storage(err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lot_tags (lot_id, tag_id) VALUES ($1, $2)`, lotID, tagID,
		); err != nil {
			return errors.Storage(err)
		}
	}
	return nil
}

// GetByID gets a lot by ID including its tag assignments
func (r *LotRepository) GetByID(ctx context.Context, id string) (*Lot, error) {
	var lot Lot
	query := `SELECT` + lotColumns + ` FROM lots WHERE id = $1`
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, errors.Storage(err)
	}

	if err := r.loadTags(ctx, &lot); err != nil {
		return nil, err
	}

	return &lot, nil
}

// GetByCode gets a lot by its lot code
func (r *LotRepository) GetByCode(ctx context.Context, code string) (*Lot, error) {
	var lot Lot
	query := `SELECT` + lotColumns + ` FROM lots WHERE lot_code = $1`
	if err := r.db.GetContext(ctx, &lot, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, errors.Storage(err)
	}

	if err := r.loadTags(ctx, &lot); err != nil {
		return nil, err
	}

	return &lot, nil
}

func (r *LotRepository) loadTags(ctx context.Context, lot *Lot) error {
	tagIDs := []string{}
	query := `SELECT tag_id FROM lot_tags WHERE lot_id = $1 ORDER BY tag_id`
	if err := r.db.SelectContext(ctx, &tagIDs, query, lot.ID); err != nil {
		return errors.Storage(err)
	}
	lot.TagIDs = tagIDs
	return nil
}

// List lists lots matching the filter with pagination
func (r *LotRepository) List(ctx context.Context, f LotFilter) ([]*Lot, int64, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	n := 0

	arg := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if f.InventoryType != "" {
		where += ` AND inventory_type = ` + arg(f.InventoryType)
	}
	if !f.IncludeArchived {
		where += ` AND is_archived = false`
	}
	if f.Usable != nil {
		where += ` AND usable = ` + arg(*f.Usable)
	}
	if f.TagID != "" {
		where += ` AND id IN (SELECT lot_id FROM lot_tags WHERE tag_id = ` + arg(f.TagID) + `)`
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where += ` AND (name ILIKE ` + p + ` OR lot_code ILIKE ` + p + `)`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM lots `+where, args...); err != nil {
		return nil, 0, errors.Storage(err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = 20
	}

	query := `SELECT` + lotColumns + ` FROM lots ` + where +
		` ORDER BY lot_code` +
		` LIMIT ` + arg(perPage) + ` OFFSET ` + arg((page-1)*perPage)

	var lots []*Lot
	if err := r.db.SelectContext(ctx, &lots, query, args...); err != nil {
		return nil, 0, errors.Storage(err)
	}

	for _, lot := range lots {
		if err := r.loadTags(ctx, lot); err != nil {
			return nil, 0, err
		}
	}

	return lots, total, nil
}

// Update persists patchable lot fields and tag assignments in one
// transaction. Quantity columns are deliberately absent: they change
// only through movement application.
func (r *LotRepository) Update(ctx context.Context, lot *Lot, tagIDs []string) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if len(tagIDs) > 0 {
			lot.PrimaryTagID = &tagIDs[0]
		} else {
			lot.PrimaryTagID = nil
		}

		query := `
			UPDATE lots SET
				name = $2, unit_id = $3, primary_tag_id = $4, usable = $5,
				condition = $6, batch_name = $7, quantity_created = $8,
				supplier_id = $9, received_date = $10, handover_to = $11,
				amount_paid = $12, storage_notes = $13, document_url = $14,
				updated_by = $15, updated_at = NOW()
			WHERE id = $1
		`
		result, err := tx.ExecContext(ctx, query,
			lot.ID, lot.Name, lot.UnitID, lot.PrimaryTagID, lot.Usable,
			lot.Condition, lot.BatchName, lot.QuantityCreated, lot.SupplierID,
			lot.ReceivedDate, lot.HandoverTo, lot.AmountPaid, lot.StorageNotes,
			lot.DocumentURL, lot.UpdatedBy,
		)
		if err != nil {
			return errors.Storage(err)
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("lot")
		}

		if err := replaceTags(ctx, tx, lot.ID, tagIDs); err != nil {
			return err
		}
		lot.TagIDs = tagIDs

		return nil
	})
}

// SetArchived flips the archive flag
func (r *LotRepository) SetArchived(ctx context.Context, id string, archived bool, updatedBy string) error {
	query := `UPDATE lots SET is_archived = $2, updated_by = $3, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, archived, updatedBy)
	if err != nil {
		return errors.Storage(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("lot")
	}

	return nil
}

// Delete removes a lot. Movements and tag assignments cascade in the
// same transaction.
func (r *LotRepository) Delete(ctx context.Context, id string) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM movements WHERE lot_id = $1`, id); err != nil {
			return errors.Storage(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM lot_tags WHERE lot_id = $1`, id); err != nil {
			return errors.Storage(err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM lots WHERE id = $1`, id)
		if err != nil {
			return errors.Storage(err)
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("lot")
		}

		return nil
	})
}

// BalanceRows returns one row per (lot, tag) pairing with the lot's
// current balance and its most recent movement date. The aggregator
// groups these in memory.
func (r *LotRepository) BalanceRows(ctx context.Context, invType InventoryType, includeArchived bool, tagIDs []string) ([]BalanceRow, error) {
	query := `
		SELECT l.id AS lot_id, t.id AS tag_id, t.display_name AS tag_name,
		       l.inventory_type, l.usable, l.is_archived, l.quantity_available,
		       (SELECT MAX(m.movement_date) FROM movements m WHERE m.lot_id = l.id) AS last_movement_date
		FROM lots l
		JOIN lot_tags lt ON lt.lot_id = l.id
		JOIN tags t ON t.id = lt.tag_id
		WHERE t.is_active = true
	`
	args := []interface{}{}
	n := 0

	if invType != "" {
		n++
		query += fmt.Sprintf(` AND l.inventory_type = $%d`, n)
		args = append(args, invType)
	}
	if !includeArchived {
		query += ` AND l.is_archived = false`
	}
	if len(tagIDs) > 0 {
		n++
		query += fmt.Sprintf(` AND t.id = ANY($%d)`, n)
		args = append(args, pq.Array(tagIDs))
	}

	query += ` ORDER BY t.display_name, l.lot_code`

	var rows []BalanceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Storage(err)
	}

	return rows, nil
}
