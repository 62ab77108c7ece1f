package repository

import (
	"context"
	"database/sql"

	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// BatchRepository reads the production batch registry. Batches are
// owned by an external system; this service consults their lock state
// and never mutates them.
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// LockingBatchIDs returns the ids of all locked batches referencing the
// lot. An empty result means the lot is unlocked. Callers must query
// this immediately before a guarded mutation; lock state is never
// cached.
func (r *BatchRepository) LockingBatchIDs(ctx context.Context, lotID string) ([]string, error) {
	ids := []string{}
	query := `
		SELECT pb.id
		FROM production_batches pb
		JOIN production_batch_lots pbl ON pbl.batch_id = pb.id
		WHERE pbl.lot_id = $1 AND pb.is_locked = true
		ORDER BY pb.id
	`
	if err := r.db.SelectContext(ctx, &ids, query, lotID); err != nil {
		return nil, errors.Storage(err)
	}
	return ids, nil
}

// GetByID gets a production batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*ProductionBatch, error) {
	var batch ProductionBatch
	query := `SELECT id, name, is_locked, created_at FROM production_batches WHERE id = $1`
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("production batch")
		}
		return nil, errors.Storage(err)
	}
	return &batch, nil
}

// ListReferencingLot lists all batches referencing a lot regardless of
// lock state.
func (r *BatchRepository) ListReferencingLot(ctx context.Context, lotID string) ([]*ProductionBatch, error) {
	var batches []*ProductionBatch
	query := `
		SELECT pb.id, pb.name, pb.is_locked, pb.created_at
		FROM production_batches pb
		JOIN production_batch_lots pbl ON pbl.batch_id = pb.id
		WHERE pbl.lot_id = $1
		ORDER BY pb.created_at
	`
	if err := r.db.SelectContext(ctx, &batches, query, lotID); err != nil {
		return nil, errors.Storage(err)
	}
	return batches, nil
}
