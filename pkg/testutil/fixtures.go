package testutil

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UnitFixture represents test unit data
type UnitFixture struct {
	ID            string
	DisplayName   string
	InventoryType string
	AllowsDecimal bool
	IsActive      bool
}

// TagFixture represents test tag data
type TagFixture struct {
	ID                string
	DisplayName       string
	InventoryType     string
	IsActive          bool
	LowStockThreshold *string
}

// LotFixture represents test lot data
type LotFixture struct {
	ID                string
	LotCode           string
	InventoryType     string
	Name              string
	UnitID            string
	QuantityReceived  string
	QuantityAvailable string
	PrimaryTagID      *string
	TagIDs            []string
	Usable            bool
	IsArchived        bool
	CreatedBy         string
}

// ProductionBatchFixture represents test production batch data
type ProductionBatchFixture struct {
	ID       string
	Name     string
	IsLocked bool
	LotIDs   []string
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Unit creates a unit fixture with defaults
func (f *FixtureFactory) Unit(opts ...func(*UnitFixture)) UnitFixture {
	seq := f.nextSeq()

	unit := UnitFixture{
		ID:            uuid.New().String(),
		DisplayName:   fmt.Sprintf("unit-%d", seq),
		InventoryType: "raw_material",
		AllowsDecimal: true,
		IsActive:      true,
	}

	for _, opt := range opts {
		opt(&unit)
	}

	return unit
}

// WithWholeUnits makes the unit reject fractional quantities
func WithWholeUnits() func(*UnitFixture) {
	return func(u *UnitFixture) {
		u.AllowsDecimal = false
	}
}

// WithUnitType sets the unit's inventory type
func WithUnitType(invType string) func(*UnitFixture) {
	return func(u *UnitFixture) {
		u.InventoryType = invType
	}
}

// Tag creates a tag fixture with defaults
func (f *FixtureFactory) Tag(opts ...func(*TagFixture)) TagFixture {
	seq := f.nextSeq()

	tag := TagFixture{
		ID:            uuid.New().String(),
		DisplayName:   fmt.Sprintf("tag-%d", seq),
		InventoryType: "raw_material",
		IsActive:      true,
	}

	for _, opt := range opts {
		opt(&tag)
	}

	return tag
}

// WithTagType sets the tag's inventory type
func WithTagType(invType string) func(*TagFixture) {
	return func(t *TagFixture) {
		t.InventoryType = invType
	}
}

// WithThreshold sets the tag's low stock threshold override
func WithThreshold(threshold string) func(*TagFixture) {
	return func(t *TagFixture) {
		t.LowStockThreshold = &threshold
	}
}

// Lot creates a lot fixture with defaults. The available quantity
// defaults to the received quantity, matching a freshly created lot.
func (f *FixtureFactory) Lot(unitID string, opts ...func(*LotFixture)) LotFixture {
	seq := f.nextSeq()

	lot := LotFixture{
		ID:                uuid.New().String(),
		LotCode:           fmt.Sprintf("RM-%06d", seq),
		InventoryType:     "raw_material",
		Name:              fmt.Sprintf("lot-%d", seq),
		UnitID:            unitID,
		QuantityReceived:  "100",
		QuantityAvailable: "100",
		Usable:            true,
		CreatedBy:         uuid.New().String(),
	}

	for _, opt := range opts {
		opt(&lot)
	}

	return lot
}

// WithQuantities sets the lot's received and available quantities
func WithQuantities(received, available string) func(*LotFixture) {
	return func(l *LotFixture) {
		l.QuantityReceived = received
		l.QuantityAvailable = available
	}
}

// WithTags assigns tags to the lot; the first becomes the primary tag
func WithTags(tagIDs ...string) func(*LotFixture) {
	return func(l *LotFixture) {
		l.TagIDs = tagIDs
		if len(tagIDs) > 0 {
			l.PrimaryTagID = &tagIDs[0]
		}
	}
}

// WithLotType sets the lot's inventory type and code prefix
func WithLotType(invType, codePrefix string) func(*LotFixture) {
	return func(l *LotFixture) {
		l.InventoryType = invType
		l.LotCode = codePrefix + l.LotCode[2:]
	}
}

// Archived marks the lot fixture as archived
func Archived() func(*LotFixture) {
	return func(l *LotFixture) {
		l.IsArchived = true
	}
}

// ProductionBatch creates a production batch fixture referencing lots
func (f *FixtureFactory) ProductionBatch(locked bool, lotIDs ...string) ProductionBatchFixture {
	seq := f.nextSeq()

	return ProductionBatchFixture{
		ID:       uuid.New().String(),
		Name:     fmt.Sprintf("batch-%d", seq),
		IsLocked: locked,
		LotIDs:   lotIDs,
	}
}

// InsertUnit persists a unit fixture
func InsertUnit(ctx context.Context, db *sqlx.DB, u UnitFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO units (id, display_name, inventory_type, allows_decimal, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.DisplayName, u.InventoryType, u.AllowsDecimal, u.IsActive)
	return err
}

// InsertTag persists a tag fixture
func InsertTag(ctx context.Context, db *sqlx.DB, t TagFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tags (id, display_name, inventory_type, is_active, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.DisplayName, t.InventoryType, t.IsActive, t.LowStockThreshold)
	return err
}

// InsertLot persists a lot fixture with its tag assignments
func InsertLot(ctx context.Context, db *sqlx.DB, l LotFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO lots (
			id, lot_code, inventory_type, name, unit_id, quantity_received,
			quantity_available, primary_tag_id, usable, is_archived,
			created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, l.ID, l.LotCode, l.InventoryType, l.Name, l.UnitID,
		l.QuantityReceived, l.QuantityAvailable, l.PrimaryTagID,
		l.Usable, l.IsArchived, l.CreatedBy)
	if err != nil {
		return err
	}

	for _, tagID := range l.TagIDs {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO lot_tags (lot_id, tag_id) VALUES ($1, $2)
		`, l.ID, tagID); err != nil {
			return err
		}
	}

	return nil
}

// InsertProductionBatch persists a production batch fixture with its
// lot references
func InsertProductionBatch(ctx context.Context, db *sqlx.DB, b ProductionBatchFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO production_batches (id, name, is_locked) VALUES ($1, $2, $3)
	`, b.ID, b.Name, b.IsLocked)
	if err != nil {
		return err
	}

	for _, lotID := range b.LotIDs {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO production_batch_lots (batch_id, lot_id) VALUES ($1, $2)
		`, b.ID, lotID); err != nil {
			return err
		}
	}

	return nil
}

// InsertMovement persists a movement row directly, bypassing the
// balance decrement. Use only to seed historical data for aggregation
// tests; ledger behavior tests go through the repository.
func InsertMovement(ctx context.Context, db *sqlx.DB, lotID string, tagID *string, date, kind, quantity string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO movements (id, lot_id, tag_id, movement_date, kind, quantity, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New().String(), lotID, tagID, date, kind, quantity, uuid.New().String())
	return err
}
