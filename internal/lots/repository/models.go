package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryType discriminates the three lot variants. They share one
// row shape; variant-specific fields are nullable.
type InventoryType string

const (
	TypeRawMaterial      InventoryType = "raw_material"
	TypeRecurringProduct InventoryType = "recurring_product"
	TypeProducedGoods    InventoryType = "produced_goods"
)

// Valid reports whether t is a known inventory type.
func (t InventoryType) Valid() bool {
	switch t {
	case TypeRawMaterial, TypeRecurringProduct, TypeProducedGoods:
		return true
	}
	return false
}

// RequiresTags reports whether lots of this type must carry at least one tag.
func (t InventoryType) RequiresTags() bool {
	return t == TypeRawMaterial || t == TypeRecurringProduct
}

// CodePrefix returns the lot code prefix for the type.
func (t InventoryType) CodePrefix() string {
	switch t {
	case TypeRawMaterial:
		return "RM"
	case TypeRecurringProduct:
		return "RP"
	case TypeProducedGoods:
		return "PG"
	}
	return "LT"
}

// MovementKind discriminates consumption from waste. Both draw down the
// same available-quantity pool.
type MovementKind string

const (
	KindConsumption MovementKind = "consumption"
	KindWaste       MovementKind = "waste"
)

// Valid reports whether k is a known movement kind.
func (k MovementKind) Valid() bool {
	return k == KindConsumption || k == KindWaste
}

// Lot represents one received quantity of an item, tracked by a unique code.
type Lot struct {
	ID            string        `db:"id" json:"id"`
	LotCode       string        `db:"lot_code" json:"lot_code"`
	InventoryType InventoryType `db:"inventory_type" json:"inventory_type"`
	Name          string        `db:"name" json:"name"`
	UnitID        string        `db:"unit_id" json:"unit_id"`

	QuantityReceived  decimal.Decimal `db:"quantity_received" json:"quantity_received"`
	QuantityAvailable decimal.Decimal `db:"quantity_available" json:"quantity_available"`

	// PrimaryTagID is the first tag assigned at creation; movements
	// snapshot it for per-tag rollups.
	PrimaryTagID *string `db:"primary_tag_id" json:"primary_tag_id,omitempty"`

	// Raw-material fields
	Usable    bool    `db:"usable" json:"usable"`
	Condition *string `db:"condition" json:"condition,omitempty"`

	// Produced-goods fields
	BatchName       *string             `db:"batch_name" json:"batch_name,omitempty"`
	QuantityCreated decimal.NullDecimal `db:"quantity_created" json:"quantity_created,omitempty"`

	IsArchived bool `db:"is_archived" json:"is_archived"`

	// Descriptive metadata, no invariants
	SupplierID   *string             `db:"supplier_id" json:"supplier_id,omitempty"`
	ReceivedDate *time.Time          `db:"received_date" json:"received_date,omitempty"`
	HandoverTo   *string             `db:"handover_to" json:"handover_to,omitempty"`
	AmountPaid   decimal.NullDecimal `db:"amount_paid" json:"amount_paid,omitempty"`
	StorageNotes *string             `db:"storage_notes" json:"storage_notes,omitempty"`
	DocumentURL  *string             `db:"document_url" json:"document_url,omitempty"`

	CreatedBy string    `db:"created_by" json:"created_by"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Populated from the lot_tags junction
	TagIDs []string `db:"-" json:"tag_ids"`
}

// Tag is a classification label grouping lots for reporting.
type Tag struct {
	ID            string        `db:"id" json:"id"`
	DisplayName   string        `db:"display_name" json:"display_name"`
	InventoryType InventoryType `db:"inventory_type" json:"inventory_type"`
	IsActive      bool          `db:"is_active" json:"is_active"`

	// LowStockThreshold overrides the global default when set.
	LowStockThreshold decimal.NullDecimal `db:"low_stock_threshold" json:"low_stock_threshold,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Unit is a per-inventory-type unit definition.
type Unit struct {
	ID            string        `db:"id" json:"id"`
	DisplayName   string        `db:"display_name" json:"display_name"`
	InventoryType InventoryType `db:"inventory_type" json:"inventory_type"`
	AllowsDecimal bool          `db:"allows_decimal" json:"allows_decimal"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Movement is a single dated consumption or waste drawdown against a lot.
type Movement struct {
	ID           string          `db:"id" json:"id"`
	LotID        string          `db:"lot_id" json:"lot_id"`
	TagID        *string         `db:"tag_id" json:"tag_id,omitempty"`
	MovementDate time.Time       `db:"movement_date" json:"movement_date"`
	Kind         MovementKind    `db:"kind" json:"kind"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	RecordedBy   string          `db:"recorded_by" json:"recorded_by"`
	RecordedAt   time.Time       `db:"recorded_at" json:"recorded_at"`
}

// ProductionBatch is an external manufacturing record consuming lots.
// This service only ever reads its lock state.
type ProductionBatch struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsLocked  bool      `db:"is_locked" json:"is_locked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LotFilter narrows lot listings.
type LotFilter struct {
	InventoryType   InventoryType
	TagID           string
	IncludeArchived bool
	Usable          *bool
	Search          string
	Page            int
	PerPage         int
}

// BalanceRow is one (lot, tag) pairing with the lot's current balance,
// the raw material for per-tag inventory aggregation.
type BalanceRow struct {
	LotID             string          `db:"lot_id"`
	TagID             string          `db:"tag_id"`
	TagName           string          `db:"tag_name"`
	InventoryType     InventoryType   `db:"inventory_type"`
	Usable            bool            `db:"usable"`
	IsArchived        bool            `db:"is_archived"`
	QuantityAvailable decimal.Decimal `db:"quantity_available"`
	LastMovementDate  *time.Time      `db:"last_movement_date"`
}

// SummaryRow is one (tag, date, kind) aggregate over movements.
type SummaryRow struct {
	TagID            string          `db:"tag_id"`
	TagName          string          `db:"tag_name"`
	MovementDate     time.Time       `db:"movement_date"`
	Kind             MovementKind    `db:"kind"`
	TotalQuantity    decimal.Decimal `db:"total_quantity"`
	TransactionCount int64           `db:"transaction_count"`
}

// DetailRow is one movement row composing a summary cell.
type DetailRow struct {
	MovementID string          `db:"movement_id"`
	LotID      string          `db:"lot_id"`
	LotCode    string          `db:"lot_code"`
	Kind       MovementKind    `db:"kind"`
	Quantity   decimal.Decimal `db:"quantity"`
	UnitName   string          `db:"unit_name"`
}
