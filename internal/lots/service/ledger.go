package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/pkg/actor"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
)

// archiveMaxQuantity is the highest available balance at which a lot
// may still be archived.
var archiveMaxQuantity = decimal.NewFromInt(5)

// LotStore is the persistence surface the ledger needs for lots.
type LotStore interface {
	Create(ctx context.Context, lot *repository.Lot, tagIDs []string) error
	GetByID(ctx context.Context, id string) (*repository.Lot, error)
	List(ctx context.Context, f repository.LotFilter) ([]*repository.Lot, int64, error)
	Update(ctx context.Context, lot *repository.Lot, tagIDs []string) error
	SetArchived(ctx context.Context, id string, archived bool, updatedBy string) error
	Delete(ctx context.Context, id string) error
}

// MovementStore records and lists movements.
type MovementStore interface {
	Record(ctx context.Context, m *repository.Movement) (decimal.Decimal, error)
	ListByLot(ctx context.Context, lotID string) ([]*repository.Movement, error)
}

// TagStore resolves tags.
type TagStore interface {
	GetByID(ctx context.Context, id string) (*repository.Tag, error)
	GetByIDs(ctx context.Context, ids []string) ([]*repository.Tag, error)
}

// UnitStore resolves units.
type UnitStore interface {
	GetByID(ctx context.Context, id string) (*repository.Unit, error)
}

// BatchStore reads the production batch registry.
type BatchStore interface {
	LockingBatchIDs(ctx context.Context, lotID string) ([]string, error)
}

// EventPublisher publishes ledger events. Implementations must tolerate
// being nil-receivered so tests can run without a broker.
type EventPublisher interface {
	PublishLotCreated(ctx context.Context, lot *repository.Lot)
	PublishLotUpdated(ctx context.Context, lot *repository.Lot)
	PublishLotArchived(ctx context.Context, lot *repository.Lot)
	PublishLotUnarchived(ctx context.Context, lot *repository.Lot)
	PublishLotDeleted(ctx context.Context, lot *repository.Lot, performedBy string)
	PublishMovementRecorded(ctx context.Context, m *repository.Movement, newBalance decimal.Decimal)
	PublishStockAlert(ctx context.Context, alertType string, lot *repository.Lot, balance, threshold decimal.Decimal)
}

// LedgerService owns the lifecycle of lots: creation, metadata updates,
// archive/unarchive, deletion and movement application. Every guarded
// mutation re-evaluates the lock state against the production batch
// registry as part of the operation, never from an earlier read.
type LedgerService struct {
	lots             LotStore
	movements        MovementStore
	tags             TagStore
	units            UnitStore
	batches          BatchStore
	events           EventPublisher
	defaultThreshold decimal.Decimal
	logger           *logger.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	lots LotStore,
	movements MovementStore,
	tags TagStore,
	units UnitStore,
	batches BatchStore,
	events EventPublisher,
	defaultThreshold decimal.Decimal,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		lots:             lots,
		movements:        movements,
		tags:             tags,
		units:            units,
		batches:          batches,
		events:           events,
		defaultThreshold: defaultThreshold,
		logger:           log,
	}
}

// CreateLotInput carries the fields accepted at lot creation.
type CreateLotInput struct {
	InventoryType    repository.InventoryType
	Name             string
	TagIDs           []string
	UnitID           string
	QuantityReceived decimal.Decimal

	Usable          *bool
	Condition       *string
	BatchName       *string
	QuantityCreated *decimal.Decimal

	SupplierID   *string
	ReceivedDate *time.Time
	HandoverTo   *string
	AmountPaid   *decimal.Decimal
	StorageNotes *string
	DocumentURL  *string
}

// CreateLot validates and persists a new lot. The lot starts with
// quantity_available equal to quantity_received; restocking an existing
// lot is not modeled, a new lot is created instead.
func (s *LedgerService) CreateLot(ctx context.Context, in CreateLotInput) (*repository.Lot, error) {
	if !in.InventoryType.Valid() {
		return nil, errors.ValidationField("inventory_type", "unknown inventory type")
	}
	if in.Name == "" {
		return nil, errors.ValidationField("name", "this field is required")
	}
	if in.InventoryType.RequiresTags() && len(in.TagIDs) == 0 {
		return nil, errors.ValidationField("tag_ids", "at least one tag is required")
	}
	if !in.QuantityReceived.IsPositive() {
		return nil, errors.ValidationField("quantity_received", "must be greater than zero")
	}

	unit, err := s.resolveUnit(ctx, in.UnitID, in.InventoryType)
	if err != nil {
		return nil, err
	}
	if err := checkDecimalRule(unit, "quantity_received", in.QuantityReceived); err != nil {
		return nil, err
	}

	if err := s.resolveTags(ctx, in.TagIDs, in.InventoryType); err != nil {
		return nil, err
	}

	usable := true
	if in.Usable != nil {
		usable = *in.Usable
	}

	lot := &repository.Lot{
		InventoryType:    in.InventoryType,
		Name:             in.Name,
		UnitID:           in.UnitID,
		QuantityReceived: in.QuantityReceived,
		Usable:           usable,
		Condition:        in.Condition,
		BatchName:        in.BatchName,
		QuantityCreated:  toNullDecimal(in.QuantityCreated),
		SupplierID:       in.SupplierID,
		ReceivedDate:     in.ReceivedDate,
		HandoverTo:       in.HandoverTo,
		AmountPaid:       toNullDecimal(in.AmountPaid),
		StorageNotes:     in.StorageNotes,
		DocumentURL:      in.DocumentURL,
		CreatedBy:        actor.UserID(ctx),
	}

	if err := s.lots.Create(ctx, lot, in.TagIDs); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.PublishLotCreated(ctx, lot)
	}

	s.logger.Info().Str("lot_id", lot.ID).Str("lot_code", lot.LotCode).Msg("lot created")
	return lot, nil
}

// GetLot gets a lot by ID
func (s *LedgerService) GetLot(ctx context.Context, id string) (*repository.Lot, error) {
	return s.lots.GetByID(ctx, id)
}

// ListLots lists lots matching the filter
func (s *LedgerService) ListLots(ctx context.Context, f repository.LotFilter) ([]*repository.Lot, int64, error) {
	return s.lots.List(ctx, f)
}

// ListMovements lists the movement log for a lot
func (s *LedgerService) ListMovements(ctx context.Context, lotID string) ([]*repository.Movement, error) {
	if _, err := s.lots.GetByID(ctx, lotID); err != nil {
		return nil, err
	}
	return s.movements.ListByLot(ctx, lotID)
}

// UpdateLotInput carries the patchable lot fields. Quantity fields are
// deliberately absent: quantity_received is immutable and
// quantity_available changes only through movement application.
type UpdateLotInput struct {
	Name         *string
	TagIDs       []string
	UnitID       *string
	Usable       *bool
	Condition    *string
	BatchName    *string
	SupplierID   *string
	ReceivedDate *time.Time
	HandoverTo   *string
	AmountPaid   *decimal.Decimal
	StorageNotes *string
	DocumentURL  *string
}

// UpdateLot patches descriptive metadata, tags, unit and the usable
// flag. Fails with a locked error when the lot is referenced by a
// locked production batch.
func (s *LedgerService) UpdateLot(ctx context.Context, lotID string, in UpdateLotInput) (*repository.Lot, error) {
	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	if err := s.requireUnlocked(ctx, lotID); err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, errors.ValidationField("name", "this field is required")
		}
		lot.Name = *in.Name
	}

	tagIDs := lot.TagIDs
	if in.TagIDs != nil {
		if lot.InventoryType.RequiresTags() && len(in.TagIDs) == 0 {
			return nil, errors.ValidationField("tag_ids", "at least one tag is required")
		}
		if err := s.resolveTags(ctx, in.TagIDs, lot.InventoryType); err != nil {
			return nil, err
		}
		tagIDs = in.TagIDs
	}

	if in.UnitID != nil && *in.UnitID != lot.UnitID {
		unit, err := s.resolveUnit(ctx, *in.UnitID, lot.InventoryType)
		if err != nil {
			return nil, err
		}
		// The stored quantities must remain representable in the new unit.
		if err := checkDecimalRule(unit, "quantity_received", lot.QuantityReceived); err != nil {
			return nil, err
		}
		if err := checkDecimalRule(unit, "quantity_available", lot.QuantityAvailable); err != nil {
			return nil, err
		}
		lot.UnitID = *in.UnitID
	}

	if in.Usable != nil {
		lot.Usable = *in.Usable
	}
	if in.Condition != nil {
		lot.Condition = in.Condition
	}
	if in.BatchName != nil {
		lot.BatchName = in.BatchName
	}
	if in.SupplierID != nil {
		lot.SupplierID = in.SupplierID
	}
	if in.ReceivedDate != nil {
		lot.ReceivedDate = in.ReceivedDate
	}
	if in.HandoverTo != nil {
		lot.HandoverTo = in.HandoverTo
	}
	if in.AmountPaid != nil {
		lot.AmountPaid = toNullDecimal(in.AmountPaid)
	}
	if in.StorageNotes != nil {
		lot.StorageNotes = in.StorageNotes
	}
	if in.DocumentURL != nil {
		lot.DocumentURL = in.DocumentURL
	}

	lot.UpdatedBy = actor.UserID(ctx)

	if err := s.lots.Update(ctx, lot, tagIDs); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.PublishLotUpdated(ctx, lot)
	}

	return lot, nil
}

// ArchiveLot hides a depleted lot from default views. The lot must be
// unlocked and its balance at or below the archive threshold. Archiving
// an already-archived lot is a no-op success.
func (s *LedgerService) ArchiveLot(ctx context.Context, lotID string) (*repository.Lot, error) {
	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	if lot.IsArchived {
		return lot, nil
	}

	if err := s.requireUnlocked(ctx, lotID); err != nil {
		return nil, err
	}

	if lot.QuantityAvailable.GreaterThan(archiveMaxQuantity) {
		return nil, errors.ValidationField("quantity_available",
			"balance must be at most "+archiveMaxQuantity.String()+" to archive")
	}

	updatedBy := actor.UserID(ctx)
	if err := s.lots.SetArchived(ctx, lotID, true, updatedBy); err != nil {
		return nil, err
	}

	lot.IsArchived = true
	lot.UpdatedBy = updatedBy

	if s.events != nil {
		s.events.PublishLotArchived(ctx, lot)
	}

	s.logger.Info().Str("lot_id", lotID).Msg("lot archived")
	return lot, nil
}

// UnarchiveLot clears the archive flag. No quantity or lock precondition.
func (s *LedgerService) UnarchiveLot(ctx context.Context, lotID string) (*repository.Lot, error) {
	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	if !lot.IsArchived {
		return lot, nil
	}

	updatedBy := actor.UserID(ctx)
	if err := s.lots.SetArchived(ctx, lotID, false, updatedBy); err != nil {
		return nil, err
	}

	lot.IsArchived = false
	lot.UpdatedBy = updatedBy

	if s.events != nil {
		s.events.PublishLotUnarchived(ctx, lot)
	}

	return lot, nil
}

// DeleteLot removes a lot and its movement log. Fails with a locked
// error when the lot is referenced by a locked production batch.
func (s *LedgerService) DeleteLot(ctx context.Context, lotID string) error {
	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return err
	}

	if err := s.requireUnlocked(ctx, lotID); err != nil {
		return err
	}

	if err := s.lots.Delete(ctx, lotID); err != nil {
		return err
	}

	if s.events != nil {
		s.events.PublishLotDeleted(ctx, lot, actor.UserID(ctx))
	}

	s.logger.Info().Str("lot_id", lotID).Msg("lot deleted")
	return nil
}

// LockStatus reports whether a lot is locked and by which batches.
type LockStatus struct {
	Locked   bool     `json:"locked"`
	BatchIDs []string `json:"batch_ids"`
}

// CheckLock queries the production batch registry for locked batches
// referencing the lot. The result must not be cached across requests:
// batch lock state can change between a list render and a later
// mutation, so guarded operations re-evaluate it themselves.
func (s *LedgerService) CheckLock(ctx context.Context, lotID string) (*LockStatus, error) {
	batchIDs, err := s.batches.LockingBatchIDs(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return &LockStatus{
		Locked:   len(batchIDs) > 0,
		BatchIDs: batchIDs,
	}, nil
}

func (s *LedgerService) requireUnlocked(ctx context.Context, lotID string) error {
	status, err := s.CheckLock(ctx, lotID)
	if err != nil {
		return err
	}
	if status.Locked {
		return errors.Locked(status.BatchIDs)
	}
	return nil
}

// MovementInput carries a consumption or waste drawdown request.
type MovementInput struct {
	Kind         repository.MovementKind
	Quantity     decimal.Decimal
	MovementDate time.Time
}

// ApplyMovement decrements the lot's available quantity and appends the
// movement record atomically. Both consumption and waste draw down the
// same pool. A drawdown that would drive the balance negative fails
// with an insufficient-quantity error and changes nothing.
func (s *LedgerService) ApplyMovement(ctx context.Context, lotID string, in MovementInput) (*repository.Movement, error) {
	if !in.Kind.Valid() {
		return nil, errors.ValidationField("kind", "must be one of: consumption, waste")
	}
	if !in.Quantity.IsPositive() {
		return nil, errors.ValidationField("quantity", "must be greater than zero")
	}
	if in.MovementDate.IsZero() {
		return nil, errors.ValidationField("movement_date", "this field is required")
	}

	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	unit, err := s.units.GetByID(ctx, lot.UnitID)
	if err != nil {
		return nil, err
	}
	if err := checkDecimalRule(unit, "quantity", in.Quantity); err != nil {
		return nil, err
	}

	movement := &repository.Movement{
		LotID:        lotID,
		MovementDate: in.MovementDate,
		Kind:         in.Kind,
		Quantity:     in.Quantity,
		RecordedBy:   actor.UserID(ctx),
	}

	newBalance, err := s.movements.Record(ctx, movement)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.PublishMovementRecorded(ctx, movement, newBalance)
	}

	s.checkStockAlert(ctx, lot, newBalance)

	return movement, nil
}

// checkStockAlert emits an alert event when the post-movement balance
// reaches zero or falls below the lot's tag threshold.
func (s *LedgerService) checkStockAlert(ctx context.Context, lot *repository.Lot, balance decimal.Decimal) {
	if s.events == nil {
		return
	}

	threshold := s.defaultThreshold
	if lot.PrimaryTagID != nil {
		if tag, err := s.tags.GetByID(ctx, *lot.PrimaryTagID); err == nil && tag.LowStockThreshold.Valid {
			threshold = tag.LowStockThreshold.Decimal
		}
	}

	if balance.IsZero() {
		s.events.PublishStockAlert(ctx, "out_of_stock", lot, balance, threshold)
	} else if balance.LessThan(threshold) {
		s.events.PublishStockAlert(ctx, "low_stock", lot, balance, threshold)
	}
}

func (s *LedgerService) resolveUnit(ctx context.Context, unitID string, invType repository.InventoryType) (*repository.Unit, error) {
	if unitID == "" {
		return nil, errors.ValidationField("unit_id", "this field is required")
	}
	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit.InventoryType != invType {
		return nil, errors.ValidationField("unit_id", "unit belongs to a different inventory type")
	}
	return unit, nil
}

func (s *LedgerService) resolveTags(ctx context.Context, tagIDs []string, invType repository.InventoryType) error {
	if len(tagIDs) == 0 {
		return nil
	}

	tags, err := s.tags.GetByIDs(ctx, tagIDs)
	if err != nil {
		return err
	}
	if len(tags) != len(tagIDs) {
		return errors.NotFound("tag")
	}
	for _, tag := range tags {
		if tag.InventoryType != invType {
			return errors.ValidationField("tag_ids", "tag "+tag.ID+" belongs to a different inventory type")
		}
		if !tag.IsActive {
			return errors.ValidationField("tag_ids", "tag "+tag.ID+" is inactive")
		}
	}
	return nil
}

func checkDecimalRule(unit *repository.Unit, field string, q decimal.Decimal) error {
	if !unit.AllowsDecimal && !q.IsInteger() {
		return errors.ValidationField(field, "unit "+unit.DisplayName+" does not allow fractional quantities")
	}
	return nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
