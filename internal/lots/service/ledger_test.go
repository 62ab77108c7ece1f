package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/internal/lots/service"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// IN-MEMORY FAKES
// ============================================================================

type fakeLotStore struct {
	lots map[string]*repository.Lot
	seq  int64
}

func newFakeLotStore() *fakeLotStore {
	return &fakeLotStore{lots: make(map[string]*repository.Lot)}
}

func (f *fakeLotStore) Create(ctx context.Context, lot *repository.Lot, tagIDs []string) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	f.seq++
	lot.LotCode = fmt.Sprintf("%s-%06d", lot.InventoryType.CodePrefix(), f.seq)
	lot.QuantityAvailable = lot.QuantityReceived
	if len(tagIDs) > 0 {
		lot.PrimaryTagID = &tagIDs[0]
	}
	lot.TagIDs = tagIDs
	lot.CreatedAt = time.Now()
	lot.UpdatedAt = lot.CreatedAt
	cp := *lot
	f.lots[lot.ID] = &cp
	return nil
}

func (f *fakeLotStore) GetByID(ctx context.Context, id string) (*repository.Lot, error) {
	lot, ok := f.lots[id]
	if !ok {
		return nil, errors.NotFound("lot")
	}
	cp := *lot
	return &cp, nil
}

func (f *fakeLotStore) List(ctx context.Context, filter repository.LotFilter) ([]*repository.Lot, int64, error) {
	out := []*repository.Lot{}
	for _, lot := range f.lots {
		if !filter.IncludeArchived && lot.IsArchived {
			continue
		}
		cp := *lot
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeLotStore) Update(ctx context.Context, lot *repository.Lot, tagIDs []string) error {
	if _, ok := f.lots[lot.ID]; !ok {
		return errors.NotFound("lot")
	}
	if len(tagIDs) > 0 {
		lot.PrimaryTagID = &tagIDs[0]
	} else {
		lot.PrimaryTagID = nil
	}
	lot.TagIDs = tagIDs
	cp := *lot
	f.lots[lot.ID] = &cp
	return nil
}

func (f *fakeLotStore) SetArchived(ctx context.Context, id string, archived bool, updatedBy string) error {
	lot, ok := f.lots[id]
	if !ok {
		return errors.NotFound("lot")
	}
	lot.IsArchived = archived
	lot.UpdatedBy = updatedBy
	return nil
}

func (f *fakeLotStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.lots[id]; !ok {
		return errors.NotFound("lot")
	}
	delete(f.lots, id)
	return nil
}

// fakeMovementStore applies the same conditional decrement the real
// repository performs, against the fake lot store's state.
type fakeMovementStore struct {
	lots      *fakeLotStore
	movements []*repository.Movement
}

func (f *fakeMovementStore) Record(ctx context.Context, m *repository.Movement) (decimal.Decimal, error) {
	lot, ok := f.lots.lots[m.LotID]
	if !ok {
		return decimal.Zero, errors.NotFound("lot")
	}
	if lot.QuantityAvailable.LessThan(m.Quantity) {
		return decimal.Zero, errors.InsufficientQuantity(m.Quantity.String(), lot.QuantityAvailable.String())
	}
	lot.QuantityAvailable = lot.QuantityAvailable.Sub(m.Quantity)
	m.ID = uuid.New().String()
	m.TagID = lot.PrimaryTagID
	m.RecordedAt = time.Now()
	f.movements = append(f.movements, m)
	return lot.QuantityAvailable, nil
}

func (f *fakeMovementStore) ListByLot(ctx context.Context, lotID string) ([]*repository.Movement, error) {
	out := []*repository.Movement{}
	for _, m := range f.movements {
		if m.LotID == lotID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeTagStore struct {
	tags map[string]*repository.Tag
}

func (f *fakeTagStore) GetByID(ctx context.Context, id string) (*repository.Tag, error) {
	tag, ok := f.tags[id]
	if !ok {
		return nil, errors.NotFound("tag")
	}
	return tag, nil
}

func (f *fakeTagStore) GetByIDs(ctx context.Context, ids []string) ([]*repository.Tag, error) {
	out := []*repository.Tag{}
	for _, id := range ids {
		if tag, ok := f.tags[id]; ok {
			out = append(out, tag)
		}
	}
	return out, nil
}

type fakeUnitStore struct {
	units map[string]*repository.Unit
}

func (f *fakeUnitStore) GetByID(ctx context.Context, id string) (*repository.Unit, error) {
	unit, ok := f.units[id]
	if !ok {
		return nil, errors.NotFound("unit")
	}
	return unit, nil
}

type fakeBatchStore struct {
	// locked batch ids per lot id
	locks map[string][]string
}

func (f *fakeBatchStore) LockingBatchIDs(ctx context.Context, lotID string) ([]string, error) {
	return f.locks[lotID], nil
}

type publishedEvent struct {
	kind string
	lot  *repository.Lot
}

type fakePublisher struct {
	events []publishedEvent
	alerts []string
}

func (f *fakePublisher) PublishLotCreated(ctx context.Context, lot *repository.Lot) {
	f.events = append(f.events, publishedEvent{"created", lot})
}
func (f *fakePublisher) PublishLotUpdated(ctx context.Context, lot *repository.Lot) {
	f.events = append(f.events, publishedEvent{"updated", lot})
}
func (f *fakePublisher) PublishLotArchived(ctx context.Context, lot *repository.Lot) {
	f.events = append(f.events, publishedEvent{"archived", lot})
}
func (f *fakePublisher) PublishLotUnarchived(ctx context.Context, lot *repository.Lot) {
	f.events = append(f.events, publishedEvent{"unarchived", lot})
}
func (f *fakePublisher) PublishLotDeleted(ctx context.Context, lot *repository.Lot, performedBy string) {
	f.events = append(f.events, publishedEvent{"deleted", lot})
}
func (f *fakePublisher) PublishMovementRecorded(ctx context.Context, m *repository.Movement, newBalance decimal.Decimal) {
	f.events = append(f.events, publishedEvent{"movement", nil})
}
func (f *fakePublisher) PublishStockAlert(ctx context.Context, alertType string, lot *repository.Lot, balance, threshold decimal.Decimal) {
	f.alerts = append(f.alerts, alertType)
}

func (f *fakePublisher) kinds() []string {
	out := []string{}
	for _, e := range f.events {
		out = append(out, e.kind)
	}
	return out
}

// ============================================================================
// FIXTURE
// ============================================================================

type ledgerFixture struct {
	svc       *service.LedgerService
	lots      *fakeLotStore
	movements *fakeMovementStore
	tags      *fakeTagStore
	units     *fakeUnitStore
	batches   *fakeBatchStore
	publisher *fakePublisher

	decimalUnit *repository.Unit
	wholeUnit   *repository.Unit
	tag         *repository.Tag
}

func newLedgerFixture() *ledgerFixture {
	lots := newFakeLotStore()
	movements := &fakeMovementStore{lots: lots}

	decimalUnit := &repository.Unit{
		ID:            uuid.New().String(),
		DisplayName:   "kg",
		InventoryType: repository.TypeRawMaterial,
		AllowsDecimal: true,
		IsActive:      true,
	}
	wholeUnit := &repository.Unit{
		ID:            uuid.New().String(),
		DisplayName:   "pieces",
		InventoryType: repository.TypeRawMaterial,
		AllowsDecimal: false,
		IsActive:      true,
	}
	tag := &repository.Tag{
		ID:            uuid.New().String(),
		DisplayName:   "flour",
		InventoryType: repository.TypeRawMaterial,
		IsActive:      true,
	}

	tags := &fakeTagStore{tags: map[string]*repository.Tag{tag.ID: tag}}
	units := &fakeUnitStore{units: map[string]*repository.Unit{
		decimalUnit.ID: decimalUnit,
		wholeUnit.ID:   wholeUnit,
	}}
	batches := &fakeBatchStore{locks: map[string][]string{}}
	publisher := &fakePublisher{}

	svc := service.NewLedgerService(
		lots, movements, tags, units, batches, publisher,
		decimal.NewFromInt(10), logger.New("test", "test"),
	)

	return &ledgerFixture{
		svc:         svc,
		lots:        lots,
		movements:   movements,
		tags:        tags,
		units:       units,
		batches:     batches,
		publisher:   publisher,
		decimalUnit: decimalUnit,
		wholeUnit:   wholeUnit,
		tag:         tag,
	}
}

func (f *ledgerFixture) createLot(t *testing.T, unitID, quantity string) *repository.Lot {
	t.Helper()
	lot, err := f.svc.CreateLot(context.Background(), service.CreateLotInput{
		InventoryType:    repository.TypeRawMaterial,
		Name:             "Wheat Flour",
		TagIDs:           []string{f.tag.ID},
		UnitID:           unitID,
		QuantityReceived: decimal.RequireFromString(quantity),
	})
	require.NoError(t, err)
	return lot
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ============================================================================
// CREATE
// ============================================================================

func TestCreateLot(t *testing.T) {
	ctx := context.Background()

	t.Run("available starts equal to received", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "100")

		assert.True(t, lot.QuantityAvailable.Equal(dec("100")))
		assert.True(t, lot.QuantityReceived.Equal(dec("100")))
		assert.Contains(t, lot.LotCode, "RM-")
		assert.False(t, lot.IsArchived)
		assert.True(t, lot.Usable)
		require.NotNil(t, lot.PrimaryTagID)
		assert.Equal(t, f.tag.ID, *lot.PrimaryTagID)
		assert.Equal(t, []string{"created"}, f.publisher.kinds())
	})

	t.Run("raw material requires at least one tag", func(t *testing.T) {
		f := newLedgerFixture()
		_, err := f.svc.CreateLot(ctx, service.CreateLotInput{
			InventoryType:    repository.TypeRawMaterial,
			Name:             "Wheat Flour",
			UnitID:           f.decimalUnit.ID,
			QuantityReceived: dec("100"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("quantity must be positive", func(t *testing.T) {
		f := newLedgerFixture()
		for _, q := range []string{"0", "-5"} {
			_, err := f.svc.CreateLot(ctx, service.CreateLotInput{
				InventoryType:    repository.TypeRawMaterial,
				Name:             "Wheat Flour",
				TagIDs:           []string{f.tag.ID},
				UnitID:           f.decimalUnit.ID,
				QuantityReceived: dec(q),
			})
			assert.True(t, errors.Is(err, errors.ErrValidation), "quantity %s", q)
		}
	})

	t.Run("whole unit rejects fractional quantity", func(t *testing.T) {
		f := newLedgerFixture()
		_, err := f.svc.CreateLot(ctx, service.CreateLotInput{
			InventoryType:    repository.TypeRawMaterial,
			Name:             "Egg Cartons",
			TagIDs:           []string{f.tag.ID},
			UnitID:           f.wholeUnit.ID,
			QuantityReceived: dec("2.5"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))

		// The same quantity is fine on a unit allowing decimals.
		lot, err := f.svc.CreateLot(ctx, service.CreateLotInput{
			InventoryType:    repository.TypeRawMaterial,
			Name:             "Olive Oil",
			TagIDs:           []string{f.tag.ID},
			UnitID:           f.decimalUnit.ID,
			QuantityReceived: dec("2.5"),
		})
		require.NoError(t, err)
		assert.True(t, lot.QuantityAvailable.Equal(dec("2.5")))
	})

	t.Run("unknown inventory type", func(t *testing.T) {
		f := newLedgerFixture()
		_, err := f.svc.CreateLot(ctx, service.CreateLotInput{
			InventoryType:    "furniture",
			Name:             "Chair",
			UnitID:           f.decimalUnit.ID,
			QuantityReceived: dec("1"),
		})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("unit must match inventory type", func(t *testing.T) {
		f := newLedgerFixture()
		producedUnit := &repository.Unit{
			ID:            uuid.New().String(),
			DisplayName:   "trays",
			InventoryType: repository.TypeProducedGoods,
			AllowsDecimal: false,
			IsActive:      true,
		}
		f.units.units[producedUnit.ID] = producedUnit

		_, err := f.svc.CreateLot(ctx, service.CreateLotInput{
			InventoryType:    repository.TypeRawMaterial,
			Name:             "Wheat Flour",
			TagIDs:           []string{f.tag.ID},
			UnitID:           producedUnit.ID,
			QuantityReceived: dec("10"),
		})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})
}

// ============================================================================
// MOVEMENTS
// ============================================================================

func TestApplyMovement(t *testing.T) {
	ctx := context.Background()

	t.Run("consumption and waste draw down the same pool", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "100")

		_, err := f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         repository.KindConsumption,
			Quantity:     dec("30"),
			MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		_, err = f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         repository.KindWaste,
			Quantity:     dec("20"),
			MovementDate: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		got, err := f.svc.GetLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, got.QuantityAvailable.Equal(dec("50")), "got %s", got.QuantityAvailable)
	})

	t.Run("over-drawdown fails and changes nothing", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "50")

		_, err := f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         repository.KindConsumption,
			Quantity:     dec("60"),
			MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInsufficientQuantity))

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "60", appErr.Details["requested"])
		assert.Equal(t, "50", appErr.Details["available"])

		got, err := f.svc.GetLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, got.QuantityAvailable.Equal(dec("50")))

		movements, err := f.svc.ListMovements(ctx, lot.ID)
		require.NoError(t, err)
		assert.Empty(t, movements)
	})

	t.Run("drawdown to exactly zero succeeds", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "50")

		_, err := f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         repository.KindConsumption,
			Quantity:     dec("50"),
			MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		got, err := f.svc.GetLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, got.QuantityAvailable.IsZero())
		assert.Contains(t, f.publisher.alerts, "out_of_stock")
	})

	t.Run("movement snapshots the primary tag", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "100")

		m, err := f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         repository.KindConsumption,
			Quantity:     dec("10"),
			MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.NotNil(t, m.TagID)
		assert.Equal(t, f.tag.ID, *m.TagID)
	})

	t.Run("whole unit rejects fractional drawdown", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.wholeUnit.ID, "10")

		_, err := f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         repository.KindConsumption,
			Quantity:     dec("1.5"),
			MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("invalid kind and missing date", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "10")

		_, err := f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         "restock",
			Quantity:     dec("1"),
			MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		assert.True(t, errors.Is(err, errors.ErrValidation))

		_, err = f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:     repository.KindConsumption,
			Quantity: dec("1"),
		})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("unknown lot", func(t *testing.T) {
		f := newLedgerFixture()
		_, err := f.svc.ApplyMovement(ctx, uuid.New().String(), service.MovementInput{
			Kind:         repository.KindConsumption,
			Quantity:     dec("1"),
			MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("low stock alert uses tag threshold override", func(t *testing.T) {
		f := newLedgerFixture()
		f.tag.LowStockThreshold = decimal.NewNullDecimal(dec("40"))
		lot := f.createLot(t, f.decimalUnit.ID, "100")

		// 100 -> 70: above the 40 override, no alert.
		_, err := f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         repository.KindConsumption,
			Quantity:     dec("30"),
			MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Empty(t, f.publisher.alerts)

		// 70 -> 35: below 40, alert fires.
		_, err = f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
			Kind:         repository.KindConsumption,
			Quantity:     dec("35"),
			MovementDate: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"low_stock"}, f.publisher.alerts)
	})
}

// ============================================================================
// ARCHIVE / UNARCHIVE
// ============================================================================

func TestArchiveLot(t *testing.T) {
	ctx := context.Background()

	t.Run("archivable at or below the remainder limit", func(t *testing.T) {
		f := newLedgerFixture()
		for _, q := range []string{"0.5", "5"} {
			lot := f.createLot(t, f.decimalUnit.ID, "100")
			_, err := f.svc.ApplyMovement(ctx, lot.ID, service.MovementInput{
				Kind:         repository.KindConsumption,
				Quantity:     dec("100").Sub(dec(q)),
				MovementDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)

			archived, err := f.svc.ArchiveLot(ctx, lot.ID)
			require.NoError(t, err, "quantity %s", q)
			assert.True(t, archived.IsArchived)
		}
	})

	t.Run("rejected above the remainder limit", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "6")

		_, err := f.svc.ArchiveLot(ctx, lot.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))

		got, err := f.svc.GetLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.False(t, got.IsArchived)
	})

	t.Run("rejected while locked, carrying batch ids", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "3")
		f.batches.locks[lot.ID] = []string{"batch-1", "batch-2"}

		_, err := f.svc.ArchiveLot(ctx, lot.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrLocked))

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, []string{"batch-1", "batch-2"}, appErr.BatchIDs)
	})

	t.Run("idempotent on an archived lot", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "3")

		first, err := f.svc.ArchiveLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, first.IsArchived)

		// Lock the lot afterwards; re-archiving an archived lot must
		// still succeed without consulting the gates.
		f.batches.locks[lot.ID] = []string{"batch-9"}
		second, err := f.svc.ArchiveLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, second.IsArchived)
	})

	t.Run("unarchive has no preconditions", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "3")

		_, err := f.svc.ArchiveLot(ctx, lot.ID)
		require.NoError(t, err)

		f.batches.locks[lot.ID] = []string{"batch-1"}
		restored, err := f.svc.UnarchiveLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.False(t, restored.IsArchived)
	})
}

// ============================================================================
// UPDATE / DELETE / LOCKS
// ============================================================================

func TestUpdateLot(t *testing.T) {
	ctx := context.Background()

	t.Run("patches metadata", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "100")

		name := "Rye Flour"
		notes := "cool and dry"
		updated, err := f.svc.UpdateLot(ctx, lot.ID, service.UpdateLotInput{
			Name:         &name,
			StorageNotes: &notes,
			TagIDs:       []string{f.tag.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, "Rye Flour", updated.Name)
		require.NotNil(t, updated.StorageNotes)
		assert.Equal(t, "cool and dry", *updated.StorageNotes)
		// Quantities are untouched by metadata updates.
		assert.True(t, updated.QuantityAvailable.Equal(dec("100")))
	})

	t.Run("rejected while locked", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "100")
		f.batches.locks[lot.ID] = []string{"batch-1"}

		name := "Rye Flour"
		_, err := f.svc.UpdateLot(ctx, lot.ID, service.UpdateLotInput{Name: &name})
		assert.True(t, errors.Is(err, errors.ErrLocked))
	})

	t.Run("unit change revalidates stored quantities", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "2.5")

		// Switching to a whole-number unit would leave a fractional
		// balance behind, so the change is rejected.
		_, err := f.svc.UpdateLot(ctx, lot.ID, service.UpdateLotInput{
			UnitID: &f.wholeUnit.ID,
			TagIDs: []string{f.tag.ID},
		})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})
}

func TestDeleteLot(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the lot and its movement log", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "100")

		require.NoError(t, f.svc.DeleteLot(ctx, lot.ID))

		_, err := f.svc.GetLot(ctx, lot.ID)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
		assert.Contains(t, f.publisher.kinds(), "deleted")
	})

	t.Run("rejected while locked", func(t *testing.T) {
		f := newLedgerFixture()
		lot := f.createLot(t, f.decimalUnit.ID, "100")
		f.batches.locks[lot.ID] = []string{"batch-1"}

		err := f.svc.DeleteLot(ctx, lot.ID)
		assert.True(t, errors.Is(err, errors.ErrLocked))
	})
}

func TestCheckLock(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	lot := f.createLot(t, f.decimalUnit.ID, "100")

	status, err := f.svc.CheckLock(ctx, lot.ID)
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Empty(t, status.BatchIDs)

	// Lock state changes between calls are reflected immediately; the
	// service never caches a previous answer.
	f.batches.locks[lot.ID] = []string{"batch-7"}
	status, err = f.svc.CheckLock(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, []string{"batch-7"}, status.BatchIDs)

	delete(f.batches.locks, lot.ID)
	status, err = f.svc.CheckLock(ctx, lot.ID)
	require.NoError(t, err)
	assert.False(t, status.Locked)
}
