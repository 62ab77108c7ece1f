package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedCatalog inserts one unit and one tag and returns their ids.
func seedCatalog(t *testing.T, ctx context.Context) (unitID, tagID string) {
	t.Helper()
	unit := suite.Fixtures.Unit()
	require.NoError(t, testutil.InsertUnit(ctx, suite.RawDB, unit))
	tag := suite.Fixtures.Tag()
	require.NoError(t, testutil.InsertTag(ctx, suite.RawDB, tag))
	return unit.ID, tag.ID
}

func newLot(unitID, tagID, quantity string) (*repository.Lot, []string) {
	return &repository.Lot{
		InventoryType:    repository.TypeRawMaterial,
		Name:             "Wheat Flour",
		UnitID:           unitID,
		QuantityReceived: dec(quantity),
		Usable:           true,
		CreatedBy:        uuid.New().String(),
	}, []string{tagID}
}

func TestLotRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)
	unitID, tagID := seedCatalog(t, ctx)

	repo := repository.NewLotRepository(suite.DB)

	lot, tagIDs := newLot(unitID, tagID, "100")
	require.NoError(t, repo.Create(ctx, lot, tagIDs))

	assert.NotEmpty(t, lot.ID)
	assert.Regexp(t, `^RM-\d{6}$`, lot.LotCode)
	assert.True(t, lot.QuantityAvailable.Equal(dec("100")))
	require.NotNil(t, lot.PrimaryTagID)
	assert.Equal(t, tagID, *lot.PrimaryTagID)
	assert.False(t, lot.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, lot.LotCode, got.LotCode)
	assert.Equal(t, []string{tagID}, got.TagIDs)
	assert.True(t, got.QuantityReceived.Equal(dec("100")))

	byCode, err := repo.GetByCode(ctx, lot.LotCode)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, byCode.ID)
}

func TestLotRepository_CodesAreSequentialPerPrefix(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)
	unitID, tagID := seedCatalog(t, ctx)

	repo := repository.NewLotRepository(suite.DB)

	first, tags := newLot(unitID, tagID, "10")
	require.NoError(t, repo.Create(ctx, first, tags))
	second, tags := newLot(unitID, tagID, "10")
	require.NoError(t, repo.Create(ctx, second, tags))

	assert.NotEqual(t, first.LotCode, second.LotCode)
	assert.Greater(t, second.LotCode, first.LotCode)
}

func TestLotRepository_GetByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	repo := repository.NewLotRepository(suite.DB)

	_, err := repo.GetByID(ctx, uuid.New().String())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestLotRepository_List(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)
	unitID, tagID := seedCatalog(t, ctx)

	repo := repository.NewLotRepository(suite.DB)

	active, tags := newLot(unitID, tagID, "10")
	require.NoError(t, repo.Create(ctx, active, tags))

	archived, tags := newLot(unitID, tagID, "5")
	archived.Name = "Old Stock"
	require.NoError(t, repo.Create(ctx, archived, tags))
	require.NoError(t, repo.SetArchived(ctx, archived.ID, true, archived.CreatedBy))

	t.Run("archived lots are hidden by default", func(t *testing.T) {
		lots, total, err := repo.List(ctx, repository.LotFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, lots, 1)
		assert.Equal(t, active.ID, lots[0].ID)
	})

	t.Run("include_archived shows both", func(t *testing.T) {
		_, total, err := repo.List(ctx, repository.LotFilter{IncludeArchived: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("search matches name", func(t *testing.T) {
		lots, _, err := repo.List(ctx, repository.LotFilter{Search: "old", IncludeArchived: true})
		require.NoError(t, err)
		require.Len(t, lots, 1)
		assert.Equal(t, archived.ID, lots[0].ID)
	})

	t.Run("tag filter", func(t *testing.T) {
		otherTag := suite.Fixtures.Tag()
		require.NoError(t, testutil.InsertTag(ctx, suite.RawDB, otherTag))

		lots, _, err := repo.List(ctx, repository.LotFilter{TagID: otherTag.ID})
		require.NoError(t, err)
		assert.Empty(t, lots)

		lots, _, err = repo.List(ctx, repository.LotFilter{TagID: tagID})
		require.NoError(t, err)
		assert.Len(t, lots, 1)
	})
}

func TestLotRepository_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)
	unitID, tagID := seedCatalog(t, ctx)

	lotRepo := repository.NewLotRepository(suite.DB)
	movementRepo := repository.NewMovementRepository(suite.DB)

	lot, tags := newLot(unitID, tagID, "100")
	require.NoError(t, lotRepo.Create(ctx, lot, tags))

	_, err := movementRepo.Record(ctx, &repository.Movement{
		LotID:        lot.ID,
		MovementDate: mustDate("2026-08-01"),
		Kind:         repository.KindConsumption,
		Quantity:     dec("10"),
		RecordedBy:   lot.CreatedBy,
	})
	require.NoError(t, err)

	require.NoError(t, lotRepo.Delete(ctx, lot.ID))

	_, err = lotRepo.GetByID(ctx, lot.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	movements, err := movementRepo.ListByLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)

	// Deleting again reports not found.
	assert.True(t, errors.Is(lotRepo.Delete(ctx, lot.ID), errors.ErrNotFound))
}

func TestLotRepository_BalanceRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)
	unitID, tagID := seedCatalog(t, ctx)

	repo := repository.NewLotRepository(suite.DB)

	first, tags := newLot(unitID, tagID, "60")
	require.NoError(t, repo.Create(ctx, first, tags))
	second, tags := newLot(unitID, tagID, "40")
	require.NoError(t, repo.Create(ctx, second, tags))

	rows, err := repo.BalanceRows(ctx, repository.TypeRawMaterial, false, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	sum := decimal.Zero
	for _, row := range rows {
		assert.Equal(t, tagID, row.TagID)
		sum = sum.Add(row.QuantityAvailable)
	}
	assert.True(t, sum.Equal(dec("100")))
}

func TestBatchRepository_LockingBatchIDs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)
	unitID, tagID := seedCatalog(t, ctx)

	lotRepo := repository.NewLotRepository(suite.DB)
	batchRepo := repository.NewBatchRepository(suite.DB)

	lot, tags := newLot(unitID, tagID, "10")
	require.NoError(t, lotRepo.Create(ctx, lot, tags))

	locked := suite.Fixtures.ProductionBatch(true, lot.ID)
	require.NoError(t, testutil.InsertProductionBatch(ctx, suite.RawDB, locked))
	unlocked := suite.Fixtures.ProductionBatch(false, lot.ID)
	require.NoError(t, testutil.InsertProductionBatch(ctx, suite.RawDB, unlocked))

	ids, err := batchRepo.LockingBatchIDs(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{locked.ID}, ids)

	// Unlocking the batch is visible on the very next read.
	_, err = suite.RawDB.ExecContext(ctx,
		`UPDATE production_batches SET is_locked = false WHERE id = $1`, locked.ID)
	require.NoError(t, err)

	ids, err = batchRepo.LockingBatchIDs(ctx, lot.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTagRepository_Thresholds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	withOverride := suite.Fixtures.Tag(testutil.WithThreshold("25.5"))
	require.NoError(t, testutil.InsertTag(ctx, suite.RawDB, withOverride))
	without := suite.Fixtures.Tag()
	require.NoError(t, testutil.InsertTag(ctx, suite.RawDB, without))

	repo := repository.NewTagRepository(suite.DB)

	thresholds, err := repo.Thresholds(ctx)
	require.NoError(t, err)
	require.Len(t, thresholds, 1)
	assert.True(t, thresholds[withOverride.ID].Equal(dec("25.5")))
}
