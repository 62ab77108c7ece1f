package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMovementRepository_Record(t *testing.T) {
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

	m := &repository.Movement{
		LotID:        lot.ID,
		MovementDate: mustDate("2026-08-01"),
		Kind:         repository.KindConsumption,
		Quantity:     dec("30"),
		RecordedBy:   lot.CreatedBy,
	}
	balance, err := movementRepo.Record(ctx, m)
	require.NoError(t, err)

	assert.True(t, balance.Equal(dec("70")))
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.RecordedAt.IsZero())
	require.NotNil(t, m.TagID)
	assert.Equal(t, tagID, *m.TagID)

	got, err := lotRepo.GetByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, got.QuantityAvailable.Equal(dec("70")))
	// The received quantity never changes.
	assert.True(t, got.QuantityReceived.Equal(dec("100")))
}

func TestMovementRepository_Record_Insufficient(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)
	unitID, tagID := seedCatalog(t, ctx)

	lotRepo := repository.NewLotRepository(suite.DB)
	movementRepo := repository.NewMovementRepository(suite.DB)

	lot, tags := newLot(unitID, tagID, "50")
	require.NoError(t, lotRepo.Create(ctx, lot, tags))

	_, err := movementRepo.Record(ctx, &repository.Movement{
		LotID:        lot.ID,
		MovementDate: mustDate("2026-08-01"),
		Kind:         repository.KindWaste,
		Quantity:     dec("50.001"),
		RecordedBy:   lot.CreatedBy,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientQuantity))

	// The failed drawdown left no trace.
	got, err := lotRepo.GetByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, got.QuantityAvailable.Equal(dec("50")))

	movements, err := movementRepo.ListByLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestMovementRepository_Record_UnknownLot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	movementRepo := repository.NewMovementRepository(suite.DB)

	_, err := movementRepo.Record(ctx, &repository.Movement{
		LotID:        uuid.New().String(),
		MovementDate: mustDate("2026-08-01"),
		Kind:         repository.KindConsumption,
		Quantity:     dec("1"),
		RecordedBy:   uuid.New().String(),
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

// Two overlapping drawdowns that together exceed the balance: exactly
// one succeeds, the other fails with an insufficient-quantity error and
// the balance never goes negative.
func TestMovementRepository_Record_Concurrent(t *testing.T) {
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

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := movementRepo.Record(ctx, &repository.Movement{
				LotID:        lot.ID,
				MovementDate: mustDate("2026-08-01"),
				Kind:         repository.KindConsumption,
				Quantity:     dec("60"),
				RecordedBy:   uuid.New().String(),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, errors.ErrInsufficientQuantity))
			failed++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	got, err := lotRepo.GetByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, got.QuantityAvailable.Equal(dec("40")))

	movements, err := movementRepo.ListByLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestMovementRepository_SummaryRows(t *testing.T) {
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

	seed := []struct {
		date     string
		kind     repository.MovementKind
		quantity string
	}{
		{"2026-08-01", repository.KindConsumption, "10"},
		{"2026-08-01", repository.KindConsumption, "20"},
		{"2026-08-01", repository.KindWaste, "5"},
		{"2026-08-02", repository.KindConsumption, "15"},
		// Outside the queried range.
		{"2026-09-01", repository.KindConsumption, "30"},
	}
	for _, s := range seed {
		_, err := movementRepo.Record(ctx, &repository.Movement{
			LotID:        lot.ID,
			MovementDate: mustDate(s.date),
			Kind:         s.kind,
			Quantity:     dec(s.quantity),
			RecordedBy:   lot.CreatedBy,
		})
		require.NoError(t, err)
	}

	rows, err := movementRepo.SummaryRows(ctx, repository.TypeRawMaterial,
		mustDate("2026-08-01"), mustDate("2026-08-31"))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byKey := map[string]repository.SummaryRow{}
	for _, row := range rows {
		byKey[row.MovementDate.Format("2006-01-02")+"/"+string(row.Kind)] = row
	}

	first := byKey["2026-08-01/consumption"]
	assert.True(t, first.TotalQuantity.Equal(dec("30")))
	assert.Equal(t, int64(2), first.TransactionCount)

	waste := byKey["2026-08-01/waste"]
	assert.True(t, waste.TotalQuantity.Equal(dec("5")))
	assert.Equal(t, int64(1), waste.TransactionCount)

	second := byKey["2026-08-02/consumption"]
	assert.True(t, second.TotalQuantity.Equal(dec("15")))
}

func TestMovementRepository_DetailRows(t *testing.T) {
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

	for _, q := range []string{"10", "20"} {
		_, err := movementRepo.Record(ctx, &repository.Movement{
			LotID:        lot.ID,
			MovementDate: mustDate("2026-08-01"),
			Kind:         repository.KindConsumption,
			Quantity:     dec(q),
			RecordedBy:   lot.CreatedBy,
		})
		require.NoError(t, err)
	}

	rows, err := movementRepo.DetailRows(ctx, tagID, mustDate("2026-08-01"), repository.TypeRawMaterial)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	sum := decimal.Zero
	for _, row := range rows {
		assert.Equal(t, lot.LotCode, row.LotCode)
		assert.NotEmpty(t, row.UnitName)
		sum = sum.Add(row.Quantity)
	}
	// The detail rows add up to the summary cell's total.
	assert.True(t, sum.Equal(dec("30")))
}
