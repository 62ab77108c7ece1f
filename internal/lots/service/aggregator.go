package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// BalanceStore provides per-(lot, tag) balance rows.
type BalanceStore interface {
	BalanceRows(ctx context.Context, invType repository.InventoryType, includeArchived bool, tagIDs []string) ([]repository.BalanceRow, error)
}

// SummaryStore provides movement aggregates.
type SummaryStore interface {
	SummaryRows(ctx context.Context, invType repository.InventoryType, start, end time.Time) ([]repository.SummaryRow, error)
	DetailRows(ctx context.Context, tagID string, date time.Time, invType repository.InventoryType) ([]repository.DetailRow, error)
}

// ThresholdStore provides per-tag low-stock threshold overrides.
type ThresholdStore interface {
	Thresholds(ctx context.Context) (map[string]decimal.Decimal, error)
}

// AggregatorService derives out-of-stock, low-stock and consumption
// analytics from ledger state and the movement log. Every result is a
// pure projection for the requested window; nothing is cached.
type AggregatorService struct {
	balances         BalanceStore
	summaries        SummaryStore
	thresholds       ThresholdStore
	defaultThreshold decimal.Decimal
	logger           *logger.Logger
}

// NewAggregatorService creates a new aggregator service
func NewAggregatorService(
	balances BalanceStore,
	summaries SummaryStore,
	thresholds ThresholdStore,
	defaultThreshold decimal.Decimal,
	log *logger.Logger,
) *AggregatorService {
	return &AggregatorService{
		balances:         balances,
		summaries:        summaries,
		thresholds:       thresholds,
		defaultThreshold: defaultThreshold,
		logger:           log,
	}
}

// InventoryFilter narrows aggregation scope.
type InventoryFilter struct {
	InventoryType   repository.InventoryType
	TagIDs          []string
	IncludeArchived bool
}

// InventoryPool is a tag's stock position. Raw material tags produce
// two parallel pools, one per usable flag.
type InventoryPool struct {
	TagID            string                   `json:"tag_id"`
	TagName          string                   `json:"tag_name"`
	InventoryType    repository.InventoryType `json:"inventory_type"`
	Usable           *bool                    `json:"usable,omitempty"`
	CurrentBalance   decimal.Decimal          `json:"current_balance"`
	ItemCount        int                      `json:"item_count"`
	LastActivityDate *time.Time               `json:"last_activity_date,omitempty"`
}

// LowStockItem is a pool whose balance sits between zero and its threshold.
type LowStockItem struct {
	InventoryPool
	ThresholdQuantity decimal.Decimal `json:"threshold_quantity"`
	ShortageAmount    decimal.Decimal `json:"shortage_amount"`
}

// CurrentInventoryByTag groups lots of the requested type by tag,
// summing available quantities. For raw materials the usable and
// unusable sub-pools are reported as separate rows.
func (s *AggregatorService) CurrentInventoryByTag(ctx context.Context, f InventoryFilter) ([]InventoryPool, error) {
	rows, err := s.balances.BalanceRows(ctx, f.InventoryType, f.IncludeArchived, f.TagIDs)
	if err != nil {
		return nil, err
	}
	return groupPools(rows), nil
}

type poolKey struct {
	tagID  string
	usable bool
	split  bool
}

func groupPools(rows []repository.BalanceRow) []InventoryPool {
	pools := make(map[poolKey]*InventoryPool)
	order := []poolKey{}

	for _, row := range rows {
		// Only raw material stock splits into usable/unusable sub-pools.
		split := row.InventoryType == repository.TypeRawMaterial
		key := poolKey{tagID: row.TagID, split: split}
		if split {
			key.usable = row.Usable
		}

		pool, ok := pools[key]
		if !ok {
			pool = &InventoryPool{
				TagID:          row.TagID,
				TagName:        row.TagName,
				InventoryType:  row.InventoryType,
				CurrentBalance: decimal.Zero,
			}
			if split {
				usable := row.Usable
				pool.Usable = &usable
			}
			pools[key] = pool
			order = append(order, key)
		}

		pool.CurrentBalance = pool.CurrentBalance.Add(row.QuantityAvailable)
		pool.ItemCount++
		if row.LastMovementDate != nil {
			if pool.LastActivityDate == nil || row.LastMovementDate.After(*pool.LastActivityDate) {
				pool.LastActivityDate = row.LastMovementDate
			}
		}
	}

	result := make([]InventoryPool, 0, len(order))
	for _, key := range order {
		result = append(result, *pools[key])
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].TagName != result[j].TagName {
			return result[i].TagName < result[j].TagName
		}
		// Usable pool sorts before unusable within a tag.
		ui := result[i].Usable != nil && *result[i].Usable
		uj := result[j].Usable != nil && *result[j].Usable
		return ui && !uj
	})

	return result
}

// OutOfStockItems reports pools whose summed balance is exactly zero,
// not merely low.
func (s *AggregatorService) OutOfStockItems(ctx context.Context, f InventoryFilter) ([]InventoryPool, error) {
	pools, err := s.CurrentInventoryByTag(ctx, f)
	if err != nil {
		return nil, err
	}

	out := []InventoryPool{}
	for _, pool := range pools {
		if pool.CurrentBalance.IsZero() {
			out = append(out, pool)
		}
	}
	return out, nil
}

// LowStockItems reports pools with 0 < balance < threshold. The
// threshold is the tag's configured override, falling back to the
// global default.
func (s *AggregatorService) LowStockItems(ctx context.Context, f InventoryFilter) ([]LowStockItem, error) {
	pools, err := s.CurrentInventoryByTag(ctx, f)
	if err != nil {
		return nil, err
	}

	overrides, err := s.thresholds.Thresholds(ctx)
	if err != nil {
		return nil, err
	}

	low := []LowStockItem{}
	for _, pool := range pools {
		threshold := s.defaultThreshold
		if t, ok := overrides[pool.TagID]; ok {
			threshold = t
		}

		if pool.CurrentBalance.IsPositive() && pool.CurrentBalance.LessThan(threshold) {
			low = append(low, LowStockItem{
				InventoryPool:     pool,
				ThresholdQuantity: threshold,
				ShortageAmount:    threshold.Sub(pool.CurrentBalance),
			})
		}
	}
	return low, nil
}

// SummaryCell is one (tag, date) aggregate of consumption and waste.
type SummaryCell struct {
	TagID            string          `json:"tag_id"`
	TagName          string          `json:"tag_name"`
	Date             time.Time       `json:"date"`
	TotalConsumed    decimal.Decimal `json:"total_consumed"`
	TotalWasted      decimal.Decimal `json:"total_wasted"`
	TransactionCount int64           `json:"transaction_count"`
}

// ConsumptionSummary sums movement quantities grouped by (tag, date)
// within the inclusive date range. The transaction count is the number
// of movement rows per cell, not a distinct-lot count.
func (s *AggregatorService) ConsumptionSummary(ctx context.Context, invType repository.InventoryType, start, end time.Time) ([]SummaryCell, error) {
	rows, err := s.summaries.SummaryRows(ctx, invType, start, end)
	if err != nil {
		return nil, err
	}
	return mergeSummary(rows), nil
}

type cellKey struct {
	tagID string
	date  string
}

func mergeSummary(rows []repository.SummaryRow) []SummaryCell {
	cells := make(map[cellKey]*SummaryCell)
	order := []cellKey{}

	for _, row := range rows {
		key := cellKey{tagID: row.TagID, date: row.MovementDate.Format("2006-01-02")}

		cell, ok := cells[key]
		if !ok {
			cell = &SummaryCell{
				TagID:         row.TagID,
				TagName:       row.TagName,
				Date:          row.MovementDate,
				TotalConsumed: decimal.Zero,
				TotalWasted:   decimal.Zero,
			}
			cells[key] = cell
			order = append(order, key)
		}

		switch row.Kind {
		case repository.KindConsumption:
			cell.TotalConsumed = cell.TotalConsumed.Add(row.TotalQuantity)
		case repository.KindWaste:
			cell.TotalWasted = cell.TotalWasted.Add(row.TotalQuantity)
		}
		cell.TransactionCount += row.TransactionCount
	}

	result := make([]SummaryCell, 0, len(order))
	for _, key := range order {
		result = append(result, *cells[key])
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].TagName < result[j].TagName
	})

	return result
}

// MetricsReport summarizes a window's stock health.
type MetricsReport struct {
	TotalItems      int             `json:"total_items"`
	OutOfStockCount int             `json:"out_of_stock_count"`
	LowStockCount   int             `json:"low_stock_count"`
	WastePercentage decimal.Decimal `json:"waste_percentage"`
}

// Metrics reports stock counters from current balances and the waste
// share of total drawdown within the date range. The waste percentage
// is zero when no movements fall in the window.
func (s *AggregatorService) Metrics(ctx context.Context, f InventoryFilter, start, end time.Time) (*MetricsReport, error) {
	pools, err := s.CurrentInventoryByTag(ctx, f)
	if err != nil {
		return nil, err
	}

	low, err := s.LowStockItems(ctx, f)
	if err != nil {
		return nil, err
	}

	rows, err := s.summaries.SummaryRows(ctx, f.InventoryType, start, end)
	if err != nil {
		return nil, err
	}

	report := &MetricsReport{
		LowStockCount:   len(low),
		WastePercentage: wastePercentage(rows),
	}
	for _, pool := range pools {
		report.TotalItems += pool.ItemCount
		if pool.CurrentBalance.IsZero() {
			report.OutOfStockCount++
		}
	}

	return report, nil
}

func wastePercentage(rows []repository.SummaryRow) decimal.Decimal {
	consumed := decimal.Zero
	wasted := decimal.Zero
	for _, row := range rows {
		switch row.Kind {
		case repository.KindConsumption:
			consumed = consumed.Add(row.TotalQuantity)
		case repository.KindWaste:
			wasted = wasted.Add(row.TotalQuantity)
		}
	}

	total := consumed.Add(wasted)
	if total.IsZero() {
		return decimal.Zero
	}
	return wasted.Div(total).Mul(hundred).Round(2)
}

// ConsumptionDetail lists the movement rows behind a (tag, date)
// summary cell. It elaborates a summary number and is never used to
// recompute one.
func (s *AggregatorService) ConsumptionDetail(ctx context.Context, tagID string, date time.Time, invType repository.InventoryType) ([]repository.DetailRow, error) {
	return s.summaries.DetailRows(ctx, tagID, date, invType)
}

// MonthWindow returns the inclusive first and last calendar day of the
// given month. Clamping to not-after-current-month is the caller's
// responsibility; the aggregator accepts any range.
func MonthWindow(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}
