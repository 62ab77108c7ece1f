package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/internal/lots/service"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/httputil"
	"github.com/stocklot/stocklot-backend/pkg/logger"
)

// AnalyticsHandler handles inventory and consumption analytics endpoints
type AnalyticsHandler struct {
	service *service.AggregatorService
	logger  *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(svc *service.AggregatorService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: svc,
		logger:  log,
	}
}

func inventoryFilter(r *http.Request) (service.InventoryFilter, error) {
	f := service.InventoryFilter{
		InventoryType:   repository.InventoryType(r.URL.Query().Get("inventory_type")),
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
	}
	if f.InventoryType != "" && !f.InventoryType.Valid() {
		return f, errors.ValidationField("inventory_type", "unknown inventory type")
	}
	if v := r.URL.Query().Get("tag_ids"); v != "" {
		f.TagIDs = strings.Split(v, ",")
	}
	return f, nil
}

// monthWindow resolves the year/month query parameters, defaulting to
// the current month and clamping requests for future months back to it.
func monthWindow(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2200 {
			return time.Time{}, time.Time{}, errors.ValidationField("year", "must be a four-digit year")
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return time.Time{}, time.Time{}, errors.ValidationField("month", "must be between 1 and 12")
		}
		month = time.Month(m)
	}

	if year > now.Year() || (year == now.Year() && month > now.Month()) {
		year = now.Year()
		month = now.Month()
	}

	start, end := service.MonthWindow(year, month)
	return start, end, nil
}

// CurrentInventory returns per-tag stock pools
func (h *AnalyticsHandler) CurrentInventory(w http.ResponseWriter, r *http.Request) {
	filter, err := inventoryFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	pools, err := h.service.CurrentInventoryByTag(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, pools)
}

// OutOfStock returns pools whose balance is exactly zero
func (h *AnalyticsHandler) OutOfStock(w http.ResponseWriter, r *http.Request) {
	filter, err := inventoryFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	pools, err := h.service.OutOfStockItems(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, pools)
}

// LowStock returns pools below their low-stock threshold
func (h *AnalyticsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	filter, err := inventoryFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	items, err := h.service.LowStockItems(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}

// ConsumptionSummary returns per-tag per-day consumption and waste
// totals for a calendar month
func (h *AnalyticsHandler) ConsumptionSummary(w http.ResponseWriter, r *http.Request) {
	invType := repository.InventoryType(r.URL.Query().Get("inventory_type"))
	if invType != "" && !invType.Valid() {
		httputil.Error(w, errors.ValidationField("inventory_type", "unknown inventory type"))
		return
	}

	start, end, err := monthWindow(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	cells, err := h.service.ConsumptionSummary(r.Context(), invType, start, end)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, cells)
}

// ConsumptionDetail lists the movements behind one summary cell
func (h *AnalyticsHandler) ConsumptionDetail(w http.ResponseWriter, r *http.Request) {
	tagID := r.URL.Query().Get("tag_id")
	if tagID == "" {
		httputil.Error(w, errors.ValidationField("tag_id", "this field is required"))
		return
	}

	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		httputil.Error(w, errors.ValidationField("date", "must be a date in YYYY-MM-DD format"))
		return
	}

	invType := repository.InventoryType(r.URL.Query().Get("inventory_type"))
	if invType != "" && !invType.Valid() {
		httputil.Error(w, errors.ValidationField("inventory_type", "unknown inventory type"))
		return
	}

	rows, err := h.service.ConsumptionDetail(r.Context(), tagID, date, invType)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// Metrics returns stock health counters and the month's waste share
func (h *AnalyticsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	filter, err := inventoryFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	start, end, err := monthWindow(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.Metrics(r.Context(), filter, start, end)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
