package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/internal/lots/service"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/httputil"
	"github.com/stocklot/stocklot-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// LotHandler handles lot endpoints
type LotHandler struct {
	service *service.LedgerService
	logger  *logger.Logger
}

// NewLotHandler creates a new lot handler
func NewLotHandler(svc *service.LedgerService, log *logger.Logger) *LotHandler {
	return &LotHandler{
		service: svc,
		logger:  log,
	}
}

// List lists lots
func (h *LotHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	filter := repository.LotFilter{
		InventoryType:   repository.InventoryType(r.URL.Query().Get("inventory_type")),
		TagID:           r.URL.Query().Get("tag_id"),
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
		Search:          r.URL.Query().Get("search"),
		Page:            page,
		PerPage:         perPage,
	}
	if v := r.URL.Query().Get("usable"); v != "" {
		usable := v == "true"
		filter.Usable = &usable
	}
	if filter.InventoryType != "" && !filter.InventoryType.Valid() {
		httputil.Error(w, errors.ValidationField("inventory_type", "unknown inventory type"))
		return
	}

	lots, total, err := h.service.ListLots(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, lots, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets a lot by ID
func (h *LotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lot, err := h.service.GetLot(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

type createLotRequest struct {
	InventoryType    string          `json:"inventory_type" validate:"required,oneof=raw_material recurring_product produced_goods"`
	Name             string          `json:"name" validate:"required"`
	TagIDs           []string        `json:"tag_ids"`
	UnitID           string          `json:"unit_id" validate:"required,uuid"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`

	Usable          *bool            `json:"usable"`
	Condition       *string          `json:"condition"`
	BatchName       *string          `json:"batch_name"`
	QuantityCreated *decimal.Decimal `json:"quantity_created"`

	SupplierID   *string          `json:"supplier_id"`
	ReceivedDate *string          `json:"received_date"`
	HandoverTo   *string          `json:"handover_to"`
	AmountPaid   *decimal.Decimal `json:"amount_paid"`
	StorageNotes *string          `json:"storage_notes"`
	DocumentURL  *string          `json:"document_url"`
}

// Create creates a new lot
func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	in := service.CreateLotInput{
		InventoryType:    repository.InventoryType(req.InventoryType),
		Name:             req.Name,
		TagIDs:           req.TagIDs,
		UnitID:           req.UnitID,
		QuantityReceived: req.QuantityReceived,
		Usable:           req.Usable,
		Condition:        req.Condition,
		BatchName:        req.BatchName,
		QuantityCreated:  req.QuantityCreated,
		SupplierID:       req.SupplierID,
		HandoverTo:       req.HandoverTo,
		AmountPaid:       req.AmountPaid,
		StorageNotes:     req.StorageNotes,
		DocumentURL:      req.DocumentURL,
	}
	if req.ReceivedDate != nil {
		d, err := time.Parse(dateLayout, *req.ReceivedDate)
		if err != nil {
			httputil.Error(w, errors.ValidationField("received_date", "must be a date in YYYY-MM-DD format"))
			return
		}
		in.ReceivedDate = &d
	}

	lot, err := h.service.CreateLot(r.Context(), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, lot)
}

type updateLotRequest struct {
	Name         *string          `json:"name"`
	TagIDs       []string         `json:"tag_ids"`
	UnitID       *string          `json:"unit_id"`
	Usable       *bool            `json:"usable"`
	Condition    *string          `json:"condition"`
	BatchName    *string          `json:"batch_name"`
	SupplierID   *string          `json:"supplier_id"`
	ReceivedDate *string          `json:"received_date"`
	HandoverTo   *string          `json:"handover_to"`
	AmountPaid   *decimal.Decimal `json:"amount_paid"`
	StorageNotes *string          `json:"storage_notes"`
	DocumentURL  *string          `json:"document_url"`
}

// Update patches lot metadata
func (h *LotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateLotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	in := service.UpdateLotInput{
		Name:         req.Name,
		TagIDs:       req.TagIDs,
		UnitID:       req.UnitID,
		Usable:       req.Usable,
		Condition:    req.Condition,
		BatchName:    req.BatchName,
		SupplierID:   req.SupplierID,
		HandoverTo:   req.HandoverTo,
		AmountPaid:   req.AmountPaid,
		StorageNotes: req.StorageNotes,
		DocumentURL:  req.DocumentURL,
	}
	if req.ReceivedDate != nil {
		d, err := time.Parse(dateLayout, *req.ReceivedDate)
		if err != nil {
			httputil.Error(w, errors.ValidationField("received_date", "must be a date in YYYY-MM-DD format"))
			return
		}
		in.ReceivedDate = &d
	}

	lot, err := h.service.UpdateLot(r.Context(), id, in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// Archive archives a lot
func (h *LotHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lot, err := h.service.ArchiveLot(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// Unarchive restores an archived lot
func (h *LotHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lot, err := h.service.UnarchiveLot(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// Delete deletes a lot and its movement log
func (h *LotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteLot(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// CheckLock reports whether a lot is referenced by a locked production
// batch. The response reflects the registry at request time only.
func (h *LotHandler) CheckLock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.service.CheckLock(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, status)
}

type recordMovementRequest struct {
	Kind         string          `json:"kind" validate:"required,oneof=consumption waste"`
	Quantity     decimal.Decimal `json:"quantity"`
	MovementDate string          `json:"movement_date" validate:"required"`
}

// RecordMovement applies a consumption or waste drawdown to a lot
func (h *LotHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req recordMovementRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	date, err := time.Parse(dateLayout, req.MovementDate)
	if err != nil {
		httputil.Error(w, errors.ValidationField("movement_date", "must be a date in YYYY-MM-DD format"))
		return
	}

	movement, err := h.service.ApplyMovement(r.Context(), id, service.MovementInput{
		Kind:         repository.MovementKind(req.Kind),
		Quantity:     req.Quantity,
		MovementDate: date,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, movement)
}

// ListMovements lists a lot's movement log, newest first
func (h *LotHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	movements, err := h.service.ListMovements(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, movements)
}
