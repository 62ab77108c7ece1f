package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/internal/lots/service"
	"github.com/stocklot/stocklot-backend/pkg/httputil"
	"github.com/stocklot/stocklot-backend/pkg/logger"
)

// CatalogHandler handles tag and unit endpoints
type CatalogHandler struct {
	service *service.CatalogService
	logger  *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc *service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  log,
	}
}

type createTagRequest struct {
	DisplayName       string           `json:"display_name" validate:"required"`
	InventoryType     string           `json:"inventory_type" validate:"required,oneof=raw_material recurring_product produced_goods"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
}

// CreateTag creates a new tag
func (h *CatalogHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	tag, err := h.service.CreateTag(r.Context(), service.CreateTagInput{
		DisplayName:       req.DisplayName,
		InventoryType:     repository.InventoryType(req.InventoryType),
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, tag)
}

// GetTag gets a tag by ID
func (h *CatalogHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tag, err := h.service.GetTag(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tag)
}

// ListTags lists tags
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	invType := repository.InventoryType(r.URL.Query().Get("inventory_type"))
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	tags, err := h.service.ListTags(r.Context(), invType, includeInactive)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tags)
}

type updateTagRequest struct {
	DisplayName       *string          `json:"display_name"`
	IsActive          *bool            `json:"is_active"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
	ClearThreshold    bool             `json:"clear_threshold"`
}

// UpdateTag patches a tag
func (h *CatalogHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateTagRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	tag, err := h.service.UpdateTag(r.Context(), id, service.UpdateTagInput{
		DisplayName:       req.DisplayName,
		IsActive:          req.IsActive,
		LowStockThreshold: req.LowStockThreshold,
		ClearThreshold:    req.ClearThreshold,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tag)
}

type createUnitRequest struct {
	DisplayName   string `json:"display_name" validate:"required"`
	InventoryType string `json:"inventory_type" validate:"required,oneof=raw_material recurring_product produced_goods"`
	AllowsDecimal bool   `json:"allows_decimal"`
}

// CreateUnit creates a new unit
func (h *CatalogHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	unit, err := h.service.CreateUnit(r.Context(), service.CreateUnitInput{
		DisplayName:   req.DisplayName,
		InventoryType: repository.InventoryType(req.InventoryType),
		AllowsDecimal: req.AllowsDecimal,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, unit)
}

// GetUnit gets a unit by ID
func (h *CatalogHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	unit, err := h.service.GetUnit(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, unit)
}

// ListUnits lists units
func (h *CatalogHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	invType := repository.InventoryType(r.URL.Query().Get("inventory_type"))
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	units, err := h.service.ListUnits(r.Context(), invType, includeInactive)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, units)
}

type updateUnitRequest struct {
	DisplayName *string `json:"display_name"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateUnit patches a unit
func (h *CatalogHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateUnitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	unit, err := h.service.UpdateUnit(r.Context(), id, service.UpdateUnitInput{
		DisplayName: req.DisplayName,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, unit)
}
