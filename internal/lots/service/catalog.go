package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
)

// TagCatalog is the persistence surface for tag management.
type TagCatalog interface {
	Create(ctx context.Context, tag *repository.Tag) error
	GetByID(ctx context.Context, id string) (*repository.Tag, error)
	List(ctx context.Context, invType repository.InventoryType, includeInactive bool) ([]*repository.Tag, error)
	Update(ctx context.Context, tag *repository.Tag) error
}

// UnitCatalog is the persistence surface for unit management.
type UnitCatalog interface {
	Create(ctx context.Context, unit *repository.Unit) error
	GetByID(ctx context.Context, id string) (*repository.Unit, error)
	List(ctx context.Context, invType repository.InventoryType, includeInactive bool) ([]*repository.Unit, error)
	Update(ctx context.Context, unit *repository.Unit) error
}

// CatalogService manages the tag and unit catalogs lots are classified
// against. Neither tags nor units are ever hard-deleted: lots and
// movements keep referencing them, so retirement means deactivation.
type CatalogService struct {
	tags   TagCatalog
	units  UnitCatalog
	logger *logger.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(tags TagCatalog, units UnitCatalog, log *logger.Logger) *CatalogService {
	return &CatalogService{
		tags:   tags,
		units:  units,
		logger: log,
	}
}

// CreateTagInput carries the fields accepted at tag creation.
type CreateTagInput struct {
	DisplayName       string
	InventoryType     repository.InventoryType
	LowStockThreshold *decimal.Decimal
}

// CreateTag validates and persists a new active tag.
func (s *CatalogService) CreateTag(ctx context.Context, in CreateTagInput) (*repository.Tag, error) {
	if in.DisplayName == "" {
		return nil, errors.ValidationField("display_name", "this field is required")
	}
	if !in.InventoryType.Valid() {
		return nil, errors.ValidationField("inventory_type", "unknown inventory type")
	}
	if in.LowStockThreshold != nil && !in.LowStockThreshold.IsPositive() {
		return nil, errors.ValidationField("low_stock_threshold", "must be greater than zero")
	}

	tag := &repository.Tag{
		DisplayName:       in.DisplayName,
		InventoryType:     in.InventoryType,
		IsActive:          true,
		LowStockThreshold: toNullDecimal(in.LowStockThreshold),
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info().Str("tag_id", tag.ID).Str("display_name", tag.DisplayName).Msg("tag created")
	return tag, nil
}

// GetTag gets a tag by ID
func (s *CatalogService) GetTag(ctx context.Context, id string) (*repository.Tag, error) {
	return s.tags.GetByID(ctx, id)
}

// ListTags lists tags, optionally filtered by inventory type
func (s *CatalogService) ListTags(ctx context.Context, invType repository.InventoryType, includeInactive bool) ([]*repository.Tag, error) {
	if invType != "" && !invType.Valid() {
		return nil, errors.ValidationField("inventory_type", "unknown inventory type")
	}
	return s.tags.List(ctx, invType, includeInactive)
}

// UpdateTagInput carries the patchable tag fields. The inventory type
// is immutable: lots of one type already reference the tag.
type UpdateTagInput struct {
	DisplayName       *string
	IsActive          *bool
	LowStockThreshold *decimal.Decimal
	ClearThreshold    bool
}

// UpdateTag patches a tag's name, active flag and threshold override.
func (s *CatalogService) UpdateTag(ctx context.Context, id string, in UpdateTagInput) (*repository.Tag, error) {
	tag, err := s.tags.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		if *in.DisplayName == "" {
			return nil, errors.ValidationField("display_name", "this field is required")
		}
		tag.DisplayName = *in.DisplayName
	}
	if in.IsActive != nil {
		tag.IsActive = *in.IsActive
	}
	if in.ClearThreshold {
		tag.LowStockThreshold = decimal.NullDecimal{}
	} else if in.LowStockThreshold != nil {
		if !in.LowStockThreshold.IsPositive() {
			return nil, errors.ValidationField("low_stock_threshold", "must be greater than zero")
		}
		tag.LowStockThreshold = toNullDecimal(in.LowStockThreshold)
	}

	if err := s.tags.Update(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// CreateUnitInput carries the fields accepted at unit creation.
type CreateUnitInput struct {
	DisplayName   string
	InventoryType repository.InventoryType
	AllowsDecimal bool
}

// CreateUnit validates and persists a new active unit.
func (s *CatalogService) CreateUnit(ctx context.Context, in CreateUnitInput) (*repository.Unit, error) {
	if in.DisplayName == "" {
		return nil, errors.ValidationField("display_name", "this field is required")
	}
	if !in.InventoryType.Valid() {
		return nil, errors.ValidationField("inventory_type", "unknown inventory type")
	}

	unit := &repository.Unit{
		DisplayName:   in.DisplayName,
		InventoryType: in.InventoryType,
		AllowsDecimal: in.AllowsDecimal,
		IsActive:      true,
	}
	if err := s.units.Create(ctx, unit); err != nil {
		return nil, err
	}

	s.logger.Info().Str("unit_id", unit.ID).Str("display_name", unit.DisplayName).Msg("unit created")
	return unit, nil
}

// GetUnit gets a unit by ID
func (s *CatalogService) GetUnit(ctx context.Context, id string) (*repository.Unit, error) {
	return s.units.GetByID(ctx, id)
}

// ListUnits lists units, optionally filtered by inventory type
func (s *CatalogService) ListUnits(ctx context.Context, invType repository.InventoryType, includeInactive bool) ([]*repository.Unit, error) {
	if invType != "" && !invType.Valid() {
		return nil, errors.ValidationField("inventory_type", "unknown inventory type")
	}
	return s.units.List(ctx, invType, includeInactive)
}

// UpdateUnitInput carries the patchable unit fields. AllowsDecimal is
// immutable after creation: flipping it would retroactively invalidate
// quantities already recorded against the unit.
type UpdateUnitInput struct {
	DisplayName *string
	IsActive    *bool
}

// UpdateUnit patches a unit's name and active flag.
func (s *CatalogService) UpdateUnit(ctx context.Context, id string, in UpdateUnitInput) (*repository.Unit, error) {
	unit, err := s.units.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		if *in.DisplayName == "" {
			return nil, errors.ValidationField("display_name", "this field is required")
		}
		unit.DisplayName = *in.DisplayName
	}
	if in.IsActive != nil {
		unit.IsActive = *in.IsActive
	}

	if err := s.units.Update(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}
