package events

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

// LotEventPublisher publishes lot ledger events
type LotEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewLotEventPublisher creates a new lot event publisher
func NewLotEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*LotEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeLotEvents, "lot-service", log)
	if err != nil {
		return nil, err
	}

	return &LotEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

func (p *LotEventPublisher) publishLot(ctx context.Context, eventType string, lot *repository.Lot, performedBy string) {
	if p == nil {
		return
	}

	data := messaging.LotEvent{
		LotID:         lot.ID,
		LotCode:       lot.LotCode,
		InventoryType: string(lot.InventoryType),
		Name:          lot.Name,
		PerformedBy:   performedBy,
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", lot.ID).Str("event_type", eventType).Msg("failed to publish lot event")
	}
}

// PublishLotCreated publishes a lot created event
func (p *LotEventPublisher) PublishLotCreated(ctx context.Context, lot *repository.Lot) {
	p.publishLot(ctx, messaging.EventLotCreated, lot, lot.CreatedBy)
}

// PublishLotUpdated publishes a lot updated event
func (p *LotEventPublisher) PublishLotUpdated(ctx context.Context, lot *repository.Lot) {
	p.publishLot(ctx, messaging.EventLotUpdated, lot, lot.UpdatedBy)
}

// PublishLotArchived publishes a lot archived event
func (p *LotEventPublisher) PublishLotArchived(ctx context.Context, lot *repository.Lot) {
	p.publishLot(ctx, messaging.EventLotArchived, lot, lot.UpdatedBy)
}

// PublishLotUnarchived publishes a lot unarchived event
func (p *LotEventPublisher) PublishLotUnarchived(ctx context.Context, lot *repository.Lot) {
	p.publishLot(ctx, messaging.EventLotUnarchived, lot, lot.UpdatedBy)
}

// PublishLotDeleted publishes a lot deleted event
func (p *LotEventPublisher) PublishLotDeleted(ctx context.Context, lot *repository.Lot, performedBy string) {
	p.publishLot(ctx, messaging.EventLotDeleted, lot, performedBy)
}

// PublishMovementRecorded publishes a movement recorded event
func (p *LotEventPublisher) PublishMovementRecorded(ctx context.Context, m *repository.Movement, newBalance decimal.Decimal) {
	if p == nil {
		return
	}

	data := messaging.MovementRecordedEvent{
		MovementID:   m.ID,
		LotID:        m.LotID,
		Kind:         string(m.Kind),
		Quantity:     m.Quantity.String(),
		MovementDate: m.MovementDate.Format("2006-01-02"),
		NewBalance:   newBalance.String(),
		PerformedBy:  m.RecordedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventMovementRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", m.LotID).Msg("failed to publish movement recorded event")
	}
}

// PublishStockAlert publishes a low/out-of-stock alert event
func (p *LotEventPublisher) PublishStockAlert(ctx context.Context, alertType string, lot *repository.Lot, balance, threshold decimal.Decimal) {
	if p == nil {
		return
	}

	data := messaging.StockAlertEvent{
		AlertType:     alertType,
		LotID:         lot.ID,
		LotCode:       lot.LotCode,
		InventoryType: string(lot.InventoryType),
		Balance:       balance.String(),
		Threshold:     threshold.String(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockAlert, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", lot.ID).Msg("failed to publish stock alert event")
	}
}
