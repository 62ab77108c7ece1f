package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Lot lifecycle events
	EventLotCreated    = "lots.lot.created"
	EventLotUpdated    = "lots.lot.updated"
	EventLotArchived   = "lots.lot.archived"
	EventLotUnarchived = "lots.lot.unarchived"
	EventLotDeleted    = "lots.lot.deleted"

	// Movement events
	EventMovementRecorded = "lots.movement.recorded"

	// Stock alert events
	EventStockAlert = "lots.stock.alert"
)

// Exchange names
const (
	ExchangeLotEvents = "lots.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// LotEvent is the payload for lot lifecycle events
type LotEvent struct {
	LotID         string `json:"lot_id"`
	LotCode       string `json:"lot_code"`
	InventoryType string `json:"inventory_type"`
	Name          string `json:"name"`
	PerformedBy   string `json:"performed_by"`
}

// MovementRecordedEvent is the payload for movement events
type MovementRecordedEvent struct {
	MovementID   string `json:"movement_id"`
	LotID        string `json:"lot_id"`
	Kind         string `json:"kind"`
	Quantity     string `json:"quantity"`
	MovementDate string `json:"movement_date"`
	NewBalance   string `json:"new_balance"`
	PerformedBy  string `json:"performed_by"`
}

// StockAlertEvent is the payload for low/out-of-stock alerts
type StockAlertEvent struct {
	AlertType     string `json:"alert_type"` // low_stock or out_of_stock
	LotID         string `json:"lot_id"`
	LotCode       string `json:"lot_code"`
	InventoryType string `json:"inventory_type"`
	Balance       string `json:"balance"`
	Threshold     string `json:"threshold"`
}
