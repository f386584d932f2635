package events

import (
	"context"
	"time"

	"straus/internal/domain"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	// Event types, also used as routing keys
	EventTypeOrderCreated = "order.created"
	EventTypeOrderUpdated = "order.updated"
	EventTypeOrderDeleted = "order.deleted"

	eventVersion = "1.0.0"
)

// Publisher delivers order events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	IsHealthy() bool
	Close() error
}

// Event represents a domain event
type Event struct {
	EventID       string       `json:"event_id"`
	EventType     string       `json:"event_type"`
	EventVersion  string       `json:"event_version"`
	Timestamp     string       `json:"timestamp"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	Payload       OrderPayload `json:"payload"`
}

// OrderPayload is the committed state of the order the event is about
type OrderPayload struct {
	OrderID      int64   `json:"order_id"`
	CustomerName string  `json:"customer_name,omitempty"`
	TotalAmount  string  `json:"total_amount"`
	ProductIDs   []int64 `json:"product_ids"`
}

// NewOrderEvent builds an event for order. The request id, when present,
// becomes the correlation id.
func NewOrderEvent(ctx context.Context, eventType string, order *domain.Order) Event {
	event := Event{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		EventVersion: eventVersion,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Payload: OrderPayload{
			OrderID:      order.ID,
			CustomerName: order.CustomerName,
			TotalAmount:  order.TotalAmount.StringFixed(2),
			ProductIDs:   order.ProductIDs(),
		},
	}

	if reqID := chimw.GetReqID(ctx); reqID != "" {
		event.CorrelationID = reqID
	}

	return event
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) IsHealthy() bool                      { return true }
func (NopPublisher) Close() error                         { return nil }
