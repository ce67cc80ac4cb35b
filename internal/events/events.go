package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventPublisher publishes register events
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// Now returns the event timestamp clock
func Now() time.Time {
	return time.Now().UTC()
}

// SaleCompletedEvent is emitted after a checkout commits
type SaleCompletedEvent struct {
	InvoiceNo  int64           `json:"invoice_no"`
	SaleDate   string          `json:"sale_date"`
	Lines      []SaleEventLine `json:"lines"`
	Subtotal   float64         `json:"subtotal"`
	VAT        float64         `json:"vat"`
	GrandTotal float64         `json:"grand_total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// SaleEventLine is one line item inside a SaleCompletedEvent
type SaleEventLine struct {
	ProductID int64   `json:"product_id"`
	Product   string  `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
	Category  string  `json:"category"`
}

// StockAdjustedEvent is emitted on any stock mutation outside checkout
type StockAdjustedEvent struct {
	ProductID  int64     `json:"product_id"`
	Delta      int       `json:"delta"`
	Reason     string    `json:"reason"` // set, deduct, replenish
	OccurredAt time.Time `json:"occurred_at"`
}

// InMemoryEventPublisher keeps events in memory. Used when Kafka is disabled
// or unreachable, and by tests to observe published events.
type InMemoryEventPublisher struct {
	mu     sync.Mutex
	events []interface{}
	logger *zap.Logger
}

// NewInMemoryEventPublisher creates an in-memory publisher
func NewInMemoryEventPublisher(logger *zap.Logger) *InMemoryEventPublisher {
	return &InMemoryEventPublisher{
		events: make([]interface{}, 0),
		logger: logger,
	}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
	p.logger.Debug("Event recorded in memory", zap.Any("event", event))
	return nil
}

// Events returns a snapshot of everything published so far
func (p *InMemoryEventPublisher) Events() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]interface{}, len(p.events))
	copy(out, p.events)
	return out
}
