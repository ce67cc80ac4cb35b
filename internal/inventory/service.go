package inventory

import (
	"context"
	"fmt"

	"pos-service/internal/database"
	"pos-service/internal/events"

	"go.uber.org/zap"
)

// Service is the inventory store accessor. Stock rows are created lazily at
// DefaultStock on first read and capped at MaxStock on replenishment.
type Service struct {
	db           *database.SingleWriterDB
	logger       *zap.Logger
	eventBus     events.EventPublisher
	defaultStock int
	maxStock     int
}

// NewService creates an inventory service
func NewService(db *database.SingleWriterDB, eventBus events.EventPublisher, logger *zap.Logger, defaultStock, maxStock int) *Service {
	return &Service{
		db:           db,
		logger:       logger,
		eventBus:     eventBus,
		defaultStock: defaultStock,
		maxStock:     maxStock,
	}
}

// DefaultStock returns the initial stock assigned to never-seen products
func (s *Service) DefaultStock() int {
	return s.defaultStock
}

// MaxStock returns the replenishment ceiling
func (s *Service) MaxStock() int {
	return s.maxStock
}

// GetStock returns the current stock for a product, creating the stock row at
// the default capacity on first read. Store failures degrade to zero stock so
// callers treat the product as out of stock rather than aborting the flow.
func (s *Service) GetStock(ctx context.Context, productID int64) int {
	stock, found, err := s.db.GetStock(ctx, productID)
	if err != nil {
		s.logger.Error("Failed to read stock, treating as out of stock",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return 0
	}
	if found {
		return stock
	}

	// First read of this product: create the default stock row
	if err := s.db.UpsertStock(ctx, productID, s.defaultStock); err != nil {
		s.logger.Error("Failed to create default stock row",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return 0
	}

	s.logger.Info("Created default stock row",
		zap.Int64("product_id", productID),
		zap.Int("stock", s.defaultStock),
	)
	return s.defaultStock
}

// SetStock upserts the stock value for a product. Returns false on store failure.
func (s *Service) SetStock(ctx context.Context, productID int64, stock int) bool {
	if err := s.db.UpsertStock(ctx, productID, stock); err != nil {
		s.logger.Error("Failed to set stock",
			zap.Int64("product_id", productID),
			zap.Int("stock", stock),
			zap.Error(err),
		)
		return false
	}

	s.publishAdjustment(ctx, productID, stock, "set")
	return true
}

// DeductStock decrements stock if the product has at least the requested
// quantity; otherwise it fails without mutating. Checkout commits go through
// the transactional path instead, so this remains for the advisory,
// one-product call sites.
func (s *Service) DeductStock(ctx context.Context, productID int64, quantity int) bool {
	if err := s.db.DeductStock(ctx, productID, quantity); err != nil {
		s.logger.Warn("Stock deduction rejected",
			zap.Int64("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return false
	}

	s.publishAdjustment(ctx, productID, -quantity, "deduct")
	return true
}

// ReplenishError is returned when a replenishment request cannot be honored
type ReplenishError struct {
	Reason  string
	Current int
	Adding  int
	Maximum int
}

func (e *ReplenishError) Error() string {
	switch e.Reason {
	case "full":
		return fmt.Sprintf("stock is full: current %d, maximum %d", e.Current, e.Maximum)
	case "overflow":
		return fmt.Sprintf("cannot add %d items: current %d, would result in %d, maximum allowed %d (space available: %d)",
			e.Adding, e.Current, e.Current+e.Adding, e.Maximum, e.Maximum-e.Current)
	default:
		return fmt.Sprintf("quantity to add must be greater than 0, got %d", e.Adding)
	}
}

// AddStock replenishes a product, capped at the maximum capacity. The error
// message carries the quantities involved so the register can show them.
func (s *Service) AddStock(ctx context.Context, productID int64, quantity int) (int, error) {
	current := s.GetStock(ctx, productID)

	if quantity <= 0 {
		return current, &ReplenishError{Reason: "invalid", Current: current, Adding: quantity, Maximum: s.maxStock}
	}
	if current >= s.maxStock {
		return current, &ReplenishError{Reason: "full", Current: current, Adding: quantity, Maximum: s.maxStock}
	}
	newStock := current + quantity
	if newStock > s.maxStock {
		return current, &ReplenishError{Reason: "overflow", Current: current, Adding: quantity, Maximum: s.maxStock}
	}

	if err := s.db.UpsertStock(ctx, productID, newStock); err != nil {
		return current, fmt.Errorf("failed to replenish stock: %w", err)
	}

	s.publishAdjustment(ctx, productID, quantity, "replenish")
	return newStock, nil
}

func (s *Service) publishAdjustment(ctx context.Context, productID int64, delta int, reason string) {
	if s.eventBus == nil {
		return
	}
	event := events.StockAdjustedEvent{
		ProductID:  productID,
		Delta:      delta,
		Reason:     reason,
		OccurredAt: events.Now(),
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish stock event",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
	}
}
