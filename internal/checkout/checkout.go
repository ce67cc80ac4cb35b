package checkout

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pos-service/internal/cart"
	"pos-service/internal/database"
	"pos-service/internal/events"
	"pos-service/internal/inventory"
	"pos-service/internal/ledger"
	"pos-service/internal/receipt"

	"go.uber.org/zap"
)

// State is the checkout flow position
type State int

const (
	// StateInvoice: building the order, no payment pending
	StateInvoice State = iota
	// StatePaymentEntry: totals fixed, waiting for tendered amount
	StatePaymentEntry
	// StateReceipt: payment accepted, sale committed
	StateReceipt
)

func (s State) String() string {
	switch s {
	case StateInvoice:
		return "invoice"
	case StatePaymentEntry:
		return "payment_entry"
	case StateReceipt:
		return "receipt"
	default:
		return "unknown"
	}
}

// Errors surfaced to the register
var (
	ErrEmptyOrder    = fmt.Errorf("order has no items")
	ErrInvalidAmount = fmt.Errorf("tendered amount is not a valid number")
	ErrInvalidState  = fmt.Errorf("operation not allowed in current checkout state")
)

// InsufficientPaymentError rejects a tendered amount below the grand total
type InsufficientPaymentError struct {
	Tendered float64
	Required float64
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: tendered %.2f, required %.2f (short by %.2f)",
		e.Tendered, e.Required, e.Required-e.Tendered)
}

// Shortfall is one order line whose fresh stock no longer covers it
type Shortfall struct {
	ProductID   int64  `json:"product_id"`
	Description string `json:"description"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
}

// StockShortfallError aborts a payment when stock moved under the order. It
// lists every offending line, not just the first.
type StockShortfallError struct {
	Shortfalls []Shortfall
}

func (e *StockShortfallError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s (available %d, requested %d)", s.Description, s.Available, s.Requested))
	}
	return "insufficient stock for: " + strings.Join(parts, "; ")
}

// Totals is the priced order at payment time
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	VATRate    float64 `json:"vat_rate"`
	VAT        float64 `json:"vat"`
	GrandTotal float64 `json:"grand_total"`
}

// Checkout drives one order from invoice through payment to receipt. It is a
// plain state machine with no transport concerns; the HTTP layer calls into
// it and maps its errors.
type Checkout struct {
	db        *database.SingleWriterDB
	inventory *inventory.Service
	ledger    *ledger.Service
	emitter   receipt.Emitter
	eventBus  events.EventPublisher
	logger    *zap.Logger
	vatRate   float64

	state   State
	order   *cart.Cart
	totals  Totals
	receipt *receipt.Receipt
}

// New creates a checkout in the invoice state
func New(db *database.SingleWriterDB, inv *inventory.Service, led *ledger.Service, emitter receipt.Emitter, eventBus events.EventPublisher, vatRate float64, logger *zap.Logger) *Checkout {
	return &Checkout{
		db:        db,
		inventory: inv,
		ledger:    led,
		emitter:   emitter,
		eventBus:  eventBus,
		logger:    logger,
		vatRate:   vatRate,
		state:     StateInvoice,
	}
}

// State returns the current flow position
func (c *Checkout) State() State {
	return c.state
}

// Totals returns the priced order. Valid after Begin.
func (c *Checkout) Totals() Totals {
	return c.totals
}

// Receipt returns the committed receipt. Valid in StateReceipt.
func (c *Checkout) Receipt() *receipt.Receipt {
	return c.receipt
}

// Begin fixes the order totals and moves to payment entry. VAT is applied
// flat on top of the line subtotal.
func (c *Checkout) Begin(order *cart.Cart) (Totals, error) {
	if c.state != StateInvoice {
		return Totals{}, ErrInvalidState
	}
	if order == nil || order.Empty() {
		return Totals{}, ErrEmptyOrder
	}

	subtotal := order.GrandTotal()
	vat := roundCents(subtotal * c.vatRate)

	c.order = order
	c.totals = Totals{
		Subtotal:   roundCents(subtotal),
		VATRate:    c.vatRate,
		VAT:        vat,
		GrandTotal: roundCents(subtotal + vat),
	}
	c.state = StatePaymentEntry
	return c.totals, nil
}

// Back abandons payment entry and returns to the invoice. The order is kept.
func (c *Checkout) Back() error {
	if c.state != StatePaymentEntry {
		return ErrInvalidState
	}
	c.state = StateInvoice
	return nil
}

// ConfirmPayment runs the payment steps in strict order: parse the tendered
// amount, check it covers the total, re-validate every line against fresh
// stock, then commit. Any rejection leaves stock and ledger untouched.
func (c *Checkout) ConfirmPayment(ctx context.Context, tendered string) (*receipt.Receipt, error) {
	if c.state != StatePaymentEntry {
		return nil, ErrInvalidState
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(tendered), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, ErrInvalidAmount
	}

	if amount < c.totals.GrandTotal {
		return nil, &InsufficientPaymentError{Tendered: amount, Required: c.totals.GrandTotal}
	}

	// Stock may have moved since the lines were added. Re-validate every
	// line and report all shortfalls together.
	lines := c.order.Lines()
	var shortfalls []Shortfall
	for _, line := range lines {
		available := c.inventory.GetStock(ctx, line.ProductID)
		if available < line.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				ProductID:   line.ProductID,
				Description: line.Description,
				Available:   available,
				Requested:   line.Quantity,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, &StockShortfallError{Shortfalls: shortfalls}
	}

	now := time.Now().UTC()
	saleDate := now.Format("2006-01-02")

	saleLines := make([]database.SaleLine, 0, len(lines))
	for _, line := range lines {
		saleLines = append(saleLines, database.SaleLine{
			ProductID:   line.ProductID,
			Description: line.Description,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Total:       line.Total,
		})
	}

	invoiceNo, rows, err := c.db.CommitSale(ctx, saleDate, saleLines)
	if err != nil {
		c.logger.Error("Checkout commit failed", zap.Error(err))
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	c.ledger.Append(rows)

	r := &receipt.Receipt{
		InvoiceNo:  invoiceNo,
		IssuedAt:   now,
		Subtotal:   c.totals.Subtotal,
		VATRate:    c.totals.VATRate,
		VAT:        c.totals.VAT,
		GrandTotal: c.totals.GrandTotal,
		Tendered:   amount,
		Change:     roundCents(amount - c.totals.GrandTotal),
	}
	for _, line := range lines {
		r.Lines = append(r.Lines, receipt.Line{
			Description: line.Description,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Total:       line.Total,
		})
	}

	// Receipt rendering failures do not unwind the committed sale
	if _, err := c.emitter.Emit(r); err != nil {
		c.logger.Error("Failed to render receipt",
			zap.Int64("invoice_no", invoiceNo),
			zap.Error(err),
		)
	}

	c.publishSale(ctx, invoiceNo, saleDate, rows)

	c.order.Clear()
	c.receipt = r
	c.state = StateReceipt

	c.logger.Info("Sale committed",
		zap.Int64("invoice_no", invoiceNo),
		zap.Int("lines", len(rows)),
		zap.Float64("grand_total", c.totals.GrandTotal),
	)
	return r, nil
}

func (c *Checkout) publishSale(ctx context.Context, invoiceNo int64, saleDate string, rows []database.SaleRow) {
	if c.eventBus == nil {
		return
	}

	event := events.SaleCompletedEvent{
		InvoiceNo:  invoiceNo,
		SaleDate:   saleDate,
		Subtotal:   c.totals.Subtotal,
		VAT:        c.totals.VAT,
		GrandTotal: c.totals.GrandTotal,
		OccurredAt: events.Now(),
	}
	for _, row := range rows {
		event.Lines = append(event.Lines, events.SaleEventLine{
			ProductID: row.ProductID,
			Product:   row.Product,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			Total:     row.Total,
			Category:  row.Category,
		})
	}

	if err := c.eventBus.Publish(ctx, event); err != nil {
		c.logger.Warn("Failed to publish sale event",
			zap.Int64("invoice_no", invoiceNo),
			zap.Error(err),
		)
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
