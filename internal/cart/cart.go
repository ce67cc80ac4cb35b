package cart

import (
	"fmt"

	"pos-service/internal/catalog"
)

// LineItem is one product/quantity/price tuple within the order
type LineItem struct {
	ProductID   int64   `json:"product_id"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Total       float64 `json:"total"`
}

// UnavailableError rejects inactive products at add time
type UnavailableError struct {
	Description string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s is currently not available", e.Description)
}

// OutOfStockError rejects products with zero stock at add time
type OutOfStockError struct {
	Description string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%s is out of stock", e.Description)
}

// InvalidQuantityError rejects non-positive quantities
type InvalidQuantityError struct {
	Requested int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0, got %d", e.Requested)
}

// InsufficientStockError rejects an add that would push the order's quantity
// for a product past its current stock. It carries every quantity involved so
// the register can show them.
type InsufficientStockError struct {
	Description string
	Available   int
	InCart      int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cannot add %d of %s: available stock %d, already in cart %d, total needed %d (maximum you can add: %d)",
		e.Requested, e.Description, e.Available, e.InCart, e.InCart+e.Requested, e.Available-e.InCart)
}

// Cart is the in-memory order under construction. At most one line exists per
// product; adding the same product again merges into the existing line. The
// stock check here is advisory only - it validates against stock read at add
// time, checkout re-validates against fresh stock.
type Cart struct {
	lines []LineItem
}

// New creates an empty cart
func New() *Cart {
	return &Cart{lines: make([]LineItem, 0)}
}

// Quantity returns the quantity already in the cart for a product
func (c *Cart) Quantity(productID int64) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return c.lines[i].Quantity
		}
	}
	return 0
}

// Add validates and merges a product into the order. Precondition checks run
// in order and each is a hard stop: product active, stock above zero,
// requested quantity positive, and cart quantity plus requested within stock.
func (c *Cart) Add(item *catalog.Item, requested int) error {
	if !item.Active() {
		return &UnavailableError{Description: item.Description}
	}
	if item.Stock == 0 {
		return &OutOfStockError{Description: item.Description}
	}
	if requested <= 0 {
		return &InvalidQuantityError{Requested: requested}
	}

	inCart := c.Quantity(item.ID)
	if inCart+requested > item.Stock {
		return &InsufficientStockError{
			Description: item.Description,
			Available:   item.Stock,
			InCart:      inCart,
			Requested:   requested,
		}
	}

	for i := range c.lines {
		if c.lines[i].ProductID == item.ID {
			c.lines[i].Quantity += requested
			c.lines[i].Total = c.lines[i].UnitPrice * float64(c.lines[i].Quantity)
			return nil
		}
	}

	c.lines = append(c.lines, LineItem{
		ProductID:   item.ID,
		Description: item.Description,
		UnitPrice:   item.Price,
		Quantity:    requested,
		Total:       item.Price * float64(requested),
	})
	return nil
}

// RemoveSelected drops the given products from the order. Nothing was
// deducted yet, so there is no stock side effect.
func (c *Cart) RemoveSelected(productIDs ...int64) {
	if len(productIDs) == 0 {
		return
	}

	selected := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		selected[id] = true
	}

	kept := c.lines[:0]
	for _, line := range c.lines {
		if !selected[line.ProductID] {
			kept = append(kept, line)
		}
	}
	c.lines = kept
}

// Clear empties the order
func (c *Cart) Clear() {
	c.lines = c.lines[:0]
}

// Empty reports whether the order has no lines
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Len returns the number of lines
func (c *Cart) Len() int {
	return len(c.lines)
}

// GrandTotal sums all line totals
func (c *Cart) GrandTotal() float64 {
	var total float64
	for i := range c.lines {
		total += c.lines[i].Total
	}
	return total
}

// Lines returns a copy of the order lines in insertion order
func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}
