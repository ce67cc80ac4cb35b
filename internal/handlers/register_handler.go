package handlers

import (
	"net/http"

	"pos-service/internal/cart"
	"pos-service/internal/catalog"
	"pos-service/internal/checkout"
	"pos-service/internal/receipt"
	"pos-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderView is the current order as shown on the register
type OrderView struct {
	Lines      []cart.LineItem `json:"lines"`
	GrandTotal float64         `json:"grand_total"`
	State      string          `json:"state"`
}

// TotalsView is the priced order at payment entry
type TotalsView struct {
	checkout.Totals
	State string `json:"state"`
}

// ReceiptLine is one item row on the receipt response
type ReceiptLine struct {
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Total       float64 `json:"total"`
}

// ReceiptView is the committed sale as returned to the register
type ReceiptView struct {
	InvoiceNo  int64         `json:"invoice_no"`
	IssuedAt   string        `json:"issued_at"`
	Lines      []ReceiptLine `json:"lines"`
	Subtotal   float64       `json:"subtotal"`
	VATRate    float64       `json:"vat_rate"`
	VAT        float64       `json:"vat"`
	GrandTotal float64       `json:"grand_total"`
	Tendered   float64       `json:"tendered"`
	Change     float64       `json:"change"`
}

// RegisterHandler serves the order and checkout flow for the single register
type RegisterHandler struct {
	session *RegisterSession
	catalog *catalog.Service
	logger  *zap.Logger
}

// NewRegisterHandler creates a register handler
func NewRegisterHandler(session *RegisterSession, cat *catalog.Service, logger *zap.Logger) *RegisterHandler {
	return &RegisterHandler{
		session: session,
		catalog: cat,
		logger:  logger,
	}
}

func orderView(order *cart.Cart, co *checkout.Checkout) OrderView {
	return OrderView{
		Lines:      order.Lines(),
		GrandTotal: order.GrandTotal(),
		State:      co.State().String(),
	}
}

// NewOrder handles POST /api/v1/order
// @Summary      Start a fresh order
// @Description  Discards the current order and any pending checkout.
// @Tags         order
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  OrderView
// @Router       /order [post]
func (h *RegisterHandler) NewOrder(c *gin.Context) {
	h.session.Reset()

	h.session.mu.Lock()
	view := orderView(h.session.order, h.session.checkout)
	h.session.mu.Unlock()

	c.JSON(http.StatusOK, view)
}

// GetOrder handles GET /api/v1/order
// @Summary      Show the current order
// @Tags         order
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  OrderView
// @Router       /order [get]
func (h *RegisterHandler) GetOrder(c *gin.Context) {
	h.session.mu.Lock()
	view := orderView(h.session.order, h.session.checkout)
	h.session.mu.Unlock()

	c.JSON(http.StatusOK, view)
}

// AddItem handles POST /api/v1/order/items
// @Summary      Add a product to the order
// @Description  Validates in order: product active, stock above zero, quantity positive, order quantity within stock. Adding a product already in the order merges quantities.
// @Tags         order
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      AddItemRequest  true  "Product and quantity"
// @Success      200      {object}  OrderView
// @Failure      400      {object}  ErrorResponse  "Non-positive quantity"
// @Failure      404      {object}  ErrorResponse  "Unknown product"
// @Failure      409      {object}  ErrorResponse  "Unavailable, out of stock or insufficient stock"
// @Router       /order/items [post]
func (h *RegisterHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid order item request", err.Error()))
		return
	}

	// Fresh read so the stock check sees the latest level
	item, err := h.catalog.Get(c.Request.Context(), req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.session.mu.Lock()
	defer h.session.mu.Unlock()

	if h.session.checkout.State() != checkout.StateInvoice {
		respondError(c, checkout.ErrInvalidState)
		return
	}

	if err := h.session.order.Add(item, req.Quantity); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Item added to order",
		zap.Int64("product_id", item.ID),
		zap.String("description", item.Description),
		zap.Int("quantity", req.Quantity),
	)
	c.JSON(http.StatusOK, orderView(h.session.order, h.session.checkout))
}

// RemoveItems handles DELETE /api/v1/order/items
// @Summary      Remove selected products from the order
// @Tags         order
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      RemoveItemsRequest  true  "Product ids to remove"
// @Success      200      {object}  OrderView
// @Router       /order/items [delete]
func (h *RegisterHandler) RemoveItems(c *gin.Context) {
	var req RemoveItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid remove request", err.Error()))
		return
	}

	h.session.mu.Lock()
	defer h.session.mu.Unlock()

	if h.session.checkout.State() != checkout.StateInvoice {
		respondError(c, checkout.ErrInvalidState)
		return
	}

	h.session.order.RemoveSelected(req.ProductIDs...)
	c.JSON(http.StatusOK, orderView(h.session.order, h.session.checkout))
}

// ClearOrder handles DELETE /api/v1/order
// @Summary      Empty the current order
// @Tags         order
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  OrderView
// @Router       /order [delete]
func (h *RegisterHandler) ClearOrder(c *gin.Context) {
	h.session.mu.Lock()
	defer h.session.mu.Unlock()

	if h.session.checkout.State() != checkout.StateInvoice {
		respondError(c, checkout.ErrInvalidState)
		return
	}

	h.session.order.Clear()
	c.JSON(http.StatusOK, orderView(h.session.order, h.session.checkout))
}

// BeginCheckout handles POST /api/v1/checkout
// @Summary      Fix the order totals and enter payment
// @Description  Applies flat VAT on top of the line subtotal and moves the register to payment entry.
// @Tags         checkout
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  TotalsView
// @Failure      409  {object}  ErrorResponse  "Empty order or wrong state"
// @Router       /checkout [post]
func (h *RegisterHandler) BeginCheckout(c *gin.Context) {
	h.session.mu.Lock()
	defer h.session.mu.Unlock()

	totals, err := h.session.checkout.Begin(h.session.order)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TotalsView{Totals: totals, State: h.session.checkout.State().String()})
}

// BackToOrder handles POST /api/v1/checkout/back
// @Summary      Leave payment entry, keep the order
// @Tags         checkout
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  OrderView
// @Failure      409  {object}  ErrorResponse  "Not in payment entry"
// @Router       /checkout/back [post]
func (h *RegisterHandler) BackToOrder(c *gin.Context) {
	h.session.mu.Lock()
	defer h.session.mu.Unlock()

	if err := h.session.checkout.Back(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderView(h.session.order, h.session.checkout))
}

// CancelCheckout handles POST /api/v1/checkout/cancel
// @Summary      Abandon the sale
// @Description  Discards the pending checkout and the order. Use /checkout/back to keep the order and re-enter it.
// @Tags         checkout
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  OrderView
// @Router       /checkout/cancel [post]
func (h *RegisterHandler) CancelCheckout(c *gin.Context) {
	h.session.Reset()

	h.session.mu.Lock()
	view := orderView(h.session.order, h.session.checkout)
	h.session.mu.Unlock()

	c.JSON(http.StatusOK, view)
}

// ConfirmPayment handles POST /api/v1/checkout/confirm
// @Summary      Confirm payment and commit the sale
// @Description  Parses the tendered amount, checks it covers the total, re-validates stock for every line and commits deduction and ledger append atomically. Any rejection leaves stock and ledger untouched.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ConfirmPaymentRequest  true  "Tendered amount"
// @Success      200      {object}  ReceiptView
// @Failure      400      {object}  ErrorResponse  "Unparseable amount"
// @Failure      409      {object}  ErrorResponse  "Insufficient payment or stock"
// @Router       /checkout/confirm [post]
func (h *RegisterHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid payment request", err.Error()))
		return
	}

	h.session.mu.Lock()
	defer h.session.mu.Unlock()

	r, err := h.session.checkout.ConfirmPayment(c.Request.Context(), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	// The sale is done; arm the session for the next one
	h.session.order = cart.New()
	h.session.checkout = h.session.newCheckout()

	// The commit deducted stock, so cached catalog views are stale
	h.catalog.Invalidate(c.Request.Context())

	c.JSON(http.StatusOK, receiptView(r))
}

func receiptView(r *receipt.Receipt) ReceiptView {
	view := ReceiptView{
		InvoiceNo:  r.InvoiceNo,
		IssuedAt:   r.IssuedAt.Format("2006-01-02T15:04:05Z07:00"),
		Subtotal:   r.Subtotal,
		VATRate:    r.VATRate,
		VAT:        r.VAT,
		GrandTotal: r.GrandTotal,
		Tendered:   r.Tendered,
		Change:     r.Change,
	}
	for _, line := range r.Lines {
		view.Lines = append(view.Lines, ReceiptLine{
			Description: line.Description,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Total:       line.Total,
		})
	}
	return view
}
