package checkout

import (
	"context"
	"path/filepath"
	"testing"

	"pos-service/internal/cart"
	"pos-service/internal/catalog"
	"pos-service/internal/config"
	"pos-service/internal/database"
	"pos-service/internal/events"
	"pos-service/internal/inventory"
	"pos-service/internal/ledger"
	"pos-service/internal/receipt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testRegister struct {
	db        *database.SingleWriterDB
	inventory *inventory.Service
	ledger    *ledger.Service
	bus       *events.InMemoryEventPublisher
}

func newTestRegister(t *testing.T) *testRegister {
	t.Helper()

	cfg := &config.Config{SQLitePath: filepath.Join(t.TempDir(), "checkout_test.db")}
	db, err := database.NewSingleWriterDB(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewInMemoryEventPublisher(zap.NewNop())
	return &testRegister{
		db:        db,
		inventory: inventory.NewService(db, bus, zap.NewNop(), 100, 100),
		ledger:    ledger.NewService(db, zap.NewNop()),
		bus:       bus,
	}
}

func (r *testRegister) newCheckout() *Checkout {
	return New(r.db, r.inventory, r.ledger, receipt.NopEmitter{}, r.bus, 0.12, zap.NewNop())
}

func (r *testRegister) createProduct(t *testing.T, description string, price float64, stock int) *catalog.Item {
	t.Helper()

	id, err := r.db.CreateProduct(context.Background(), &database.Product{
		Description: description,
		Price:       price,
		Category:    "LIPSTICK",
		Status:      "Active",
	})
	require.NoError(t, err)
	require.NoError(t, r.db.UpsertStock(context.Background(), id, stock))

	return &catalog.Item{
		ID:          id,
		Description: description,
		Price:       price,
		Category:    "LIPSTICK",
		Status:      "Active",
		Stock:       stock,
	}
}

func TestBegin_ComputesTotalsWithVAT(t *testing.T) {
	r := newTestRegister(t)
	item := r.createProduct(t, "Velvet Lipstick", 199.0, 10)

	order := cart.New()
	require.NoError(t, order.Add(item, 3))

	co := r.newCheckout()
	totals, err := co.Begin(order)

	require.NoError(t, err)
	assert.Equal(t, 597.0, totals.Subtotal)
	assert.Equal(t, 0.12, totals.VATRate)
	assert.Equal(t, 71.64, totals.VAT)
	assert.Equal(t, 668.64, totals.GrandTotal)
	assert.Equal(t, StatePaymentEntry, co.State())
}

func TestBegin_Error_EmptyOrder(t *testing.T) {
	r := newTestRegister(t)
	co := r.newCheckout()

	_, err := co.Begin(cart.New())

	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Equal(t, StateInvoice, co.State())
}

func TestBack_ReturnsToInvoice(t *testing.T) {
	r := newTestRegister(t)
	item := r.createProduct(t, "Velvet Lipstick", 199.0, 10)
	order := cart.New()
	require.NoError(t, order.Add(item, 1))

	co := r.newCheckout()
	_, err := co.Begin(order)
	require.NoError(t, err)

	require.NoError(t, co.Back())
	assert.Equal(t, StateInvoice, co.State())

	// The order survives the round trip
	assert.Equal(t, 1, order.Len())
}

func TestConfirmPayment_Error_OutsidePaymentEntry(t *testing.T) {
	r := newTestRegister(t)
	co := r.newCheckout()

	_, err := co.ConfirmPayment(context.Background(), "100")

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmPayment_Error_UnparseableAmount(t *testing.T) {
	r := newTestRegister(t)
	item := r.createProduct(t, "Velvet Lipstick", 199.0, 10)
	order := cart.New()
	require.NoError(t, order.Add(item, 1))

	co := r.newCheckout()
	_, err := co.Begin(order)
	require.NoError(t, err)

	_, err = co.ConfirmPayment(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = co.ConfirmPayment(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// Negative tender is malformed input, not an underpayment
	_, err = co.ConfirmPayment(context.Background(), "-5")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// Still in payment entry, nothing committed
	assert.Equal(t, StatePaymentEntry, co.State())
	assert.Empty(t, r.ledger.All())
}

func TestConfirmPayment_Error_InsufficientPayment(t *testing.T) {
	r := newTestRegister(t)
	item := r.createProduct(t, "Velvet Lipstick", 199.0, 10)
	order := cart.New()
	require.NoError(t, order.Add(item, 3))

	co := r.newCheckout()
	_, err := co.Begin(order)
	require.NoError(t, err)

	_, err = co.ConfirmPayment(context.Background(), "600")

	var underpaid *InsufficientPaymentError
	require.ErrorAs(t, err, &underpaid)
	assert.Equal(t, 600.0, underpaid.Tendered)
	assert.Equal(t, 668.64, underpaid.Required)

	// Stock and ledger untouched, order intact, still in payment entry
	assert.Equal(t, 10, r.inventory.GetStock(context.Background(), item.ID))
	assert.Empty(t, r.ledger.All())
	assert.Equal(t, 1, order.Len())
	assert.Equal(t, StatePaymentEntry, co.State())
}

func TestConfirmPayment_Success(t *testing.T) {
	r := newTestRegister(t)
	ctx := context.Background()
	item := r.createProduct(t, "Velvet Lipstick", 199.0, 5)

	order := cart.New()
	require.NoError(t, order.Add(item, 3))

	co := r.newCheckout()
	_, err := co.Begin(order)
	require.NoError(t, err)

	rcpt, err := co.ConfirmPayment(ctx, "700")
	require.NoError(t, err)

	assert.Equal(t, StateReceipt, co.State())
	assert.Equal(t, int64(100000), rcpt.InvoiceNo)
	assert.Equal(t, 597.0, rcpt.Subtotal)
	assert.Equal(t, 71.64, rcpt.VAT)
	assert.Equal(t, 668.64, rcpt.GrandTotal)
	assert.Equal(t, 700.0, rcpt.Tendered)
	assert.Equal(t, 31.36, rcpt.Change)
	require.Len(t, rcpt.Lines, 1)
	assert.Equal(t, 3, rcpt.Lines[0].Quantity)

	// Stock deducted exactly, ledger appended, order cleared
	assert.Equal(t, 2, r.inventory.GetStock(ctx, item.ID))
	require.Len(t, r.ledger.All(), 1)
	assert.Equal(t, "Velvet Lipstick", r.ledger.All()[0].Product)
	assert.True(t, order.Empty())
}

func TestConfirmPayment_ExactAmount_ZeroChange(t *testing.T) {
	r := newTestRegister(t)
	item := r.createProduct(t, "Velvet Lipstick", 199.0, 10)
	order := cart.New()
	require.NoError(t, order.Add(item, 3))

	co := r.newCheckout()
	_, err := co.Begin(order)
	require.NoError(t, err)

	rcpt, err := co.ConfirmPayment(context.Background(), "668.64")

	require.NoError(t, err)
	assert.Equal(t, 0.0, rcpt.Change)
}

func TestConfirmPayment_Error_StockDroppedSinceAdd(t *testing.T) {
	r := newTestRegister(t)
	ctx := context.Background()
	lipstick := r.createProduct(t, "Velvet Lipstick", 199.0, 5)
	blush := r.createProduct(t, "Silk Blush", 149.0, 5)

	order := cart.New()
	require.NoError(t, order.Add(lipstick, 3))
	require.NoError(t, order.Add(blush, 2))

	co := r.newCheckout()
	_, err := co.Begin(order)
	require.NoError(t, err)

	// Both products sell down behind the order's back
	require.NoError(t, r.db.UpsertStock(ctx, lipstick.ID, 1))
	require.NoError(t, r.db.UpsertStock(ctx, blush.ID, 0))

	_, err = co.ConfirmPayment(ctx, "2000")

	var shortfall *StockShortfallError
	require.ErrorAs(t, err, &shortfall)
	require.Len(t, shortfall.Shortfalls, 2)
	assert.Equal(t, "Velvet Lipstick", shortfall.Shortfalls[0].Description)
	assert.Equal(t, 1, shortfall.Shortfalls[0].Available)
	assert.Equal(t, 3, shortfall.Shortfalls[0].Requested)
	assert.Equal(t, "Silk Blush", shortfall.Shortfalls[1].Description)

	// Nothing committed
	assert.Equal(t, 1, r.inventory.GetStock(ctx, lipstick.ID))
	assert.Empty(t, r.ledger.All())
	assert.Equal(t, StatePaymentEntry, co.State())
}

func TestConfirmPayment_PublishesSaleEvent(t *testing.T) {
	r := newTestRegister(t)
	item := r.createProduct(t, "Velvet Lipstick", 199.0, 10)
	order := cart.New()
	require.NoError(t, order.Add(item, 2))

	co := r.newCheckout()
	_, err := co.Begin(order)
	require.NoError(t, err)

	_, err = co.ConfirmPayment(context.Background(), "500")
	require.NoError(t, err)

	var sale *events.SaleCompletedEvent
	for _, e := range r.bus.Events() {
		if s, ok := e.(events.SaleCompletedEvent); ok {
			sale = &s
		}
	}
	require.NotNil(t, sale)
	assert.Equal(t, int64(100000), sale.InvoiceNo)
	require.Len(t, sale.Lines, 1)
	assert.Equal(t, "LIPSTICK", sale.Lines[0].Category)
}

func TestSequentialSales_MonotonicInvoices(t *testing.T) {
	r := newTestRegister(t)
	ctx := context.Background()
	item := r.createProduct(t, "Velvet Lipstick", 199.0, 10)

	for i := 0; i < 2; i++ {
		order := cart.New()
		item.Stock = r.inventory.GetStock(ctx, item.ID)
		require.NoError(t, order.Add(item, 1))

		co := r.newCheckout()
		_, err := co.Begin(order)
		require.NoError(t, err)

		rcpt, err := co.ConfirmPayment(ctx, "300")
		require.NoError(t, err)
		assert.Equal(t, int64(100000+i), rcpt.InvoiceNo)
	}

	assert.Equal(t, 8, r.inventory.GetStock(ctx, item.ID))
	assert.Len(t, r.ledger.All(), 2)
}
