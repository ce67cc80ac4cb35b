package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"pos-service/internal/cache"
	"pos-service/internal/catalog"
	"pos-service/internal/checkout"
	"pos-service/internal/config"
	"pos-service/internal/database"
	"pos-service/internal/events"
	"pos-service/internal/inventory"
	"pos-service/internal/ledger"
	"pos-service/internal/receipt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupRegister wires the full stack over a temp database and mounts the
// routes without the auth middleware, which has its own tests
func setupRegister(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{SQLitePath: filepath.Join(t.TempDir(), "handlers_test.db")}
	db, err := database.NewSingleWriterDB(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	bus := events.NewInMemoryEventPublisher(logger)
	inventorySvc := inventory.NewService(db, bus, logger, 100, 100)
	catalogSvc := catalog.NewService(db, inventorySvc, cache.NewInMemoryCache(logger), 300, logger)
	ledgerSvc := ledger.NewService(db, logger)

	session := NewRegisterSession(func() *checkout.Checkout {
		return checkout.New(db, inventorySvc, ledgerSvc, receipt.NopEmitter{}, bus, 0.12, logger)
	})

	catalogHandler := NewCatalogHandler(catalogSvc, logger)
	inventoryHandler := NewInventoryHandler(inventorySvc, catalogSvc, logger)
	registerHandler := NewRegisterHandler(session, catalogSvc, logger)
	salesHandler := NewSalesHandler(ledgerSvc, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.GET("/catalog", catalogHandler.List)
		v1.GET("/catalog/categories", catalogHandler.Categories)
		v1.GET("/products/:id", catalogHandler.Get)
		v1.POST("/products", catalogHandler.Create)
		v1.PUT("/products/:id", catalogHandler.Update)
		v1.PATCH("/products/:id/status", catalogHandler.UpdateStatus)
		v1.DELETE("/products/:id", catalogHandler.Delete)

		v1.GET("/inventory/:id/stock", inventoryHandler.GetStock)
		v1.PUT("/inventory/:id/stock", inventoryHandler.SetStock)
		v1.POST("/inventory/:id/add-stock", inventoryHandler.AddStock)

		v1.POST("/order", registerHandler.NewOrder)
		v1.GET("/order", registerHandler.GetOrder)
		v1.DELETE("/order", registerHandler.ClearOrder)
		v1.POST("/order/items", registerHandler.AddItem)
		v1.DELETE("/order/items", registerHandler.RemoveItems)

		v1.POST("/checkout", registerHandler.BeginCheckout)
		v1.POST("/checkout/back", registerHandler.BackToOrder)
		v1.POST("/checkout/cancel", registerHandler.CancelCheckout)
		v1.POST("/checkout/confirm", registerHandler.ConfirmPayment)

		v1.GET("/sales", salesHandler.List)
		v1.GET("/sales/summary", salesHandler.Summary)
	}
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createProductHTTP(t *testing.T, router *gin.Engine, description, category string, price float64) int64 {
	t.Helper()

	priceCopy := price
	w := doJSON(router, http.MethodPost, "/api/v1/products", ProductRequest{
		Description: description,
		Price:       &priceCopy,
		Category:    category,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var item catalog.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	return item.ID
}

func setStockHTTP(t *testing.T, router *gin.Engine, id int64, stock int) {
	t.Helper()

	stockCopy := stock
	w := doJSON(router, http.MethodPut, fmt.Sprintf("/api/v1/inventory/%d/stock", id), SetStockRequest{Stock: &stockCopy})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCreateProduct_DefaultStockOnFirstRead(t *testing.T) {
	router := setupRegister(t)

	id := createProductHTTP(t, router, "Velvet Matte Lipstick", "LIPSTICK", 299.0)

	w := doJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/inventory/%d/stock", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 100, resp["stock"])
}

func TestCreateProduct_Error_UnknownCategory(t *testing.T) {
	router := setupRegister(t)

	price := 100.0
	w := doJSON(router, http.MethodPost, "/api/v1/products", ProductRequest{
		Description: "Mystery Item",
		Price:       &price,
		Category:    "PERFUME",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalog_BrowseOrdering(t *testing.T) {
	router := setupRegister(t)
	createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 299.0)
	createProductHTTP(t, router, "Silk Blush", "BLUSH", 199.0)

	w := doJSON(router, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var items []catalog.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "BLUSH", items[0].Category)
	assert.Equal(t, "LIPSTICK", items[1].Category)
}

func TestAddItem_Error_UnknownProduct(t *testing.T) {
	router := setupRegister(t)

	w := doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: 999, Quantity: 1})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddItem_Error_ExceedsStock(t *testing.T) {
	router := setupRegister(t)
	id := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 299.0)
	setStockHTTP(t, router, id, 2)

	w := doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: id, Quantity: 3})

	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "InsufficientStock", resp.Error)
}

func TestAddItem_Error_InactiveProduct(t *testing.T) {
	router := setupRegister(t)
	id := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 299.0)

	w := doJSON(router, http.MethodPatch, fmt.Sprintf("/api/v1/products/%d/status", id), StatusRequest{Status: "Inactive"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: id, Quantity: 1})

	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ProductUnavailable", resp.Error)
}

func TestFullSaleFlow(t *testing.T) {
	router := setupRegister(t)
	id := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 199.0)
	setStockHTTP(t, router, id, 5)

	// Build the order
	w := doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: id, Quantity: 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var order OrderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, 597.0, order.GrandTotal)

	// Enter payment
	w = doJSON(router, http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var totals TotalsView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &totals))
	assert.Equal(t, 668.64, totals.GrandTotal)
	assert.Equal(t, "payment_entry", totals.State)

	// Underpay first
	w = doJSON(router, http.MethodPost, "/api/v1/checkout/confirm", ConfirmPaymentRequest{Amount: "600"})
	require.Equal(t, http.StatusConflict, w.Code)

	// Then pay enough
	w = doJSON(router, http.MethodPost, "/api/v1/checkout/confirm", ConfirmPaymentRequest{Amount: "700"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rcpt ReceiptView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rcpt))
	assert.Equal(t, int64(100000), rcpt.InvoiceNo)
	assert.Equal(t, 31.36, rcpt.Change)

	// Stock reflects the deduction
	w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/inventory/%d/stock", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stockResp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stockResp))
	assert.Equal(t, 2, stockResp["stock"])

	// The session is ready for the next sale
	w = doJSON(router, http.MethodGet, "/api/v1/order", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Empty(t, order.Lines)
	assert.Equal(t, "invoice", order.State)

	// And the sale shows up in the report
	w = doJSON(router, http.MethodGet, "/api/v1/sales", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sales []SaleView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sales))
	require.Len(t, sales, 1)
	assert.Equal(t, "Velvet Lipstick", sales[0].Product)
	assert.Equal(t, 3, sales[0].Quantity)

	w = doJSON(router, http.MethodGet, "/api/v1/sales/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary ledger.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 597.0, summary.TotalSales)
	assert.Equal(t, 3, summary.TotalItemsSold)
	assert.Equal(t, 1, summary.TransactionCount)
}

func TestCheckoutBack_KeepsOrder(t *testing.T) {
	router := setupRegister(t)
	id := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 199.0)
	setStockHTTP(t, router, id, 5)

	w := doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: id, Quantity: 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Order mutations are rejected mid-payment
	w = doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: id, Quantity: 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/checkout/back", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var order OrderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "invoice", order.State)
}

func TestCancelCheckout_DiscardsOrder(t *testing.T) {
	router := setupRegister(t)
	id := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 199.0)
	setStockHTTP(t, router, id, 5)

	w := doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: id, Quantity: 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/checkout/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var order OrderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Empty(t, order.Lines)
	assert.Equal(t, "invoice", order.State)

	// Nothing was sold
	w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/inventory/%d/stock", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stockResp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stockResp))
	assert.Equal(t, 5, stockResp["stock"])

	w = doJSON(router, http.MethodGet, "/api/v1/sales", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sales []SaleView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sales))
	assert.Empty(t, sales)
}

func TestConfirmPayment_RefreshesCachedCatalog(t *testing.T) {
	router := setupRegister(t)
	id := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 199.0)
	setStockHTTP(t, router, id, 5)

	// Warm the catalog cache before selling
	w := doJSON(router, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: id, Quantity: 3})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodPost, "/api/v1/checkout/confirm", ConfirmPaymentRequest{Amount: "700"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The cached view was dropped on commit, so stock reads fresh
	w = doJSON(router, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var items []catalog.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Stock)
}

func TestBeginCheckout_Error_EmptyOrder(t *testing.T) {
	router := setupRegister(t)

	w := doJSON(router, http.MethodPost, "/api/v1/checkout", nil)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "EmptyOrder", resp.Error)
}

func TestAddStock_Error_Overflow(t *testing.T) {
	router := setupRegister(t)
	id := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 199.0)
	setStockHTTP(t, router, id, 95)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/inventory/%d/add-stock", id), AddStockRequest{Quantity: 10})

	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "StockFull", resp.Error)
	assert.Contains(t, resp.Message, "space available: 5")
}

func TestSetStock_Error_AboveMaximum(t *testing.T) {
	router := setupRegister(t)
	id := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 199.0)

	over := 150
	w := doJSON(router, http.MethodPut, fmt.Sprintf("/api/v1/inventory/%d/stock", id), SetStockRequest{Stock: &over})

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ValidationError", resp.Error)
	assert.Contains(t, resp.Message, "cannot exceed 100")
}

func TestRemoveItems(t *testing.T) {
	router := setupRegister(t)
	lipstick := createProductHTTP(t, router, "Velvet Lipstick", "LIPSTICK", 199.0)
	blush := createProductHTTP(t, router, "Silk Blush", "BLUSH", 149.0)

	doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: lipstick, Quantity: 1})
	doJSON(router, http.MethodPost, "/api/v1/order/items", AddItemRequest{ProductID: blush, Quantity: 1})

	w := doJSON(router, http.MethodDelete, "/api/v1/order/items", RemoveItemsRequest{ProductIDs: []int64{lipstick}})
	require.Equal(t, http.StatusOK, w.Code)

	var order OrderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	require.Len(t, order.Lines, 1)
	assert.Equal(t, blush, order.Lines[0].ProductID)
}

func TestSales_DateFilterValidation(t *testing.T) {
	router := setupRegister(t)

	w := doJSON(router, http.MethodGet, "/api/v1/sales?from=29-08-2026", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
