package handlers

import (
	"fmt"
	"net/http"

	"pos-service/internal/catalog"
	"pos-service/internal/inventory"
	"pos-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InventoryHandler serves stock reads and mutations
type InventoryHandler struct {
	inventory *inventory.Service
	catalog   *catalog.Service
	logger    *zap.Logger
}

// NewInventoryHandler creates an inventory handler
func NewInventoryHandler(inv *inventory.Service, cat *catalog.Service, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory: inv,
		catalog:   cat,
		logger:    logger,
	}
}

// GetStock handles GET /api/v1/inventory/:id/stock
// @Summary      Get current stock for a product
// @Description  First read of a product creates its stock row at the default capacity.
// @Tags         inventory
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  map[string]int
// @Failure      404  {object}  ErrorResponse
// @Router       /inventory/{id}/stock [get]
func (h *InventoryHandler) GetStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	// The stock row is meaningless without the product
	if _, err := h.catalog.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	stock := h.inventory.GetStock(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"product_id": id, "stock": stock})
}

// SetStock handles PUT /api/v1/inventory/:id/stock
// @Summary      Overwrite the stock level for a product
// @Description  The new level must be between zero and the maximum capacity.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int              true  "Product ID"
// @Param        request  body      SetStockRequest  true  "New stock level"
// @Success      200      {object}  map[string]int
// @Failure      400      {object}  ErrorResponse
// @Router       /inventory/{id}/stock [put]
func (h *InventoryHandler) SetStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid stock request", err.Error()))
		return
	}

	// The overwrite path honors the same ceiling as replenishment
	if max := h.inventory.MaxStock(); *req.Stock > max {
		c.JSON(http.StatusBadRequest, errors.NewValidationError(
			fmt.Sprintf("stock cannot exceed %d, got %d", max, *req.Stock), "stock"))
		return
	}

	if _, err := h.catalog.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	if !h.inventory.SetStock(c.Request.Context(), id, *req.Stock) {
		c.JSON(http.StatusInternalServerError, errors.NewStandardError("StoreUnavailable", "failed to set stock", ""))
		return
	}

	h.catalog.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"product_id": id, "stock": *req.Stock})
}

// AddStock handles POST /api/v1/inventory/:id/add-stock
// @Summary      Replenish a product
// @Description  Adds quantity up to the maximum capacity. Rejections state the current stock, the quantity and the space available.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int              true  "Product ID"
// @Param        request  body      AddStockRequest  true  "Quantity to add"
// @Success      200      {object}  map[string]int
// @Failure      400      {object}  ErrorResponse  "Non-positive quantity"
// @Failure      409      {object}  ErrorResponse  "Stock full or would overflow"
// @Router       /inventory/{id}/add-stock [post]
func (h *InventoryHandler) AddStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid replenish request", err.Error()))
		return
	}

	if _, err := h.catalog.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	newStock, err := h.inventory.AddStock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	h.catalog.Invalidate(c.Request.Context())
	h.logger.Info("Stock replenished",
		zap.Int64("product_id", id),
		zap.Int("added", req.Quantity),
		zap.Int("stock", newStock),
	)
	c.JSON(http.StatusOK, gin.H{"product_id": id, "stock": newStock})
}
