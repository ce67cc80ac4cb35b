package handlers

import (
	"net/http"
	"strconv"

	"pos-service/internal/catalog"
	"pos-service/internal/database"
	"pos-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogHandler serves the catalog listings and product management
type CatalogHandler struct {
	catalog *catalog.Service
	logger  *zap.Logger
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(svc *catalog.Service, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: svc, logger: logger}
}

// List handles GET /api/v1/catalog
// @Summary      List the catalog with stock
// @Description  Returns every product joined with its current stock. view=browse orders by category then description; view=manage orders newest first.
// @Tags         catalog
// @Produce      json
// @Param        view  query     string  false  "browse (default) or manage"
// @Success      200   {array}   catalog.Item
// @Router       /catalog [get]
func (h *CatalogHandler) List(c *gin.Context) {
	view := catalog.ViewBrowse
	if c.Query("view") == "manage" {
		view = catalog.ViewManage
	}

	items := h.catalog.Load(c.Request.Context(), view)
	c.JSON(http.StatusOK, items)
}

// Categories handles GET /api/v1/catalog/categories
// @Summary      List the fixed product categories
// @Tags         catalog
// @Produce      json
// @Success      200  {array}  string
// @Router       /catalog/categories [get]
func (h *CatalogHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Categories)
}

// Get handles GET /api/v1/products/:id
// @Summary      Get one product with stock
// @Tags         products
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  catalog.Item
// @Failure      404  {object}  ErrorResponse
// @Router       /products/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	item, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create handles POST /api/v1/products
// @Summary      Create a product
// @Description  Category must belong to the fixed enumeration. Status defaults to Active.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ProductRequest  true  "Product fields"
// @Success      201      {object}  catalog.Item
// @Failure      400      {object}  ErrorResponse
// @Router       /products [post]
func (h *CatalogHandler) Create(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid product request", zap.Error(err))
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid product request", err.Error()))
		return
	}

	p := &database.Product{
		Barcode:     req.Barcode,
		Description: req.Description,
		Price:       *req.Price,
		ImagePath:   req.ImagePath,
		Category:    req.Category,
		Status:      req.Status,
	}

	id, err := h.catalog.Create(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	item, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update handles PUT /api/v1/products/:id
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int             true  "Product ID"
// @Param        request  body      ProductRequest  true  "Product fields"
// @Success      200      {object}  catalog.Item
// @Failure      404      {object}  ErrorResponse
// @Router       /products/{id} [put]
func (h *CatalogHandler) Update(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid product request", zap.Error(err))
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid product request", err.Error()))
		return
	}

	p := &database.Product{
		ID:          id,
		Barcode:     req.Barcode,
		Description: req.Description,
		Price:       *req.Price,
		ImagePath:   req.ImagePath,
		Category:    req.Category,
		Status:      req.Status,
	}
	if p.Status == "" {
		p.Status = "Active"
	}

	if err := h.catalog.Update(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}

	item, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateStatus handles PATCH /api/v1/products/:id/status
// @Summary      Activate or deactivate a product
// @Description  Inactive products stay in the catalog but cannot be added to an order.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int            true  "Product ID"
// @Param        request  body      StatusRequest  true  "Active or Inactive"
// @Success      200      {object}  map[string]string
// @Failure      404      {object}  ErrorResponse
// @Router       /products/{id}/status [patch]
func (h *CatalogHandler) UpdateStatus(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid status request", err.Error()))
		return
	}

	if err := h.catalog.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": strconv.FormatInt(id, 10), "status": req.Status})
}

// Delete handles DELETE /api/v1/products/:id
// @Summary      Delete a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      204  "deleted"
// @Failure      404  {object}  ErrorResponse
// @Router       /products/{id} [delete]
func (h *CatalogHandler) Delete(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// productID parses the :id path parameter, responding 400 on garbage
func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid product id", c.Param("id")))
		return 0, false
	}
	return id, true
}
