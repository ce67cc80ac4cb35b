package handlers

import (
	"net/http"
	"time"

	"pos-service/internal/ledger"
	"pos-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SalesHandler serves the sales ledger and its summary
type SalesHandler struct {
	ledger *ledger.Service
	logger *zap.Logger
}

// NewSalesHandler creates a sales handler
func NewSalesHandler(led *ledger.Service, logger *zap.Logger) *SalesHandler {
	return &SalesHandler{ledger: led, logger: logger}
}

// SaleView is one ledger row as returned by the report
type SaleView struct {
	ID        int64   `json:"id"`
	SaleDate  string  `json:"sale_date"`
	ProductID int64   `json:"product_id"`
	Product   string  `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
	Category  string  `json:"category"`
	InvoiceNo int64   `json:"invoice_no"`
}

// List handles GET /api/v1/sales
// @Summary      List sales, most recent first
// @Description  Optional filters: from/to as YYYY-MM-DD inclusive bounds, product as case-insensitive substring.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        from     query     string  false  "Start date YYYY-MM-DD"
// @Param        to       query     string  false  "End date YYYY-MM-DD"
// @Param        product  query     string  false  "Product name substring"
// @Success      200      {array}   SaleView
// @Failure      400      {object}  ErrorResponse  "Bad date format"
// @Router       /sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	rows := h.ledger.Query(filter)

	views := make([]SaleView, 0, len(rows))
	for _, row := range rows {
		views = append(views, SaleView{
			ID:        row.ID,
			SaleDate:  row.SaleDate,
			ProductID: row.ProductID,
			Product:   row.Product,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			Total:     row.Total,
			Category:  row.Category,
			InvoiceNo: row.InvoiceNo,
		})
	}
	c.JSON(http.StatusOK, views)
}

// Summary handles GET /api/v1/sales/summary
// @Summary      Summarize sales
// @Description  Totals revenue, items sold and transactions for the filtered rows. A multi-line checkout counts as one transaction.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        from     query     string  false  "Start date YYYY-MM-DD"
// @Param        to       query     string  false  "End date YYYY-MM-DD"
// @Param        product  query     string  false  "Product name substring"
// @Success      200      {object}  ledger.Summary
// @Failure      400      {object}  ErrorResponse  "Bad date format"
// @Router       /sales/summary [get]
func (h *SalesHandler) Summary(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.ledger.Summarize(filter))
}

func parseFilter(c *gin.Context) (ledger.Filter, bool) {
	var filter ledger.Filter
	filter.Product = c.Query("product")

	if raw := c.Query("from"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid from date, expected YYYY-MM-DD", raw))
			return filter, false
		}
		filter.From = &d
	}
	if raw := c.Query("to"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("invalid to date, expected YYYY-MM-DD", raw))
			return filter, false
		}
		filter.To = &d
	}
	return filter, true
}
