package handlers

import (
	stderrors "errors"

	"pos-service/internal/cart"
	"pos-service/internal/catalog"
	"pos-service/internal/checkout"
	"pos-service/internal/database"
	"pos-service/internal/inventory"
	"pos-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError maps a domain error to the standard error body and the status
// code its code implies
func respondError(c *gin.Context, err error) {
	std := toStandardError(err)
	c.JSON(std.HTTPStatus(), std)
}

func toStandardError(err error) *errors.StandardError {
	var (
		stdErr        *errors.StandardError
		unavailable   *cart.UnavailableError
		outOfStock    *cart.OutOfStockError
		badQty        *cart.InvalidQuantityError
		cartShortfall *cart.InsufficientStockError
		underpaid     *checkout.InsufficientPaymentError
		shortfall     *checkout.StockShortfallError
		replenish     *inventory.ReplenishError
	)

	switch {
	case stderrors.As(err, &stdErr):
		return stdErr
	case stderrors.As(err, &unavailable):
		return errors.NewStandardError("ProductUnavailable", unavailable.Error(), unavailable.Description)
	case stderrors.As(err, &outOfStock):
		return errors.NewStandardError("OutOfStock", outOfStock.Error(), outOfStock.Description)
	case stderrors.As(err, &badQty):
		return errors.NewStandardError("InvalidQuantity", badQty.Error(), "")
	case stderrors.As(err, &cartShortfall):
		return errors.NewStandardError("InsufficientStock", cartShortfall.Error(), cartShortfall.Description)
	case stderrors.As(err, &underpaid):
		return errors.NewStandardError("InsufficientPayment", underpaid.Error(), "")
	case stderrors.As(err, &shortfall):
		return errors.NewStandardError("InsufficientStock", shortfall.Error(), "")
	case stderrors.As(err, &replenish):
		switch replenish.Reason {
		case "invalid":
			return errors.NewStandardError("InvalidQuantity", replenish.Error(), "")
		default:
			return errors.NewStandardError("StockFull", replenish.Error(), "")
		}
	case stderrors.Is(err, checkout.ErrEmptyOrder):
		return errors.NewStandardError("EmptyOrder", err.Error(), "")
	case stderrors.Is(err, checkout.ErrInvalidAmount):
		return errors.NewStandardError("InvalidAmount", err.Error(), "")
	case stderrors.Is(err, checkout.ErrInvalidState):
		return errors.NewStandardError("InvalidCheckoutState", err.Error(), "")
	case stderrors.Is(err, database.ErrProductNotFound):
		return errors.NewStandardError("ProductNotFound", err.Error(), "")
	case stderrors.Is(err, database.ErrStockConflict):
		return errors.NewStandardError("InsufficientStock", err.Error(), "")
	case stderrors.Is(err, catalog.ErrInvalidCategory):
		return errors.NewValidationError(err.Error(), "category")
	default:
		return errors.NewInternalError("unexpected error", err)
	}
}
