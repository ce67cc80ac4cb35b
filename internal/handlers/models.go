package handlers

// ErrorResponse documents the standard error body
type ErrorResponse struct {
	Error   string `json:"error" example:"InsufficientStock"`
	Message string `json:"message" example:"insufficient stock for: Velvet Matte Lipstick (available 1, requested 3)"`
	Details string `json:"details,omitempty"`
}

// ProductRequest creates or updates a catalog product
type ProductRequest struct {
	Barcode     string   `json:"barcode"`
	Description string   `json:"description" binding:"required"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	ImagePath   string   `json:"image_path"`
	Category    string   `json:"category" binding:"required"`
	Status      string   `json:"status"`
}

// StatusRequest flips a product Active/Inactive
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStockRequest overwrites a product's stock level
type SetStockRequest struct {
	Stock *int `json:"stock" binding:"required,gte=0"`
}

// AddStockRequest replenishes a product
type AddStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// AddItemRequest puts a product into the current order
type AddItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// RemoveItemsRequest drops products from the current order
type RemoveItemsRequest struct {
	ProductIDs []int64 `json:"product_ids" binding:"required,min=1"`
}

// ConfirmPaymentRequest carries the tendered amount as entered at the
// register, parsed server-side so a bad entry maps to InvalidAmount
type ConfirmPaymentRequest struct {
	Amount string `json:"amount" binding:"required" example:"500.00"`
}
