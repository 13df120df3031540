package request

// ReceiptItemRequest represents one line item on a new receipt
type ReceiptItemRequest struct {
	Name      string  `json:"name" binding:"required,min=1,max=255"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	UnitPrice float64 `json:"unit_price" binding:"min=0"`
	TaxType   int     `json:"tax_type" binding:"min=0,max=1"`
}

// CreateReceiptRequest represents a receipt creation request
type CreateReceiptRequest struct {
	CustomerName string               `json:"customer_name" binding:"required,min=1,max=255"`
	PaymentType  string               `json:"payment_type" binding:"omitempty,max=20"`
	InitialPay   float64              `json:"initial_pay" binding:"min=0"`
	Items        []ReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReceiptFilterRequest represents receipt filter parameters
type ReceiptFilterRequest struct {
	CustomerKey string `form:"customer_key"`
	Search      string `form:"search"`
	DueOnly     bool   `form:"due_only"`
	SortBy      string `form:"sort_by"`
	SortOrder   string `form:"sort_order"`
	Page        int    `form:"page"`
	PerPage     int    `form:"per_page"`
	Limit       int    `form:"limit"` // For cursor-based pagination
	Cursor      string `form:"cursor"`
	Direction   string `form:"direction"`
}
