package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/application/service"
	"github.com/sangkips/posledger-api/internal/domain/enum"
	"github.com/sangkips/posledger-api/internal/domain/repository"
	"github.com/sangkips/posledger-api/internal/presentation/http/dto/request"
	"github.com/sangkips/posledger-api/internal/presentation/http/dto/response"
	"github.com/sangkips/posledger-api/pkg/pagination"
)

// ReceiptHandler handles receipt-related HTTP requests
type ReceiptHandler struct {
	ledgerService *service.LedgerService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(ledgerService *service.LedgerService) *ReceiptHandler {
	return &ReceiptHandler{ledgerService: ledgerService}
}

// Create handles creating a receipt
func (h *ReceiptHandler) Create(c *gin.Context) {
	var req request.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	items := make([]service.ReceiptItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.ReceiptItemInput{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			TaxType:   enum.TaxType(item.TaxType),
		})
	}

	receipt, err := h.ledgerService.CreateReceipt(c.Request.Context(), &service.CreateReceiptInput{
		CustomerName: req.CustomerName,
		PaymentType:  enum.PaymentMethod(req.PaymentType),
		InitialPay:   req.InitialPay,
		Items:        items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Receipt created successfully", receipt)
}

// List handles listing receipts (supports both page-based and cursor-based pagination)
func (h *ReceiptHandler) List(c *gin.Context) {
	// Check if cursor-based pagination is requested
	if cursor := c.Query("cursor"); cursor != "" || c.Query("limit") != "" {
		h.listWithCursor(c)
		return
	}

	var filter request.ReceiptFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &repository.ReceiptFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    filter.Page,
			PerPage: filter.PerPage,
		},
		CustomerKey: filter.CustomerKey,
		Search:      filter.Search,
		DueOnly:     filter.DueOnly,
		SortBy:      filter.SortBy,
		SortOrder:   filter.SortOrder,
	}

	result, err := h.ledgerService.ListReceipts(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Receipts retrieved successfully", result)
}

// listWithCursor handles listing receipts with cursor-based pagination
func (h *ReceiptHandler) listWithCursor(c *gin.Context) {
	var filter request.ReceiptFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	limit := 15
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	cursor := c.Query("cursor")
	direction := c.DefaultQuery("direction", "next")

	params := &repository.ReceiptCursorFilterParams{
		Cursor: &pagination.CursorParams{
			Cursor:    cursor,
			Direction: pagination.CursorDirection(direction),
			Limit:     limit,
		},
		CustomerKey: filter.CustomerKey,
		Search:      filter.Search,
		DueOnly:     filter.DueOnly,
	}

	result, err := h.ledgerService.ListReceiptsWithCursor(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, 200, "Receipts retrieved successfully", result)
}

// Get handles getting a single receipt with its projected running balance
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	receipt, err := h.ledgerService.GetReceipt(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", receipt)
}

// ListTransactions handles listing a receipt's payment audit trail
func (h *ReceiptHandler) ListTransactions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	var filter request.ReceiptFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &pagination.PaginationParams{
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}

	result, err := h.ledgerService.ListTransactions(c.Request.Context(), id, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Transactions retrieved successfully", result)
}
