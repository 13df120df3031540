package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/application/service"
	"github.com/sangkips/posledger-api/internal/domain/enum"
	"github.com/sangkips/posledger-api/internal/presentation/http/dto/request"
	"github.com/sangkips/posledger-api/internal/presentation/http/dto/response"
	"github.com/sangkips/posledger-api/pkg/apperror"
	"github.com/sangkips/posledger-api/pkg/money"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Record handles applying a payment to a receipt, cascading any overflow
// across the customer's other outstanding receipts
func (h *PaymentHandler) Record(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req request.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	// The header wins over the body field when both are present
	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), &service.ApplyPaymentInput{
		ReceiptID:      receiptID,
		Amount:         money.FromFloat(req.Amount),
		Method:         enum.PaymentMethod(req.Method),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		h.paymentError(c, err)
		return
	}

	if result.Replayed {
		c.Header("X-Idempotency-Replayed", "true")
		response.OK(c, "Payment already applied", result)
		return
	}

	response.OK(c, "Payment applied successfully", result)
}

// paymentError maps the cascade engine's failure modes onto HTTP status codes
func (h *PaymentHandler) paymentError(c *gin.Context, err error) {
	var overpayment *service.OverpaymentError
	if errors.As(err, &overpayment) {
		response.Error(c, &apperror.AppError{
			Code:    http.StatusUnprocessableEntity,
			Message: "Payment exceeds the customer's outstanding debt",
			Errors: []apperror.FieldError{
				{Field: "remainder", Message: overpayment.Remainder.String()},
			},
		})
		return
	}

	if errors.Is(err, service.ErrConcurrencyConflict) {
		response.Error(c, apperror.NewConflictError("Concurrent ledger activity prevented the payment; retry with the same idempotency key"))
		return
	}

	var violation *service.InvariantViolationError
	if errors.As(err, &violation) {
		response.InternalServerError(c, "Ledger inconsistency detected; payments for this customer are suspended")
		return
	}

	response.Error(c, err)
}
