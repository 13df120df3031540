package request

// RecordPaymentRequest represents a payment against a receipt. The
// idempotency key may also arrive via the Idempotency-Key header, which
// takes precedence over the body field.
type RecordPaymentRequest struct {
	Amount         float64 `json:"amount" binding:"required,gt=0"`
	Method         string  `json:"method" binding:"required,max=20"`
	IdempotencyKey string  `json:"idempotency_key" binding:"omitempty,max=255"`
}
