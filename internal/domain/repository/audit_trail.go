package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/pkg/pagination"
)

// AuditTrail reads the append-only payment record. Writing happens only
// through LedgerStore.AtomicApply so audit entries commit with the receipt
// mutations they describe; no update or delete is exposed anywhere.
type AuditTrail interface {
	// ListForReceipt returns a receipt's transactions in append order.
	ListForReceipt(ctx context.Context, receiptID uuid.UUID, params *pagination.PaginationParams) ([]entity.PaymentTransaction, int64, error)

	// GetByIdempotencyKey returns the stored record for a key, or nil.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.IdempotencyRecord, error)

	// ExistsWithIdempotencyKey reports whether a payment with this key was
	// already applied.
	ExistsWithIdempotencyKey(ctx context.Context, key string) (bool, error)
}
