package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/pkg/pagination"
)

// ErrWriteConflict is returned by AtomicApply when a concurrent mutation was
// detected (a receipt version moved underneath the write). The caller should
// recompute against fresh state and retry.
var ErrWriteConflict = errors.New("ledger write conflict")

// ErrDuplicateIdempotencyKey is returned by AtomicApply when the write's
// idempotency key was committed by a racing call.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already recorded")

// LedgerWrite is the unit of atomic persistence: every mutated receipt, the
// audit transactions describing the mutation, and the idempotency record tying
// them to one payment request. Either all of it commits or none of it does.
type LedgerWrite struct {
	Receipts     []*entity.Receipt
	Transactions []*entity.PaymentTransaction
	Idempotency  *entity.IdempotencyRecord
}

// ReceiptFilterParams contains filtering parameters for receipt queries
type ReceiptFilterParams struct {
	Pagination  *pagination.PaginationParams
	CustomerKey string
	Search      string
	DueOnly     bool
	SortBy      string
	SortOrder   string
}

// ReceiptCursorFilterParams contains cursor-based filtering for receipt queries
type ReceiptCursorFilterParams struct {
	Cursor      *pagination.CursorParams
	CustomerKey string
	Search      string
	DueOnly     bool
}

// LedgerStore is the boundary to the backing document store. Implementations
// must make AtomicApply all-or-nothing and must detect concurrent mutations
// of the written receipts.
type LedgerStore interface {
	// CreateReceipt persists a new receipt, snapshotting the customer's
	// current outstanding debt into OldBalanceAtCreation inside the same
	// transaction so a racing payment cannot skew the snapshot.
	CreateReceipt(ctx context.Context, receipt *entity.Receipt) error

	// GetReceipt returns a receipt by id, or nil if it does not exist.
	GetReceipt(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)

	// ReadReceipts returns all receipts for a customer, unordered.
	ReadReceipts(ctx context.Context, customerKey string) ([]entity.Receipt, error)

	List(ctx context.Context, params *ReceiptFilterParams) ([]entity.Receipt, int64, error)
	ListWithCursor(ctx context.Context, params *ReceiptCursorFilterParams) ([]entity.Receipt, error)

	// AtomicApply commits the write atomically, or fails with
	// ErrWriteConflict / ErrDuplicateIdempotencyKey without partial effect.
	AtomicApply(ctx context.Context, write *LedgerWrite) error
}
