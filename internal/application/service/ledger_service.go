package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/internal/domain/enum"
	"github.com/sangkips/posledger-api/internal/domain/repository"
	"github.com/sangkips/posledger-api/pkg/apperror"
	"github.com/sangkips/posledger-api/pkg/money"
	"github.com/sangkips/posledger-api/pkg/pagination"
)

// LedgerService handles receipt creation and the projected ledger views.
type LedgerService struct {
	store      repository.LedgerStore
	audit      repository.AuditTrail
	notifier   repository.LedgerNotifier
	vatPercent int64
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store repository.LedgerStore, audit repository.AuditTrail, notifier repository.LedgerNotifier, vatPercent int64) *LedgerService {
	return &LedgerService{
		store:      store,
		audit:      audit,
		notifier:   notifier,
		vatPercent: vatPercent,
	}
}

// ReceiptItemInput represents a line item on a new receipt
type ReceiptItemInput struct {
	Name      string
	Quantity  int
	UnitPrice float64
	TaxType   enum.TaxType
}

// CreateReceiptInput represents the create receipt input
type CreateReceiptInput struct {
	CustomerName string
	PaymentType  enum.PaymentMethod
	InitialPay   float64
	Items        []ReceiptItemInput
}

// CreateReceipt creates a receipt for a customer, snapshotting the
// customer's current outstanding debt into OldBalanceAtCreation. The
// snapshot is taken inside the store's transaction so a payment that races
// the creation cannot skew it.
func (s *LedgerService) CreateReceipt(ctx context.Context, input *CreateReceiptInput) (*entity.Receipt, error) {
	customerKey := entity.NormalizeCustomerKey(input.CustomerName)
	if customerKey == "" {
		return nil, apperror.NewBadRequestError("Customer name is required")
	}
	if len(input.Items) == 0 {
		return nil, apperror.NewBadRequestError("Receipt requires at least one line item")
	}
	if input.PaymentType != "" && !input.PaymentType.IsValid() {
		return nil, apperror.NewBadRequestError("Unknown payment method")
	}

	var subTotal, taxableAmount money.Amount
	items := make([]entity.ReceiptItem, 0, len(input.Items))

	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, apperror.NewBadRequestError(fmt.Sprintf("Invalid quantity for %q", item.Name))
		}
		unitPrice := money.FromFloat(item.UnitPrice)
		if unitPrice < 0 {
			return nil, apperror.NewBadRequestError(fmt.Sprintf("Invalid unit price for %q", item.Name))
		}
		itemTotal := unitPrice.MulRational(int64(item.Quantity), 1)
		subTotal = subTotal.Add(itemTotal)

		// Exclusive items get VAT added on top; inclusive items already
		// carry it in the price.
		if item.TaxType == enum.TaxTypeExclusive {
			taxableAmount = taxableAmount.Add(itemTotal)
		}

		items = append(items, entity.ReceiptItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Total:     itemTotal,
			TaxType:   item.TaxType,
		})
	}

	vat := taxableAmount.MulRational(s.vatPercent, 100)
	lineItemsTotal := subTotal.Add(vat)

	initialPay := money.FromFloat(input.InitialPay)
	if initialPay < 0 {
		return nil, apperror.ErrInvalidAmount
	}
	if initialPay > lineItemsTotal {
		return nil, apperror.NewBadRequestError("Initial payment exceeds the receipt total; record it as a payment so it can cascade")
	}

	receipt := &entity.Receipt{
		ID:             uuid.New(),
		CustomerKey:    customerKey,
		InvoiceNo:      fmt.Sprintf("RCP-%s", uuid.New().String()[:8]),
		CreatedAt:      time.Now().UTC(),
		SubTotal:       subTotal,
		VAT:            vat,
		LineItemsTotal: lineItemsTotal,
		AmountPaid:     initialPay,
		PaymentType:    input.PaymentType,
		Items:          items,
	}

	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		return nil, err
	}

	if err := s.notifier.Publish(ctx, customerKey); err != nil {
		log.Printf("Warning: failed to publish ledger change for %q: %v", customerKey, err)
	}

	return s.GetReceipt(ctx, receipt.ID)
}

// GetReceipt returns one receipt with its projected running balance.
func (s *LedgerService) GetReceipt(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.store.GetReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}

	ledger, err := s.GetCustomerLedger(ctx, receipt.CustomerKey)
	if err != nil {
		return nil, err
	}
	for i := range ledger {
		if ledger[i].ID == id {
			ledger[i].Items = receipt.Items
			return &ledger[i], nil
		}
	}
	return receipt, nil
}

// GetCustomerLedger returns the customer's receipts as a projected view:
// chronological order with running balances recomputed from stored state.
func (s *LedgerService) GetCustomerLedger(ctx context.Context, rawKey string) ([]entity.Receipt, error) {
	customerKey := entity.NormalizeCustomerKey(rawKey)
	if customerKey == "" {
		return nil, apperror.NewBadRequestError("Customer key is required")
	}

	receipts, err := s.store.ReadReceipts(ctx, customerKey)
	if err != nil {
		return nil, err
	}
	return Project(receipts), nil
}

// ListReceipts lists receipts with filtering and page-based pagination
func (s *LedgerService) ListReceipts(ctx context.Context, params *repository.ReceiptFilterParams) (*pagination.PaginatedResult[entity.Receipt], error) {
	receipts, total, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(receipts, pag), nil
}

// ListReceiptsWithCursor lists receipts with cursor-based pagination
func (s *LedgerService) ListReceiptsWithCursor(ctx context.Context, params *repository.ReceiptCursorFilterParams) (*pagination.CursorPaginatedResult[entity.Receipt], error) {
	receipts, err := s.store.ListWithCursor(ctx, params)
	if err != nil {
		return nil, err
	}

	hasPrev := params.Cursor.Cursor != ""

	cursorPag, items := pagination.NewCursorPagination(receipts, params.Cursor.Limit,
		func(r entity.Receipt) string { return r.ID.String() },
		func(r entity.Receipt) time.Time { return r.CreatedAt },
	)
	cursorPag.HasPrev = hasPrev

	return pagination.NewCursorPaginatedResult(items, cursorPag), nil
}

// ListTransactions returns a receipt's audit trail in append order.
func (s *LedgerService) ListTransactions(ctx context.Context, receiptID uuid.UUID, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.PaymentTransaction], error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}

	transactions, total, err := s.audit.ListForReceipt(ctx, receiptID, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(transactions, pag), nil
}

// WatchLedger subscribes to a customer's change notifications and delivers a
// freshly projected ledger on every change. The projection is pure, so any
// number of concurrent watchers is safe. Returns an unsubscribe function.
func (s *LedgerService) WatchLedger(ctx context.Context, rawKey string, onLedger func([]entity.Receipt)) (func(), error) {
	customerKey := entity.NormalizeCustomerKey(rawKey)
	if customerKey == "" {
		return nil, apperror.NewBadRequestError("Customer key is required")
	}

	return s.notifier.Subscribe(ctx, customerKey, func() {
		ledger, err := s.GetCustomerLedger(ctx, customerKey)
		if err != nil {
			log.Printf("Warning: failed to reproject ledger for %q: %v", customerKey, err)
			return
		}
		onLedger(ledger)
	})
}
