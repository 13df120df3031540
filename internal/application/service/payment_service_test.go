package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/internal/domain/enum"
	"github.com/sangkips/posledger-api/internal/domain/repository"
	"github.com/sangkips/posledger-api/pkg/apperror"
	"github.com/sangkips/posledger-api/pkg/money"
	"github.com/sangkips/posledger-api/pkg/pagination"
)

// fakeLedger is an in-memory LedgerStore + AuditTrail + LedgerNotifier,
// enough to drive the engine without a live database.
type fakeLedger struct {
	mu           sync.Mutex
	receipts     map[uuid.UUID]*entity.Receipt
	transactions []entity.PaymentTransaction
	idempotency  map[string]*entity.IdempotencyRecord
	published    []string

	// conflictsLeft makes AtomicApply fail with ErrWriteConflict that many
	// times before succeeding.
	conflictsLeft int

	// missPrechecks makes GetByIdempotencyKey report a miss that many
	// times, simulating the window where a racing call committed a key this
	// caller's pre-check did not see.
	missPrechecks int
}

func newFakeLedger(receipts ...entity.Receipt) *fakeLedger {
	f := &fakeLedger{
		receipts:    make(map[uuid.UUID]*entity.Receipt),
		idempotency: make(map[string]*entity.IdempotencyRecord),
	}
	for i := range receipts {
		r := receipts[i]
		f.receipts[r.ID] = &r
	}
	return f
}

func (f *fakeLedger) CreateReceipt(ctx context.Context, receipt *entity.Receipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var existing []entity.Receipt
	for _, r := range f.receipts {
		if r.CustomerKey == receipt.CustomerKey {
			existing = append(existing, *r)
		}
	}
	receipt.OldBalanceAtCreation = entity.TotalOutstanding(existing)
	cp := *receipt
	f.receipts[receipt.ID] = &cp
	return nil
}

func (f *fakeLedger) GetReceipt(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeLedger) ReadReceipts(ctx context.Context, customerKey string) ([]entity.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Receipt
	for _, r := range f.receipts {
		if r.CustomerKey == customerKey {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeLedger) List(ctx context.Context, params *repository.ReceiptFilterParams) ([]entity.Receipt, int64, error) {
	return nil, 0, nil
}

func (f *fakeLedger) ListWithCursor(ctx context.Context, params *repository.ReceiptCursorFilterParams) ([]entity.Receipt, error) {
	return nil, nil
}

func (f *fakeLedger) AtomicApply(ctx context.Context, write *repository.LedgerWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return repository.ErrWriteConflict
	}
	if write.Idempotency != nil {
		if _, exists := f.idempotency[write.Idempotency.Key]; exists {
			return repository.ErrDuplicateIdempotencyKey
		}
	}
	for _, r := range write.Receipts {
		cp := *r
		cp.Version++
		f.receipts[r.ID] = &cp
	}
	for _, tx := range write.Transactions {
		f.transactions = append(f.transactions, *tx)
	}
	if write.Idempotency != nil {
		cp := *write.Idempotency
		f.idempotency[cp.Key] = &cp
	}
	return nil
}

func (f *fakeLedger) ListForReceipt(ctx context.Context, receiptID uuid.UUID, params *pagination.PaginationParams) ([]entity.PaymentTransaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.PaymentTransaction
	for _, tx := range f.transactions {
		if tx.ReceiptID == receiptID {
			out = append(out, tx)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeLedger) GetByIdempotencyKey(ctx context.Context, key string) (*entity.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missPrechecks > 0 {
		f.missPrechecks--
		return nil, nil
	}
	rec, ok := f.idempotency[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeLedger) ExistsWithIdempotencyKey(ctx context.Context, key string) (bool, error) {
	rec, err := f.GetByIdempotencyKey(ctx, key)
	return rec != nil, err
}

func (f *fakeLedger) Publish(ctx context.Context, customerKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, customerKey)
	return nil
}

func (f *fakeLedger) Subscribe(ctx context.Context, customerKey string, onChange func()) (func(), error) {
	return func() {}, nil
}

func paymentInput(receiptID uuid.UUID, amount money.Amount, key string) *ApplyPaymentInput {
	return &ApplyPaymentInput{
		ReceiptID:      receiptID,
		Amount:         amount,
		Method:         enum.PaymentMethodCash,
		IdempotencyKey: key,
	}
}

func TestApplyPaymentCascadesAndPersists(t *testing.T) {
	fake := newFakeLedger(
		testReceipt(1, baseTime, 100, 0, 0, 0),
		testReceipt(2, baseTime.Add(time.Hour), 50, 0, 0, 0),
		testReceipt(3, baseTime.Add(2*time.Hour), 30, 0, 0, 0),
	)
	svc := NewPaymentService(fake, fake, fake)

	result, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 180, "pay-1"))
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}

	if result.TotalApplied != 180 {
		t.Errorf("total applied = %d, want 180", result.TotalApplied)
	}
	if len(result.ReceiptsAffected) != 3 {
		t.Fatalf("affected %d receipts, want 3", len(result.ReceiptsAffected))
	}
	if result.Replayed {
		t.Error("fresh payment must not be marked replayed")
	}

	r1, _ := fake.GetReceipt(context.Background(), testID(1))
	r2, _ := fake.GetReceipt(context.Background(), testID(2))
	r3, _ := fake.GetReceipt(context.Background(), testID(3))
	if r1.AmountPaid != 100 || r2.AmountPaid != 50 || r3.AmountPaid != 30 {
		t.Errorf("persisted amounts = %d/%d/%d, want 100/50/30", r1.AmountPaid, r2.AmountPaid, r3.AmountPaid)
	}

	if len(fake.transactions) != 3 {
		t.Errorf("wrote %d audit transactions, want 3", len(fake.transactions))
	}
	for _, tx := range fake.transactions {
		if tx.IdempotencyKey != "pay-1" {
			t.Errorf("transaction carries key %q, want pay-1", tx.IdempotencyKey)
		}
	}

	if len(fake.published) != 1 || fake.published[0] != "jane doe" {
		t.Errorf("published = %v, want one notification for jane doe", fake.published)
	}
}

func TestApplyPaymentIsIdempotent(t *testing.T) {
	fake := newFakeLedger(testReceipt(1, baseTime, 1000, 0, 0, 0))
	svc := NewPaymentService(fake, fake, fake)

	first, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 400, "pay-dup"))
	if err != nil {
		t.Fatalf("first ApplyPayment: %v", err)
	}

	second, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 400, "pay-dup"))
	if err != nil {
		t.Fatalf("second ApplyPayment: %v", err)
	}

	if !second.Replayed {
		t.Error("second call should be marked replayed")
	}
	if second.TotalApplied != first.TotalApplied {
		t.Errorf("replayed total %d differs from original %d", second.TotalApplied, first.TotalApplied)
	}

	r, _ := fake.GetReceipt(context.Background(), testID(1))
	if r.AmountPaid != 400 {
		t.Errorf("amount paid = %d after replay, want 400 (one effect, not two)", r.AmountPaid)
	}
	if len(fake.transactions) != 1 {
		t.Errorf("audit has %d transactions, want 1", len(fake.transactions))
	}
}

func TestApplyPaymentRejectsKeyReuseWithDifferentArguments(t *testing.T) {
	fake := newFakeLedger(testReceipt(1, baseTime, 1000, 0, 0, 0))
	svc := NewPaymentService(fake, fake, fake)

	if _, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 400, "pay-x")); err != nil {
		t.Fatalf("first ApplyPayment: %v", err)
	}

	_, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 500, "pay-x"))
	appErr := apperror.GetAppError(err)
	if appErr.Code != 409 {
		t.Fatalf("expected 409 for key reuse, got %d (%v)", appErr.Code, err)
	}
}

func TestApplyPaymentValidation(t *testing.T) {
	fake := newFakeLedger(testReceipt(1, baseTime, 1000, 0, 0, 0))
	svc := NewPaymentService(fake, fake, fake)

	tests := []struct {
		name     string
		input    *ApplyPaymentInput
		wantCode int
	}{
		{"zero amount", paymentInput(testID(1), 0, "k1"), 400},
		{"negative amount", paymentInput(testID(1), -100, "k2"), 400},
		{"missing idempotency key", paymentInput(testID(1), 100, ""), 400},
		{"unknown receipt", paymentInput(testID(9), 100, "k3"), 404},
		{
			"unknown method",
			&ApplyPaymentInput{ReceiptID: testID(1), Amount: 100, Method: "goats", IdempotencyKey: "k4"},
			400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyPayment(context.Background(), tt.input)
			appErr := apperror.GetAppError(err)
			if appErr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d (%v)", appErr.Code, tt.wantCode, err)
			}
		})
	}

	if len(fake.transactions) != 0 {
		t.Error("rejected payments must not write audit transactions")
	}
}

func TestApplyPaymentOverpaymentCommitsNothing(t *testing.T) {
	fake := newFakeLedger(testReceipt(1, baseTime, 500, 0, 0, 0))
	svc := NewPaymentService(fake, fake, fake)

	_, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 800, "pay-over"))
	var overpay *OverpaymentError
	if !errors.As(err, &overpay) {
		t.Fatalf("expected OverpaymentError, got %v", err)
	}
	if overpay.Remainder != 300 {
		t.Errorf("remainder = %d, want 300", overpay.Remainder)
	}

	r, _ := fake.GetReceipt(context.Background(), testID(1))
	if r.AmountPaid != 0 {
		t.Error("overpayment must not partially apply")
	}
	if len(fake.transactions) != 0 || len(fake.idempotency) != 0 {
		t.Error("overpayment must not persist anything")
	}
}

func TestApplyPaymentRetriesOnWriteConflict(t *testing.T) {
	fake := newFakeLedger(testReceipt(1, baseTime, 1000, 0, 0, 0))
	fake.conflictsLeft = 2
	svc := NewPaymentService(fake, fake, fake)

	result, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 250, "pay-retry"))
	if err != nil {
		t.Fatalf("ApplyPayment should succeed after retries: %v", err)
	}
	if result.TotalApplied != 250 {
		t.Errorf("total applied = %d, want 250", result.TotalApplied)
	}
}

func TestApplyPaymentSurfacesConflictAfterRetriesExhausted(t *testing.T) {
	fake := newFakeLedger(testReceipt(1, baseTime, 1000, 0, 0, 0))
	fake.conflictsLeft = maxApplyAttempts + 1
	svc := NewPaymentService(fake, fake, fake)

	_, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 250, "pay-fail"))
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}

	r, _ := fake.GetReceipt(context.Background(), testID(1))
	if r.AmountPaid != 0 {
		t.Error("failed payment must leave no partial state")
	}
}

func TestApplyPaymentRacingDuplicateKeyReplays(t *testing.T) {
	fake := newFakeLedger(testReceipt(1, baseTime, 1000, 0, 0, 0))
	svc := NewPaymentService(fake, fake, fake)

	if _, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 300, "pay-race")); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	// The key is committed but this caller's pre-check misses it, so the
	// atomic write is what reports the duplicate.
	fake.missPrechecks = 1

	second, err := svc.ApplyPayment(context.Background(), paymentInput(testID(1), 300, "pay-race"))
	if err != nil {
		t.Fatalf("racing duplicate should replay, got %v", err)
	}
	if !second.Replayed {
		t.Error("racing duplicate result should be marked replayed")
	}

	r, _ := fake.GetReceipt(context.Background(), testID(1))
	if r.AmountPaid != 300 {
		t.Errorf("amount paid = %d, want 300 (single effect)", r.AmountPaid)
	}
}
