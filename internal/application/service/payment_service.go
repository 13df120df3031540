package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/internal/domain/enum"
	"github.com/sangkips/posledger-api/internal/domain/repository"
	"github.com/sangkips/posledger-api/pkg/apperror"
	"github.com/sangkips/posledger-api/pkg/money"
)

const (
	// maxApplyAttempts bounds the recompute-and-retry loop on write conflicts.
	maxApplyAttempts = 3
	conflictBackoff  = 50 * time.Millisecond
)

// PaymentService is the payment cascade engine. It loads a customer's
// receipts, computes the cascade plan, and persists every mutated receipt
// plus its audit transactions in one atomic write, retrying against fresh
// state when a concurrent payment commits first.
type PaymentService struct {
	store    repository.LedgerStore
	audit    repository.AuditTrail
	notifier repository.LedgerNotifier

	// halted tracks customers whose ledger failed an invariant check.
	// Writes for those customers are refused until the data is inspected.
	halted sync.Map
}

// NewPaymentService creates a new payment service
func NewPaymentService(store repository.LedgerStore, audit repository.AuditTrail, notifier repository.LedgerNotifier) *PaymentService {
	return &PaymentService{
		store:    store,
		audit:    audit,
		notifier: notifier,
	}
}

// ApplyPaymentInput represents a payment request against one receipt.
type ApplyPaymentInput struct {
	ReceiptID      uuid.UUID
	Amount         money.Amount
	Method         enum.PaymentMethod
	IdempotencyKey string
}

// AffectedReceipt describes the effect of a payment on one receipt.
type AffectedReceipt struct {
	ReceiptID       uuid.UUID    `json:"receipt_id"`
	AppliedToOwn    money.Amount `json:"applied_to_own"`
	AppliedToOld    money.Amount `json:"applied_to_old"`
	OwnBalanceAfter money.Amount `json:"own_balance_after"`
	OldOutstanding  money.Amount `json:"old_outstanding_after"`
	FullyPaid       bool         `json:"fully_paid"`
}

// CascadeResult is the outcome of an applied payment. It is stored verbatim
// against the idempotency key so a retried request replays it unchanged.
type CascadeResult struct {
	ReceiptID        uuid.UUID         `json:"receipt_id"`
	CustomerKey      string            `json:"customer_key"`
	TotalApplied     money.Amount      `json:"total_applied"`
	ReceiptsAffected []AffectedReceipt `json:"receipts_affected"`
	TransactionIDs   []uuid.UUID       `json:"transaction_ids"`
	Replayed         bool              `json:"replayed,omitempty"`
}

// ApplyPayment applies a payment to the target receipt and cascades any
// overflow across the customer's other outstanding receipts. The whole
// effect commits atomically or not at all, so a timed-out call is always
// safe to retry with the same idempotency key.
func (s *PaymentService) ApplyPayment(ctx context.Context, input *ApplyPaymentInput) (*CascadeResult, error) {
	if input.Amount.IsZeroOrNegative() {
		return nil, apperror.ErrInvalidAmount
	}
	if input.IdempotencyKey == "" {
		return nil, apperror.NewBadRequestError("Idempotency key is required")
	}
	if !input.Method.IsValid() {
		return nil, apperror.NewBadRequestError("Unknown payment method")
	}

	requestHash := hashPaymentRequest(input)

	// A retried call replays the original outcome instead of re-applying.
	if existing, err := s.audit.GetByIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return replayResult(existing, requestHash)
	}

	var lastErr error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		result, err := s.applyOnce(ctx, input, requestHash)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			// A racing call with the same key committed first.
			existing, auditErr := s.audit.GetByIdempotencyKey(ctx, input.IdempotencyKey)
			if auditErr != nil || existing == nil {
				return nil, apperror.NewConflictError("Payment already in progress for this idempotency key")
			}
			return replayResult(existing, requestHash)
		}
		if !errors.Is(err, repository.ErrWriteConflict) {
			return nil, err
		}

		lastErr = err
		log.Printf("payment %s: write conflict on attempt %d/%d, recomputing", input.IdempotencyKey, attempt, maxApplyAttempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * conflictBackoff):
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, lastErr)
}

// applyOnce runs one full read-compute-write cycle against current state.
func (s *PaymentService) applyOnce(ctx context.Context, input *ApplyPaymentInput, requestHash string) (*CascadeResult, error) {
	target, err := s.store.GetReceipt(ctx, input.ReceiptID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}

	if _, stopped := s.halted.Load(target.CustomerKey); stopped {
		return nil, apperror.NewAppError(500, "Ledger writes are halted for this customer pending reconciliation")
	}

	receipts, err := s.store.ReadReceipts(ctx, target.CustomerKey)
	if err != nil {
		return nil, err
	}

	plan, err := buildCascadePlan(input.ReceiptID, receipts, input.Amount)
	if err != nil {
		return nil, err
	}

	appliedAt := time.Now().UTC()
	result := &CascadeResult{
		ReceiptID:    input.ReceiptID,
		CustomerKey:  plan.customerKey,
		TotalApplied: plan.totalApplied,
	}

	write := &repository.LedgerWrite{Receipts: plan.mutatedReceipts()}
	for i := range plan.steps {
		step := &plan.steps[i]

		if err := step.receipt.CheckInvariants(); err != nil {
			s.halted.Store(plan.customerKey, struct{}{})
			violation := &InvariantViolationError{CustomerKey: plan.customerKey, Reason: err.Error()}
			log.Printf("FATAL %v", violation)
			return nil, violation
		}

		tx := &entity.PaymentTransaction{
			ID:                uuid.New(),
			ReceiptID:         step.receipt.ID,
			CustomerKey:       plan.customerKey,
			IdempotencyKey:    input.IdempotencyKey,
			Amount:            step.applied(),
			OldBalancePortion: step.appliedToOld,
			BalanceBefore:     step.balanceBefore,
			BalanceAfter:      step.receipt.OwnBalance(),
			Method:            input.Method,
			AppliedAt:         appliedAt,
		}
		write.Transactions = append(write.Transactions, tx)

		result.ReceiptsAffected = append(result.ReceiptsAffected, AffectedReceipt{
			ReceiptID:       step.receipt.ID,
			AppliedToOwn:    step.appliedToOwn,
			AppliedToOld:    step.appliedToOld,
			OwnBalanceAfter: step.receipt.OwnBalance(),
			OldOutstanding:  step.receipt.OutstandingOldBalance(),
			FullyPaid:       step.receipt.IsFullyPaid(),
		})
		result.TransactionIDs = append(result.TransactionIDs, tx.ID)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	write.Idempotency = &entity.IdempotencyRecord{
		Key:         input.IdempotencyKey,
		ReceiptID:   input.ReceiptID,
		RequestHash: requestHash,
		Result:      string(resultJSON),
	}

	if err := s.store.AtomicApply(ctx, write); err != nil {
		return nil, err
	}

	// Notification is best-effort; subscribers re-read on their own schedule.
	if err := s.notifier.Publish(ctx, plan.customerKey); err != nil {
		log.Printf("Warning: failed to publish ledger change for %q: %v", plan.customerKey, err)
	}

	return result, nil
}

// replayResult returns the stored outcome for a previously applied payment,
// refusing keys reused with different arguments.
func replayResult(record *entity.IdempotencyRecord, requestHash string) (*CascadeResult, error) {
	if !record.Matches(requestHash) {
		return nil, apperror.NewConflictError("Idempotency key was already used with a different request")
	}
	var result CascadeResult
	if err := json.Unmarshal([]byte(record.Result), &result); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record %s: %w", record.Key, err)
	}
	result.Replayed = true
	return &result, nil
}

func hashPaymentRequest(input *ApplyPaymentInput) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", input.ReceiptID, input.Amount, input.Method)))
	return hex.EncodeToString(sum[:])
}
