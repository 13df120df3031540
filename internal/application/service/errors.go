package service

import (
	"errors"
	"fmt"

	"github.com/sangkips/posledger-api/pkg/money"
)

// ErrConcurrencyConflict is returned when concurrent ledger mutations kept
// aborting the payment's atomic write and the bounded retries ran out. The
// caller may retry with the same idempotency key.
var ErrConcurrencyConflict = errors.New("payment aborted by concurrent ledger activity, retry")

// OverpaymentError reports a payment exceeding the customer's total known
// outstanding debt. Nothing is committed; the caller decides what to do with
// the remainder (reject, or hand off to an explicit credit-balance feature).
type OverpaymentError struct {
	Remainder money.Amount
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment exceeds outstanding debt by %s", e.Remainder)
}

// InvariantViolationError reports a failed ledger post-condition. This is a
// programming-error-class failure: further writes for the customer are halted
// until the ledger is inspected.
type InvariantViolationError struct {
	CustomerKey string
	Reason      string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("ledger invariant violated for customer %q: %s", e.CustomerKey, e.Reason)
}
