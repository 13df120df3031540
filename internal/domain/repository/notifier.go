package repository

import "context"

// LedgerNotifier is the change-notification stream for a customer's ledger.
// Delivery is at-least-once with no ordering guarantee; subscribers re-read
// and re-project on every notification rather than trusting the event payload.
type LedgerNotifier interface {
	// Publish signals that the customer's receipts changed.
	Publish(ctx context.Context, customerKey string) error

	// Subscribe registers onChange for a customer and returns an unsubscribe
	// function. onChange may be invoked from another goroutine.
	Subscribe(ctx context.Context, customerKey string, onChange func()) (func(), error)
}
