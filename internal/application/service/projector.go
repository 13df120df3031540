package service

import (
	"sort"

	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/pkg/money"
)

// Project computes the read-time view of a customer's ledger: receipts in
// chronological order with running balances recomputed from stored state.
// It is a pure function: the input is not mutated, there is no I/O, and the
// same input always produces the same output, so concurrent callers driven by
// change notifications need no locking.
//
// The running balance folds each receipt's own unpaid amount in (created_at,
// id) order. A fully paid receipt always displays zero, even though its
// old-balance snapshot is immutable history; a stale non-zero balance on a
// paid receipt was the most common display bug this replaces.
func Project(receipts []entity.Receipt) []entity.Receipt {
	out := make([]entity.Receipt, len(receipts))
	copy(out, receipts)
	sortChronological(out)

	var running money.Amount
	for i := range out {
		running = running.Add(out[i].OwnBalance())
		if out[i].IsFullyPaid() {
			out[i].RunningBalance = 0
		} else {
			out[i].RunningBalance = running.ClampNonNegative()
		}
	}
	return out
}

// sortChronological orders receipts by (created_at, id) ascending. This
// tuple is the single source of truth for "earlier" vs "later" debt; the id
// tiebreak keeps the order deterministic when timestamps collide.
func sortChronological(receipts []entity.Receipt) {
	sort.SliceStable(receipts, func(i, j int) bool {
		if !receipts[i].CreatedAt.Equal(receipts[j].CreatedAt) {
			return receipts[i].CreatedAt.Before(receipts[j].CreatedAt)
		}
		return receipts[i].ID.String() < receipts[j].ID.String()
	})
}
