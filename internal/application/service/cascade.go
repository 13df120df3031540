package service

import (
	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/pkg/apperror"
	"github.com/sangkips/posledger-api/pkg/money"
)

// cascadeStep records what one payment consumed against one receipt.
type cascadeStep struct {
	receipt       *entity.Receipt // mutated working copy
	balanceBefore money.Amount    // receipt's own balance before this step
	appliedToOwn  money.Amount
	appliedToOld  money.Amount
}

func (s *cascadeStep) applied() money.Amount {
	return s.appliedToOwn.Add(s.appliedToOld)
}

// cascadePlan is the computed effect of a payment before anything is
// persisted. Building it is pure: it works on copies of already-loaded
// receipts and performs no I/O, so it can be recomputed from fresh state
// whenever the atomic write detects a conflict.
type cascadePlan struct {
	customerKey  string
	steps        []cascadeStep
	totalApplied money.Amount
}

// mutatedReceipts returns the working copies touched by the plan, in the
// order they were consumed.
func (p *cascadePlan) mutatedReceipts() []*entity.Receipt {
	out := make([]*entity.Receipt, 0, len(p.steps))
	for i := range p.steps {
		out = append(out, p.steps[i].receipt)
	}
	return out
}

// buildCascadePlan distributes a payment across the customer's receipts in
// the deterministic order the ledger defines:
//
//	Step A: the target receipt's own debt.
//	Step B: the target's carried-forward old balance. This portion is
//	        recorded on old_balance_cleared, never on amount_paid; clearing
//	        carried debt and paying line items are distinct ledger entries.
//	Step C: remaining overflow cascades to the customer's other outstanding
//	        receipts, oldest first (the order the carried balances accrued),
//	        own debt then carried debt per receipt.
//
// A remainder after every known debt is exhausted is an overpayment and
// fails the whole plan; it is never silently dropped.
func buildCascadePlan(targetID uuid.UUID, receipts []entity.Receipt, amount money.Amount) (*cascadePlan, error) {
	ordered := make([]entity.Receipt, len(receipts))
	copy(ordered, receipts)
	sortChronological(ordered)

	var target *entity.Receipt
	for i := range ordered {
		if ordered[i].ID == targetID {
			target = &ordered[i]
			break
		}
	}
	if target == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}

	plan := &cascadePlan{customerKey: target.CustomerKey}
	remaining := amount

	remaining = plan.consume(target, remaining)

	if remaining.IsPositive() {
		for i := range ordered {
			r := &ordered[i]
			if r.ID == targetID || !r.TotalDebt().IsPositive() {
				continue
			}
			remaining = plan.consume(r, remaining)
			if !remaining.IsPositive() {
				break
			}
		}
	}

	if remaining.IsPositive() {
		return nil, &OverpaymentError{Remainder: remaining}
	}

	plan.totalApplied = amount.Sub(remaining)
	return plan, nil
}

// consume applies as much of remaining as the receipt can absorb, own debt
// first then carried old balance, and records a step when anything applied.
func (p *cascadePlan) consume(r *entity.Receipt, remaining money.Amount) money.Amount {
	if !remaining.IsPositive() {
		return remaining
	}

	step := cascadeStep{receipt: r, balanceBefore: r.OwnBalance()}

	if own := money.Min(remaining, r.OwnBalance().ClampNonNegative()); own.IsPositive() {
		r.AmountPaid = r.AmountPaid.Add(own)
		step.appliedToOwn = own
		remaining = remaining.Sub(own)
	}

	if remaining.IsPositive() {
		if old := money.Min(remaining, r.OutstandingOldBalance().ClampNonNegative()); old.IsPositive() {
			r.OldBalanceCleared = r.OldBalanceCleared.Add(old)
			step.appliedToOld = old
			remaining = remaining.Sub(old)
		}
	}

	if step.applied().IsPositive() {
		p.steps = append(p.steps, step)
	}
	return remaining
}
