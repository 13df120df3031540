package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/pkg/apperror"
	"github.com/sangkips/posledger-api/pkg/money"
)

func findStep(t *testing.T, plan *cascadePlan, id uuid.UUID) *cascadeStep {
	t.Helper()
	for i := range plan.steps {
		if plan.steps[i].receipt.ID == id {
			return &plan.steps[i]
		}
	}
	t.Fatalf("no cascade step for receipt %s", id)
	return nil
}

func TestCascadeExactPaymentClearsTargetOnly(t *testing.T) {
	// Target carries own debt 100 plus carried-forward 30; later receipts
	// have their own debt. Paying exactly 130 settles the target and must
	// not touch anything else.
	receipts := []entity.Receipt{
		testReceipt(1, baseTime, 100, 0, 30, 0),
		testReceipt(2, baseTime.Add(time.Hour), 50, 0, 0, 0),
		testReceipt(3, baseTime.Add(2*time.Hour), 30, 0, 0, 0),
	}

	plan, err := buildCascadePlan(testID(1), receipts, 130)
	if err != nil {
		t.Fatalf("buildCascadePlan: %v", err)
	}

	if plan.totalApplied != 130 {
		t.Errorf("total applied = %d, want 130", plan.totalApplied)
	}
	if len(plan.steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan.steps))
	}
	step := findStep(t, plan, testID(1))
	if step.appliedToOwn != 100 || step.appliedToOld != 30 {
		t.Errorf("target got own=%d old=%d, want own=100 old=30", step.appliedToOwn, step.appliedToOld)
	}
	if !step.receipt.IsFullyPaid() {
		t.Error("target should be fully paid")
	}
}

func TestCascadeOverflowGoesOldestFirst(t *testing.T) {
	// Own debts 100, 50, 30 in chronological order. Paying 180 on the first
	// clears it, cascades 50 to the second and 30 to the third.
	receipts := []entity.Receipt{
		testReceipt(1, baseTime, 100, 0, 0, 0),
		testReceipt(2, baseTime.Add(time.Hour), 50, 0, 0, 0),
		testReceipt(3, baseTime.Add(2*time.Hour), 30, 0, 0, 0),
	}

	plan, err := buildCascadePlan(testID(1), receipts, 180)
	if err != nil {
		t.Fatalf("buildCascadePlan: %v", err)
	}

	if plan.totalApplied != 180 {
		t.Errorf("total applied = %d, want 180", plan.totalApplied)
	}
	if len(plan.steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(plan.steps))
	}

	// Steps are recorded in consumption order: target, then oldest first.
	wantOrder := []uuid.UUID{testID(1), testID(2), testID(3)}
	wantOwn := []money.Amount{100, 50, 30}
	for i := range plan.steps {
		if plan.steps[i].receipt.ID != wantOrder[i] {
			t.Errorf("step %d hit receipt %s, want %s", i, plan.steps[i].receipt.ID, wantOrder[i])
		}
		if plan.steps[i].appliedToOwn != wantOwn[i] {
			t.Errorf("step %d applied %d, want %d", i, plan.steps[i].appliedToOwn, wantOwn[i])
		}
	}
}

func TestCascadeStopsWhenRemainingHitsZero(t *testing.T) {
	receipts := []entity.Receipt{
		testReceipt(1, baseTime, 100, 0, 0, 0),
		testReceipt(2, baseTime.Add(time.Hour), 50, 0, 0, 0),
		testReceipt(3, baseTime.Add(2*time.Hour), 30, 0, 0, 0),
	}

	plan, err := buildCascadePlan(testID(1), receipts, 150)
	if err != nil {
		t.Fatalf("buildCascadePlan: %v", err)
	}
	if len(plan.steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.steps))
	}
	for _, step := range plan.steps {
		if step.receipt.ID == testID(3) {
			t.Error("receipt 3 must be untouched once remaining hits zero")
		}
	}
}

func TestCascadeOldBalanceAbsorbsBeforeCascading(t *testing.T) {
	// Receipt A (1000 unpaid) predates receipt B (500 own, snapshot 1000).
	// Paying 1200 on B fills B's own debt (500) then clears 700 of B's
	// carried balance. A itself is untouched: the snapshot is the debt's
	// ledger home, not a live pointer back to A.
	receipts := []entity.Receipt{
		testReceipt(1, baseTime, 1000, 0, 0, 0),
		testReceipt(2, baseTime.Add(time.Hour), 500, 0, 1000, 0),
	}

	plan, err := buildCascadePlan(testID(2), receipts, 1200)
	if err != nil {
		t.Fatalf("buildCascadePlan: %v", err)
	}

	if len(plan.steps) != 1 {
		t.Fatalf("expected only the target to be touched, got %d steps", len(plan.steps))
	}
	step := findStep(t, plan, testID(2))
	if step.receipt.AmountPaid != 500 {
		t.Errorf("B.amountPaid = %d, want 500", step.receipt.AmountPaid)
	}
	if step.receipt.OldBalanceCleared != 700 {
		t.Errorf("B.oldBalanceCleared = %d, want 700", step.receipt.OldBalanceCleared)
	}

	// Input receipts must not be mutated by planning.
	if receipts[0].AmountPaid != 0 || receipts[1].AmountPaid != 0 {
		t.Error("buildCascadePlan mutated its input")
	}
}

func TestCascadeOverpaymentRejectedWithRemainder(t *testing.T) {
	receipts := []entity.Receipt{
		testReceipt(1, baseTime, 1000, 1000, 0, 0), // settled
		testReceipt(2, baseTime.Add(time.Hour), 500, 0, 1000, 0),
	}

	_, err := buildCascadePlan(testID(2), receipts, 2000)
	var overpay *OverpaymentError
	if !errors.As(err, &overpay) {
		t.Fatalf("expected OverpaymentError, got %v", err)
	}
	if overpay.Remainder != 500 {
		t.Errorf("remainder = %d, want 500", overpay.Remainder)
	}
}

func TestCascadeTargetNotFound(t *testing.T) {
	receipts := []entity.Receipt{testReceipt(1, baseTime, 100, 0, 0, 0)}

	_, err := buildCascadePlan(testID(9), receipts, 50)
	appErr := apperror.GetAppError(err)
	if appErr.Code != 404 {
		t.Fatalf("expected 404, got %d (%v)", appErr.Code, err)
	}
}

func TestCascadePreservesConservationAndBounds(t *testing.T) {
	receipts := []entity.Receipt{
		testReceipt(1, baseTime, 700, 200, 300, 100),
		testReceipt(2, baseTime.Add(time.Hour), 400, 0, 500, 0),
		testReceipt(3, baseTime.Add(2*time.Hour), 900, 0, 0, 0),
	}

	plan, err := buildCascadePlan(testID(1), receipts, 1500)
	if err != nil {
		t.Fatalf("buildCascadePlan: %v", err)
	}

	for _, step := range plan.steps {
		r := step.receipt
		if err := r.CheckInvariants(); err != nil {
			t.Errorf("invariant violated: %v", err)
		}
		if r.AmountPaid.Add(r.OwnBalance()) != r.LineItemsTotal {
			t.Errorf("receipt %s: own-debt conservation broken", r.ID)
		}
		if r.OldBalanceCleared.Add(r.OutstandingOldBalance()) != r.OldBalanceAtCreation {
			t.Errorf("receipt %s: old-balance conservation broken", r.ID)
		}
		if r.OwnBalance() < 0 || r.OutstandingOldBalance() < 0 {
			t.Errorf("receipt %s: negative balance", r.ID)
		}
	}

	var consumed money.Amount
	for _, step := range plan.steps {
		consumed = consumed.Add(step.applied())
	}
	if consumed != plan.totalApplied || consumed != 1500 {
		t.Errorf("consumed %d, total applied %d, want both 1500", consumed, plan.totalApplied)
	}
}
