package service

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/pkg/money"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// testID returns a deterministic uuid whose lexical order follows n.
func testID(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-0000000000%02x", n))
}

func testReceipt(n int, createdAt time.Time, total, paid, oldBal, oldCleared money.Amount) entity.Receipt {
	return entity.Receipt{
		ID:                   testID(n),
		CustomerKey:          "jane doe",
		InvoiceNo:            fmt.Sprintf("RCP-%04d", n),
		CreatedAt:            createdAt,
		LineItemsTotal:       total,
		AmountPaid:           paid,
		OldBalanceAtCreation: oldBal,
		OldBalanceCleared:    oldCleared,
	}
}

func TestProjectEmpty(t *testing.T) {
	out := Project(nil)
	if len(out) != 0 {
		t.Fatalf("expected empty projection, got %d receipts", len(out))
	}
}

func TestProjectSingleReceipt(t *testing.T) {
	out := Project([]entity.Receipt{testReceipt(1, baseTime, 1000, 300, 0, 0)})
	if len(out) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(out))
	}
	if out[0].RunningBalance != 700 {
		t.Errorf("running balance = %d, want 700", out[0].RunningBalance)
	}
}

func TestProjectRunningBalanceAccumulates(t *testing.T) {
	receipts := []entity.Receipt{
		testReceipt(1, baseTime, 1000, 0, 0, 0),
		testReceipt(2, baseTime.Add(time.Hour), 500, 0, 0, 0),
		testReceipt(3, baseTime.Add(2*time.Hour), 300, 100, 0, 0),
	}
	out := Project(receipts)

	want := []money.Amount{1000, 1500, 1700}
	for i, w := range want {
		if out[i].RunningBalance != w {
			t.Errorf("receipt %d running balance = %d, want %d", i, out[i].RunningBalance, w)
		}
	}
}

func TestProjectOrdersByCreatedAtThenID(t *testing.T) {
	// Deliberately shuffled input; receipts 2 and 3 share a timestamp.
	receipts := []entity.Receipt{
		testReceipt(3, baseTime.Add(time.Hour), 300, 0, 0, 0),
		testReceipt(1, baseTime, 1000, 0, 0, 0),
		testReceipt(2, baseTime.Add(time.Hour), 500, 0, 0, 0),
	}
	out := Project(receipts)

	for i, n := range []int{1, 2, 3} {
		if out[i].ID != testID(n) {
			t.Errorf("position %d: got receipt %s, want %s", i, out[i].ID, testID(n))
		}
	}
}

func TestProjectPaidReceiptDisplaysZero(t *testing.T) {
	// The first receipt is fully settled: own debt paid and carried balance
	// cleared. Its display balance must be zero even though the snapshot is
	// immutable history, and it must not drag the later receipt's balance up.
	receipts := []entity.Receipt{
		testReceipt(1, baseTime, 1000, 1000, 500, 500),
		testReceipt(2, baseTime.Add(time.Hour), 400, 0, 0, 0),
	}
	out := Project(receipts)

	if out[0].RunningBalance != 0 {
		t.Errorf("paid receipt running balance = %d, want 0", out[0].RunningBalance)
	}
	if out[1].RunningBalance != 400 {
		t.Errorf("unpaid receipt running balance = %d, want 400", out[1].RunningBalance)
	}
}

func TestProjectIsPure(t *testing.T) {
	receipts := []entity.Receipt{
		testReceipt(2, baseTime.Add(time.Hour), 500, 250, 100, 0),
		testReceipt(1, baseTime, 1000, 0, 0, 0),
	}
	snapshot := make([]entity.Receipt, len(receipts))
	copy(snapshot, receipts)

	first := Project(receipts)
	second := Project(receipts)

	if !reflect.DeepEqual(first, second) {
		t.Error("two projections of the same input differ")
	}
	if !reflect.DeepEqual(receipts, snapshot) {
		t.Error("Project mutated its input")
	}
}
