package export

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
)

func TestCustomerStatement(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	receipts := []entity.Receipt{
		{
			ID:             uuid.New(),
			CustomerKey:    "jane doe",
			InvoiceNo:      "RCP-0001",
			CreatedAt:      created,
			LineItemsTotal: 10000,
			AmountPaid:     4000,
			RunningBalance: 6000,
		},
		{
			ID:             uuid.New(),
			CustomerKey:    "jane doe",
			InvoiceNo:      "RCP-0002",
			CreatedAt:      created.Add(time.Hour),
			LineItemsTotal: 5000,
			AmountPaid:     5000,
			RunningBalance: 0,
		},
	}

	f, err := CustomerStatement("jane doe", receipts)
	if err != nil {
		t.Fatalf("CustomerStatement: %v", err)
	}
	defer f.Close()

	tests := []struct {
		cell string
		want string
	}{
		{"B1", "jane doe"},
		{"B4", "RCP-0001"},
		{"C4", "100"},
		{"H4", "60"},
		{"I4", "DUE"},
		{"B5", "RCP-0002"},
		{"I5", "PAID"},
		{"B7", "150"}, // total sales
		{"B8", "90"},  // total paid
		{"B9", "60"},  // total outstanding
	}

	for _, tt := range tests {
		got, err := f.GetCellValue(statementSheet, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("cell %s = %q, want %q", tt.cell, got, tt.want)
		}
	}
}
