package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/enum"
	"github.com/sangkips/posledger-api/pkg/money"
	"gorm.io/gorm"
)

// Receipt is the persisted unit of sale. Its money columns are stored in
// minor units; the ledger fields amount_paid and old_balance_cleared only
// ever grow, and the derived balances below are recomputed from them rather
// than stored as independent truth.
type Receipt struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CustomerKey string    `gorm:"size:255;not null;index:idx_receipts_customer_created,priority:1" json:"customer_key"`
	InvoiceNo   string    `gorm:"size:100;unique;not null" json:"invoice_no"`

	// CreatedAt is the logical ordering timestamp for the customer's ledger.
	// All ledger computations order receipts by (created_at, id).
	CreatedAt time.Time `gorm:"not null;index:idx_receipts_customer_created,priority:2" json:"created_at"`

	// SubTotal and VAT are creation-time facts; LineItemsTotal is their sum
	// and the amount the ledger tracks payment against.
	SubTotal       money.Amount `gorm:"not null;default:0" json:"-"`
	VAT            money.Amount `gorm:"not null;default:0" json:"-"`
	LineItemsTotal money.Amount `gorm:"not null" json:"-"`
	AmountPaid     money.Amount `gorm:"not null;default:0" json:"-"`

	// OldBalanceAtCreation is a snapshot of the customer's unpaid debt from
	// earlier receipts, taken when this receipt was created. It is a
	// point-in-time fact and never changes afterwards.
	OldBalanceAtCreation money.Amount `gorm:"not null;default:0" json:"-"`
	OldBalanceCleared    money.Amount `gorm:"not null;default:0" json:"-"`

	PaymentType enum.PaymentMethod `gorm:"size:20" json:"payment_type"`

	// Version backs the optimistic concurrency check on ledger writes.
	Version   int64     `gorm:"not null;default:1" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`

	// RunningBalance is filled in by the ledger projection for read-time
	// views; it is never persisted.
	RunningBalance money.Amount `gorm:"-" json:"-"`

	Items []ReceiptItem `gorm:"foreignKey:ReceiptID" json:"items,omitempty"`
}

// OwnBalance returns the unpaid portion of this receipt's own sale.
func (r *Receipt) OwnBalance() money.Amount {
	return r.LineItemsTotal.Sub(r.AmountPaid)
}

// OutstandingOldBalance returns how much of the carried-forward snapshot
// debt is still unpaid.
func (r *Receipt) OutstandingOldBalance() money.Amount {
	return r.OldBalanceAtCreation.Sub(r.OldBalanceCleared)
}

// TotalDebt returns the receipt's own unpaid amount plus its outstanding
// carried-forward debt.
func (r *Receipt) TotalDebt() money.Amount {
	return r.OwnBalance().Add(r.OutstandingOldBalance())
}

// IsFullyPaid reports whether the receipt's total debt is settled, within
// one minor unit to absorb rounding.
func (r *Receipt) IsFullyPaid() bool {
	return r.TotalDebt() <= money.Epsilon
}

// CheckInvariants verifies the ledger post-conditions that must hold after
// every mutation. A failure here is a programming error, not user input.
func (r *Receipt) CheckInvariants() error {
	if r.AmountPaid < 0 || r.AmountPaid > r.LineItemsTotal {
		return fmt.Errorf("receipt %s: amount_paid %s outside [0, %s]", r.ID, r.AmountPaid, r.LineItemsTotal)
	}
	if r.OldBalanceCleared < 0 || r.OldBalanceCleared > r.OldBalanceAtCreation {
		return fmt.Errorf("receipt %s: old_balance_cleared %s outside [0, %s]", r.ID, r.OldBalanceCleared, r.OldBalanceAtCreation)
	}
	return nil
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (r Receipt) MarshalJSON() ([]byte, error) {
	type Alias Receipt
	return json.Marshal(&struct {
		Alias
		SubTotal              float64 `json:"sub_total"`
		VAT                   float64 `json:"vat"`
		LineItemsTotal        float64 `json:"line_items_total"`
		AmountPaid            float64 `json:"amount_paid"`
		OldBalanceAtCreation  float64 `json:"old_balance_at_creation"`
		OldBalanceCleared     float64 `json:"old_balance_cleared"`
		OwnBalance            float64 `json:"own_balance"`
		OutstandingOldBalance float64 `json:"outstanding_old_balance"`
		TotalDebt             float64 `json:"total_debt"`
		RunningBalance        float64 `json:"running_balance"`
		IsFullyPaid           bool    `json:"is_fully_paid"`
	}{
		Alias:                 Alias(r),
		SubTotal:              r.SubTotal.Float64(),
		VAT:                   r.VAT.Float64(),
		LineItemsTotal:        r.LineItemsTotal.Float64(),
		AmountPaid:            r.AmountPaid.Float64(),
		OldBalanceAtCreation:  r.OldBalanceAtCreation.Float64(),
		OldBalanceCleared:     r.OldBalanceCleared.Float64(),
		OwnBalance:            r.OwnBalance().Float64(),
		OutstandingOldBalance: r.OutstandingOldBalance().Float64(),
		TotalDebt:             r.TotalDebt().Float64(),
		RunningBalance:        r.RunningBalance.Float64(),
		IsFullyPaid:           r.IsFullyPaid(),
	})
}

// BeforeCreate generates a UUID before creating a new receipt
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}

// ReceiptItem represents a line item on a receipt
type ReceiptItem struct {
	ID        uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptID uuid.UUID    `gorm:"type:uuid;not null;index" json:"receipt_id"`
	Name      string       `gorm:"size:255;not null" json:"name"`
	Quantity  int          `gorm:"not null" json:"quantity"`
	UnitPrice money.Amount `gorm:"not null" json:"-"`
	Total     money.Amount `gorm:"not null" json:"-"`
	TaxType   enum.TaxType `gorm:"default:0" json:"tax_type"`
	CreatedAt time.Time    `json:"created_at"`
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (ri ReceiptItem) MarshalJSON() ([]byte, error) {
	type Alias ReceiptItem
	return json.Marshal(&struct {
		Alias
		UnitPrice float64 `json:"unit_price"`
		Total     float64 `json:"total"`
	}{
		Alias:     Alias(ri),
		UnitPrice: ri.UnitPrice.Float64(),
		Total:     ri.Total.Float64(),
	})
}

// BeforeCreate generates a UUID before creating a new receipt item
func (ri *ReceiptItem) BeforeCreate(tx *gorm.DB) error {
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ReceiptItem model
func (ReceiptItem) TableName() string {
	return "receipt_items"
}

// NormalizeCustomerKey canonicalizes a customer identity so every spelling
// of the same name lands on one ledger: whitespace is collapsed and the
// result is lowercased.
func NormalizeCustomerKey(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// TotalOutstanding sums total debt across a customer's receipts. It is used
// to snapshot old_balance_at_creation when a new receipt is written.
func TotalOutstanding(receipts []Receipt) money.Amount {
	var total money.Amount
	for i := range receipts {
		total = total.Add(receipts[i].TotalDebt().ClampNonNegative())
	}
	return total
}
