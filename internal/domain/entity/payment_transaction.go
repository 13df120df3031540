package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/enum"
	"github.com/sangkips/posledger-api/pkg/money"
	"gorm.io/gorm"
)

// PaymentTransaction is the append-only audit record for one receipt touched
// by one payment. It is created once and never updated or deleted; derived
// receipt balances can be rebuilt from these records alone.
type PaymentTransaction struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptID   uuid.UUID `gorm:"type:uuid;not null;index" json:"receipt_id"`
	CustomerKey string    `gorm:"size:255;not null;index" json:"customer_key"`

	// IdempotencyKey ties every record written by one ApplyPayment call
	// together. One payment that cascades across receipts produces several
	// records sharing a key.
	IdempotencyKey string `gorm:"size:255;not null;index" json:"idempotency_key"`

	// Amount is the total consumed against this receipt: own-debt portion
	// plus OldBalancePortion.
	Amount money.Amount `gorm:"not null" json:"-"`

	// OldBalancePortion is how much of Amount cleared carried-forward debt.
	// It is never folded into the receipt's amount_paid.
	OldBalancePortion money.Amount `gorm:"not null;default:0" json:"-"`

	// BalanceBefore/BalanceAfter capture the receipt's own balance around
	// this transaction.
	BalanceBefore money.Amount `gorm:"not null" json:"-"`
	BalanceAfter  money.Amount `gorm:"not null" json:"-"`

	Method    enum.PaymentMethod `gorm:"size:20;not null" json:"method"`
	AppliedAt time.Time          `gorm:"not null" json:"applied_at"`
	CreatedAt time.Time          `json:"created_at"`
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (t PaymentTransaction) MarshalJSON() ([]byte, error) {
	type Alias PaymentTransaction
	return json.Marshal(&struct {
		Alias
		Amount            float64 `json:"amount"`
		OldBalancePortion float64 `json:"old_balance_portion"`
		BalanceBefore     float64 `json:"balance_before"`
		BalanceAfter      float64 `json:"balance_after"`
	}{
		Alias:             Alias(t),
		Amount:            t.Amount.Float64(),
		OldBalancePortion: t.OldBalancePortion.Float64(),
		BalanceBefore:     t.BalanceBefore.Float64(),
		BalanceAfter:      t.BalanceAfter.Float64(),
	})
}

// BeforeCreate generates a UUID before creating a new payment transaction
func (t *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the PaymentTransaction model
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
