package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdempotencyRecord stores the outcome of a processed payment so a retried
// request replays the original result instead of applying twice. Unlike
// HTTP-level idempotency caches these records never expire: replaying a
// stale key must not double-charge a customer.
type IdempotencyRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Key       string    `gorm:"uniqueIndex;size:255;not null"` // The idempotency key from client
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index"`

	// RequestHash is a SHA256 over the request arguments; a key reused with
	// different arguments is rejected rather than silently replayed.
	RequestHash string `gorm:"size:64;not null"`

	// Result is the JSON-encoded cascade result of the original call.
	Result    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BeforeCreate generates a UUID before creating a new idempotency record
func (i *IdempotencyRecord) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for IdempotencyRecord
func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}

// Matches reports whether the stored request hash matches the incoming one.
func (i *IdempotencyRecord) Matches(requestHash string) bool {
	return i.RequestHash == requestHash
}
