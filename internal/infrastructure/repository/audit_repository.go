package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	domainRepo "github.com/sangkips/posledger-api/internal/domain/repository"
	"github.com/sangkips/posledger-api/pkg/pagination"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a read-only view over the payment audit trail.
// Writes happen exclusively through the ledger store's atomic apply.
func NewAuditRepository(db *gorm.DB) domainRepo.AuditTrail {
	return &auditRepository{db: db}
}

func (r *auditRepository) ListForReceipt(ctx context.Context, receiptID uuid.UUID, params *pagination.PaginationParams) ([]entity.PaymentTransaction, int64, error) {
	var transactions []entity.PaymentTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PaymentTransaction{}).
		Where("receipt_id = ?", receiptID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("created_at ASC, id ASC").
		Find(&transactions).Error

	return transactions, total, err
}

func (r *auditRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entity.IdempotencyRecord, error) {
	var record entity.IdempotencyRecord
	err := r.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *auditRepository) ExistsWithIdempotencyKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.IdempotencyRecord{}).
		Where("key = ?", key).
		Count(&count).Error
	return count > 0, err
}
