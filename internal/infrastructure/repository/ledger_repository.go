package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	domainRepo "github.com/sangkips/posledger-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a gorm-backed ledger store
func NewLedgerRepository(db *gorm.DB) domainRepo.LedgerStore {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CreateReceipt(ctx context.Context, receipt *entity.Receipt) error {
	// The snapshot and the insert share one transaction; the row locks keep
	// a racing payment from changing the outstanding debt mid-snapshot.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []entity.Receipt
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("customer_key = ?", receipt.CustomerKey).
			Find(&existing).Error
		if err != nil {
			return err
		}

		receipt.OldBalanceAtCreation = entity.TotalOutstanding(existing)
		return tx.Create(receipt).Error
	})
}

func (r *ledgerRepository) GetReceipt(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&receipt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *ledgerRepository) ReadReceipts(ctx context.Context, customerKey string) ([]entity.Receipt, error) {
	var receipts []entity.Receipt
	err := r.db.WithContext(ctx).
		Where("customer_key = ?", customerKey).
		Find(&receipts).Error
	return receipts, err
}

func (r *ledgerRepository) List(ctx context.Context, params *domainRepo.ReceiptFilterParams) ([]entity.Receipt, int64, error) {
	var receipts []entity.Receipt
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Receipt{})

	if params.CustomerKey != "" {
		query = query.Where("customer_key = ?", entity.NormalizeCustomerKey(params.CustomerKey))
	}

	if params.Search != "" {
		query = query.Where("invoice_no ILIKE ?", "%"+params.Search+"%")
	}

	if params.DueOnly {
		query = query.Where("(line_items_total - amount_paid) + (old_balance_at_creation - old_balance_cleared) > 0")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Sorting
	sortBy := "created_at"
	sortOrder := "DESC"
	if params.SortBy != "" {
		sortBy = params.SortBy
	}
	if params.SortOrder != "" && (params.SortOrder == "ASC" || params.SortOrder == "asc") {
		sortOrder = "ASC"
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order(sortBy + " " + sortOrder + ", id " + sortOrder).
		Find(&receipts).Error

	return receipts, total, err
}

// ListWithCursor returns receipts using cursor-based pagination
func (r *ledgerRepository) ListWithCursor(ctx context.Context, params *domainRepo.ReceiptCursorFilterParams) ([]entity.Receipt, error) {
	var receipts []entity.Receipt

	params.Cursor.Validate()
	query := r.db.WithContext(ctx).Model(&entity.Receipt{})

	if params.CustomerKey != "" {
		query = query.Where("customer_key = ?", entity.NormalizeCustomerKey(params.CustomerKey))
	}

	if params.Search != "" {
		query = query.Where("invoice_no ILIKE ?", "%"+params.Search+"%")
	}

	if params.DueOnly {
		query = query.Where("(line_items_total - amount_paid) + (old_balance_at_creation - old_balance_cleared) > 0")
	}

	cursor, err := params.Cursor.DecodeCursor()
	if err != nil {
		return nil, err
	}

	if cursor != nil {
		if params.Cursor.Direction == "next" {
			query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
		} else {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	err = query.Limit(params.Cursor.Limit + 1).
		Order("created_at ASC, id ASC").
		Find(&receipts).Error

	return receipts, err
}

func (r *ledgerRepository) AtomicApply(ctx context.Context, write *domainRepo.LedgerWrite) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, receipt := range write.Receipts {
			res := tx.Model(&entity.Receipt{}).
				Where("id = ? AND version = ?", receipt.ID, receipt.Version).
				Updates(map[string]interface{}{
					"amount_paid":         receipt.AmountPaid,
					"old_balance_cleared": receipt.OldBalanceCleared,
					"version":             receipt.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			// Zero rows means the version moved underneath us; abort the
			// whole write so the engine recomputes against fresh state.
			if res.RowsAffected == 0 {
				return fmt.Errorf("receipt %s: %w", receipt.ID, domainRepo.ErrWriteConflict)
			}
		}

		if len(write.Transactions) > 0 {
			if err := tx.Create(write.Transactions).Error; err != nil {
				return err
			}
		}

		if write.Idempotency != nil {
			if err := tx.Create(write.Idempotency).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("key %q: %w", write.Idempotency.Key, domainRepo.ErrDuplicateIdempotencyKey)
				}
				return err
			}
		}

		return nil
	})
}
