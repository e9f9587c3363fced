package repository

import (
	"context"
	"errors"

	"tokenledger/internal/model"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateExternalID = errors.New("duplicate external id")
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts one journal row. A unique-key violation on a non-nil
// external id comes back as ErrDuplicateExternalID: that is illegal
// duplicate creation, a different condition from an idempotent
// confirmation replay.
func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(trans).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) && trans.ExternalID != nil {
		return ErrDuplicateExternalID
	}
	return err
}

func (r *TransactionRepository) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*model.Transaction, error) {
	if tx == nil {
		tx = r.db
	}
	var trans model.Transaction
	err := tx.WithContext(ctx).Where("external_id = ?", externalID).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// MarkPaidByExternalID flips a pending transaction to paid. The status
// predicate makes the flip a compare-and-swap: of any number of
// concurrent confirmations of the same external id, exactly one sees
// RowsAffected == 1. RowsAffected == 0 covers both an unknown id and an
// already-confirmed one; a caller needing the distinction reads the row
// afterwards on the same transaction.
func (r *TransactionRepository) MarkPaidByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("external_id = ? AND status = ?", externalID, model.TxStatusPending).
		Update("status", model.TxStatusPaid)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("account_id = ?", accountID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
