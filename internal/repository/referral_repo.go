package repository

import (
	"context"

	"tokenledger/internal/model"

	"gorm.io/gorm"
)

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) Create(ctx context.Context, tx *gorm.DB, referral *model.Referral) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(referral).Error
}

func (r *ReferralRepository) CountByReferrer(ctx context.Context, referrerID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("referrer_id = ?", referrerID).
		Count(&count).Error
	return count, err
}
