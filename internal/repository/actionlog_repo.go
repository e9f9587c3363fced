package repository

import (
	"context"

	"tokenledger/internal/model"

	"gorm.io/gorm"
)

type ActionLogRepository struct {
	db *gorm.DB
}

func NewActionLogRepository(db *gorm.DB) *ActionLogRepository {
	return &ActionLogRepository{db: db}
}

func (r *ActionLogRepository) Create(ctx context.Context, entry *model.ActionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ActionLogRepository) List(ctx context.Context, limit int) ([]*model.ActionLog, error) {
	if limit <= 0 {
		limit = 1000
	}
	var entries []*model.ActionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
