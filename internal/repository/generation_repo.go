package repository

import (
	"context"
	"errors"
	"time"

	"tokenledger/internal/model"

	"gorm.io/gorm"
)

var ErrGenerationNotFound = errors.New("generation not found or already finished")

type GenerationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, tx *gorm.DB, gen *model.Generation) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(gen).Error
}

func (r *GenerationRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Generation, error) {
	if tx == nil {
		tx = r.db
	}
	var gen model.Generation
	err := tx.WithContext(ctx).Where("id = ?", id).First(&gen).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, err
	}
	return &gen, nil
}

// MarkCompleted finishes a generation with its result reference. The
// status predicate makes the terminal transition happen at most once.
func (r *GenerationRepository) MarkCompleted(ctx context.Context, id int64, resultURL string) error {
	return r.finish(ctx, nil, id, model.GenStatusCompleted, map[string]interface{}{
		"status":     model.GenStatusCompleted,
		"result_url": resultURL,
	})
}

// MarkFailed finishes a generation with an error detail. Runs on the
// caller's transaction so the flip commits together with the
// compensating refund.
func (r *GenerationRepository) MarkFailed(ctx context.Context, tx *gorm.DB, id int64, errMsg string) error {
	return r.finish(ctx, tx, id, model.GenStatusFailed, map[string]interface{}{
		"status": model.GenStatusFailed,
		"error":  errMsg,
	})
}

func (r *GenerationRepository) finish(ctx context.Context, tx *gorm.DB, id int64, status model.GenerationStatus, updates map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Generation{}).
		Where("id = ? AND status = ?", id, model.GenStatusProcessing).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGenerationNotFound
	}
	return nil
}

// ListStuckProcessing returns generations that have been in processing
// since before the cutoff; the reaper fails and refunds them.
func (r *GenerationRepository) ListStuckProcessing(ctx context.Context, before time.Time, limit int) ([]*model.Generation, error) {
	var gens []*model.Generation
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.GenStatusProcessing, before).
		Limit(limit).
		Find(&gens).Error
	return gens, err
}
