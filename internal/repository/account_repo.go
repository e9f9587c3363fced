package repository

import (
	"context"
	"errors"
	"strconv"

	"tokenledger/internal/model"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	if tx == nil {
		tx = r.db
	}
	var account model.Account
	err := tx.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByTgID(ctx context.Context, tgID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("tg_id = ?", tgID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Find looks an account up by tg id when the query is numeric, otherwise
// by username.
func (r *AccountRepository) Find(ctx context.Context, query string) (*model.Account, error) {
	if tgID, err := strconv.ParseInt(query, 10, 64); err == nil {
		return r.GetByTgID(ctx, tgID)
	}
	var account model.Account
	err := r.db.WithContext(ctx).Where("username = ?", query).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Update("username", username).Error
}

func (r *AccountRepository) SetSelectedTier(ctx context.Context, id int64, tier string) error {
	return r.updateField(ctx, id, "selected_tier", tier)
}

func (r *AccountRepository) SetSelectedPreset(ctx context.Context, id int64, preset *string) error {
	return r.updateField(ctx, id, "selected_preset", preset)
}

func (r *AccountRepository) updateField(ctx context.Context, id int64, column string, value interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ApplyDelta applies a signed balance vector to one account as a single
// conditional update. The WHERE clause carries the non-negative guard, so
// the check and the mutation are one statement and two concurrent debits
// can never both pass a stale balance check. RowsAffected == 0 means the
// guard rejected the delta (or the account is gone); the follow-up read
// on the same transaction tells the two apart.
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx *gorm.DB, accountID int64, delta model.BalanceDelta) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND diamonds + ? >= 0 AND bananas + ? >= 0 AND usdt_balance + ? >= 0",
			accountID, delta.Diamonds, delta.Bananas, delta.Usdt).
		Updates(map[string]interface{}{
			"diamonds":     gorm.Expr("diamonds + ?", delta.Diamonds),
			"bananas":      gorm.Expr("bananas + ?", delta.Bananas),
			"usdt_balance": gorm.Expr("usdt_balance + ?", delta.Usdt),
			"earned_usdt":  gorm.Expr("earned_usdt + ?", delta.EarnedUsdt),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, tx, accountID); err != nil {
			return err
		}
		return ErrInsufficientBalance
	}

	return nil
}
