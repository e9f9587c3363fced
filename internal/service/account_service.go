package service

import (
	"context"
	"errors"

	"tokenledger/internal/model"
	"tokenledger/internal/repository"
	"tokenledger/pkg/idgen"

	"gorm.io/gorm"
)

var ErrInvalidTier = errors.New("invalid tier")

// createMaxAttempts bounds the referral-code collision retry loop. The
// code space is 36^8 so a second collision in a row means something is
// badly wrong; better to fail the request than spin.
const createMaxAttempts = 3

// AccountService manages account lifecycle and preferences. Account
// creation is where a referral attribution is decided, permanently: the
// referrer link set here never changes afterwards.
type AccountService struct {
	db           *gorm.DB
	accountRepo  *repository.AccountRepository
	referralRepo *repository.ReferralRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:           db,
		accountRepo:  repository.NewAccountRepository(db),
		referralRepo: repository.NewReferralRepository(db),
	}
}

// GetOrCreate returns the account for tgID, creating it on first contact.
// refCode, when present and valid, attributes the new account to its
// referrer; unknown codes and self-referral are silently ignored.
// Repeated calls refresh the stored username and never re-attribute.
func (s *AccountService) GetOrCreate(ctx context.Context, tgID int64, username, refCode string) (*model.Account, error) {
	account, err := s.accountRepo.GetByTgID(ctx, tgID)
	if err == nil {
		if username != "" && username != account.Username {
			if updErr := s.accountRepo.UpdateUsername(ctx, account.ID, username); updErr != nil {
				return nil, updErr
			}
			account.Username = username
		}
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}

	referrerID := s.resolveReferrer(ctx, tgID, refCode)

	for attempt := 0; attempt < createMaxAttempts; attempt++ {
		account = &model.Account{
			TgID:         tgID,
			Username:     username,
			ReferralCode: idgen.NewReferralCode(),
			ReferrerID:   referrerID,
			SelectedTier: model.TierNano,
		}
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if createErr := s.accountRepo.Create(ctx, tx, account); createErr != nil {
				return createErr
			}
			if referrerID == nil {
				return nil
			}
			return s.referralRepo.Create(ctx, tx, &model.Referral{
				ReferrerID:        *referrerID,
				ReferredAccountID: account.ID,
			})
		})
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Duplicate key is either a concurrent create of the same tg id
		// or a referral-code collision. Re-check for the former, retry
		// with a fresh code for the latter.
		if existing, getErr := s.accountRepo.GetByTgID(ctx, tgID); getErr == nil {
			return existing, nil
		}
	}
	return nil, err
}

// resolveReferrer maps a referral code to a referrer account id. Any
// problem (empty code, unknown code, the user's own code) yields nil: a
// bad deep link must not block account creation.
func (s *AccountService) resolveReferrer(ctx context.Context, tgID int64, refCode string) *int64 {
	if refCode == "" {
		return nil
	}
	referrer, err := s.accountRepo.GetByReferralCode(ctx, refCode)
	if err != nil {
		return nil
	}
	if referrer.TgID == tgID {
		return nil
	}
	id := referrer.ID
	return &id
}

func (s *AccountService) GetByTgID(ctx context.Context, tgID int64) (*model.Account, error) {
	return s.accountRepo.GetByTgID(ctx, tgID)
}

func (s *AccountService) Find(ctx context.Context, query string) (*model.Account, error) {
	return s.accountRepo.Find(ctx, query)
}

func (s *AccountService) SetSelectedTier(ctx context.Context, accountID int64, tier string) error {
	if tier != model.TierNano && tier != model.TierPro {
		return ErrInvalidTier
	}
	return s.accountRepo.SetSelectedTier(ctx, accountID, tier)
}

func (s *AccountService) SetSelectedPreset(ctx context.Context, accountID int64, preset *string) error {
	return s.accountRepo.SetSelectedPreset(ctx, accountID, preset)
}

// ReferralCount reports how many accounts this account has referred.
func (s *AccountService) ReferralCount(ctx context.Context, accountID int64) (int64, error) {
	return s.referralRepo.CountByReferrer(ctx, accountID)
}
