package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tokenledger/internal/config"
	"tokenledger/internal/infrastructure/lock"
	"tokenledger/internal/model"
	"tokenledger/internal/repository"
	"tokenledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConfirmService turns a pending top-up into credited balance exactly
// once. The pending->paid flip is a conditional update on the external
// id, so however many times a webhook is redelivered, only one delivery
// wins and credits; the rest observe the already-paid row.
type ConfirmService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	bonus           BonusCalculator
}

// NewConfirmService wires the gateway. redisClient may be nil, in which
// case the advisory confirmation lock is skipped and correctness rests
// on the conditional update alone.
func NewConfirmService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ConfirmService {
	return &ConfirmService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		bonus:           NewBonusCalculator(cfg.Business.ReferralPercent),
	}
}

// Confirm settles the pending top-up identified by externalID. The
// credit and, when the account was referred, the referrer's bonus commit
// in one database transaction; a failure anywhere rolls back everything
// and leaves the row pending for a retry.
//
// A delivery that loses the status flip returns ErrTransactionNotFound
// whether the id is unknown or already confirmed: the two cases are
// deliberately indistinguishable, so a redelivered webhook learns
// nothing beyond "nothing to do".
func (s *ConfirmService) Confirm(ctx context.Context, externalID string) (trans *model.Transaction, err error) {
	if s.redisClient != nil {
		confirmLock := lock.NewConfirmLock(s.redisClient, externalID)
		if lockErr := confirmLock.Lock(ctx, 100*time.Millisecond, 50); lockErr != nil {
			return nil, lockErr
		}
		defer func() {
			if unlockErr := confirmLock.Unlock(context.Background()); unlockErr != nil {
				log.Printf("[ConfirmService] failed to release lock for %s: %v", externalID, unlockErr)
			}
		}()
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		won, markErr := s.transactionRepo.MarkPaidByExternalID(ctx, tx, externalID)
		if markErr != nil {
			return markErr
		}
		if !won {
			return repository.ErrTransactionNotFound
		}

		var getErr error
		trans, getErr = s.transactionRepo.GetByExternalID(ctx, tx, externalID)
		if getErr != nil {
			return getErr
		}

		credit := trans.Delta()
		if applyErr := s.accountRepo.ApplyDelta(ctx, tx, trans.AccountID, credit); applyErr != nil {
			return applyErr
		}

		if bonusErr := s.creditReferrer(ctx, tx, trans); bonusErr != nil {
			return bonusErr
		}

		return s.writeConfirmedEvent(ctx, tx, trans)
	})
	if err != nil {
		return nil, err
	}
	return trans, nil
}

// creditReferrer pays the referral bonus for a confirmed top-up. The
// bonus is a percentage of the purchased diamonds, rounded half-up to
// two decimal places, credited to both the referrer's spendable and
// lifetime-earned USDT. Amounts that round to zero produce no row.
func (s *ConfirmService) creditReferrer(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	account, err := s.accountRepo.GetByID(ctx, tx, trans.AccountID)
	if err != nil {
		return err
	}
	if account.ReferrerID == nil {
		return nil
	}

	amount := s.bonus.Bonus(trans.AmountDiamonds)
	if !amount.IsPositive() {
		return nil
	}

	delta := model.BalanceDelta{Usdt: amount, EarnedUsdt: amount}
	if err := s.accountRepo.ApplyDelta(ctx, tx, *account.ReferrerID, delta); err != nil {
		return err
	}

	bonusTx := &model.Transaction{
		TransactionNo: idgen.NewTransactionNo(),
		AccountID:     *account.ReferrerID,
		Type:          model.TxTypeReferralBonus,
		Status:        model.TxStatusPaid,
		AmountUsdt:    amount,
		Payload:       datatypes.JSONMap{"source_tx": derefString(trans.ExternalID)},
	}
	return s.transactionRepo.Create(ctx, tx, bonusTx)
}

func (s *ConfirmService) writeConfirmedEvent(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	body, err := json.Marshal(map[string]interface{}{
		"event":           "topup.confirmed",
		"transaction_no":  trans.TransactionNo,
		"external_id":     derefString(trans.ExternalID),
		"account_id":      trans.AccountID,
		"amount_diamonds": trans.AmountDiamonds,
		"occurred_at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	msg := &model.OutboxMessage{
		MessageKey: trans.TransactionNo,
		Topic:      s.cfg.Kafka.Topic.TopupConfirmed,
		Payload:    string(body),
		Status:     model.OutboxStatusPending,
	}
	return s.outboxRepo.Create(ctx, tx, msg)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
