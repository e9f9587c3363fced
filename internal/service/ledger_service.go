package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tokenledger/internal/config"
	"tokenledger/internal/model"
	"tokenledger/internal/repository"
	"tokenledger/pkg/idgen"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerService is the transaction engine: every balance change goes
// through here, and every change applies its delta and writes its journal
// row in one database transaction. There is no separate check-then-act
// anywhere; the non-negative guard lives in the conditional update.
type LedgerService struct {
	db              *gorm.DB
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	actionLogRepo   *repository.ActionLogRepository
}

func NewLedgerService(db *gorm.DB, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:              db,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		actionLogRepo:   repository.NewActionLogRepository(db),
	}
}

// Debit atomically decreases balances and records a paid spend
// transaction. cost carries positive amounts. Returns
// repository.ErrInsufficientBalance when any balance would go negative;
// in that case nothing is recorded.
func (s *LedgerService) Debit(ctx context.Context, accountID int64, cost model.BalanceDelta, method string, payload map[string]interface{}) (*model.Transaction, error) {
	var trans *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		trans, err = s.debitTx(ctx, tx, accountID, cost, method, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trans, nil
}

func (s *LedgerService) debitTx(ctx context.Context, tx *gorm.DB, accountID int64, cost model.BalanceDelta, method string, payload map[string]interface{}) (*model.Transaction, error) {
	delta := cost.Negate()
	if err := s.accountRepo.ApplyDelta(ctx, tx, accountID, delta); err != nil {
		return nil, err
	}
	trans := &model.Transaction{
		TransactionNo:  idgen.NewTransactionNo(),
		AccountID:      accountID,
		Type:           model.TxTypeSpend,
		Method:         method,
		Status:         model.TxStatusPaid,
		AmountDiamonds: delta.Diamonds,
		AmountBananas:  delta.Bananas,
		AmountUsdt:     delta.Usdt,
		Payload:        datatypes.JSONMap(payload),
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return nil, fmt.Errorf("record spend: %w", err)
	}
	return trans, nil
}

// Refund is the saga compensation for a committed debit: a new spend
// transaction with inverted sign, not a mutation of the original. The
// original debit stays in history.
func (s *LedgerService) Refund(ctx context.Context, accountID int64, cost model.BalanceDelta, method string, payload map[string]interface{}) (*model.Transaction, error) {
	var trans *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		trans, err = s.refundTx(ctx, tx, accountID, cost, method, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trans, nil
}

func (s *LedgerService) refundTx(ctx context.Context, tx *gorm.DB, accountID int64, cost model.BalanceDelta, method string, payload map[string]interface{}) (*model.Transaction, error) {
	if err := s.accountRepo.ApplyDelta(ctx, tx, accountID, cost); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["compensation"] = true
	trans := &model.Transaction{
		TransactionNo:  idgen.NewTransactionNo(),
		AccountID:      accountID,
		Type:           model.TxTypeSpend,
		Method:         method,
		Status:         model.TxStatusPaid,
		AmountDiamonds: cost.Diamonds,
		AmountBananas:  cost.Bananas,
		AmountUsdt:     cost.Usdt,
		Payload:        datatypes.JSONMap(payload),
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return nil, fmt.Errorf("record refund: %w", err)
	}
	if err := s.writeEvent(ctx, tx, trans.TransactionNo, "spend.refunded", trans); err != nil {
		return nil, err
	}
	return trans, nil
}

// CreatePendingTopup records a pending top-up carrying the unique
// external id. Balances are untouched until confirmation. A colliding
// external id returns repository.ErrDuplicateExternalID.
func (s *LedgerService) CreatePendingTopup(ctx context.Context, accountID int64, diamonds int, method, externalID string, payload map[string]interface{}) (*model.Transaction, error) {
	trans := &model.Transaction{
		TransactionNo:  idgen.NewTransactionNo(),
		AccountID:      accountID,
		Type:           model.TxTypeTopup,
		Method:         method,
		Status:         model.TxStatusPending,
		AmountDiamonds: diamonds,
		ExternalID:     &externalID,
		Payload:        datatypes.JSONMap(payload),
	}
	if err := s.transactionRepo.Create(ctx, nil, trans); err != nil {
		return nil, err
	}
	return trans, nil
}

// AdminAdjust applies a signed delta and records a paid admin_adjust
// transaction, plus an audit log entry. A debit-direction adjustment that
// would drive a balance negative fails with
// repository.ErrInsufficientBalance and records nothing.
func (s *LedgerService) AdminAdjust(ctx context.Context, accountID int64, delta model.BalanceDelta, adminTgID int64, adminUsername string) (*model.Transaction, error) {
	var trans *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.ApplyDelta(ctx, tx, accountID, delta); err != nil {
			return err
		}
		trans = &model.Transaction{
			TransactionNo:  idgen.NewTransactionNo(),
			AccountID:      accountID,
			Type:           model.TxTypeAdminAdjust,
			Status:         model.TxStatusPaid,
			AmountDiamonds: delta.Diamonds,
			AmountBananas:  delta.Bananas,
			AmountUsdt:     delta.Usdt,
			Payload:        datatypes.JSONMap{"admin_id": adminTgID},
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("record adjustment: %w", err)
		}
		return s.writeEvent(ctx, tx, trans.TransactionNo, "admin.adjusted", trans)
	})
	if err != nil {
		return nil, err
	}

	// Audit trail is best effort and outside the ledger transaction; a
	// failed log write must not roll back a committed adjustment.
	logEntry := &model.ActionLog{
		TgID:     adminTgID,
		Username: adminUsername,
		Action:   "admin_adjust",
		Payload: datatypes.JSONMap{
			"account_id":     accountID,
			"diamonds_delta": delta.Diamonds,
			"bananas_delta":  delta.Bananas,
		},
	}
	if err := s.actionLogRepo.Create(ctx, logEntry); err != nil {
		return trans, fmt.Errorf("adjustment committed, audit log failed: %w", err)
	}
	return trans, nil
}

// ListActionLogs returns the newest audit trail entries.
func (s *LedgerService) ListActionLogs(ctx context.Context, limit int) ([]*model.ActionLog, error) {
	return s.actionLogRepo.List(ctx, limit)
}

// ListTransactions pages through one account's journal, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, accountID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.transactionRepo.ListByAccountID(ctx, accountID, page, pageSize)
}

func (s *LedgerService) writeEvent(ctx context.Context, tx *gorm.DB, key, event string, trans *model.Transaction) error {
	body, err := json.Marshal(map[string]interface{}{
		"event":           event,
		"transaction_no":  trans.TransactionNo,
		"account_id":      trans.AccountID,
		"type":            trans.Type,
		"amount_diamonds": trans.AmountDiamonds,
		"amount_bananas":  trans.AmountBananas,
		"amount_usdt":     trans.AmountUsdt,
		"occurred_at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	msg := &model.OutboxMessage{
		MessageKey: key,
		Topic:      s.cfg.Kafka.Topic.LedgerEvents,
		Payload:    string(body),
		Status:     model.OutboxStatusPending,
	}
	return s.outboxRepo.Create(ctx, tx, msg)
}
