package service

import (
	"context"
	"path/filepath"
	"testing"

	"tokenledger/internal/config"
	"tokenledger/internal/infrastructure/database"
	"tokenledger/internal/model"
	"tokenledger/pkg/idgen"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway SQLite-backed gorm DB with the full schema.
// A single connection keeps concurrent transactions serialized the way a
// real MySQL pool would serialize conflicting row updates.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				LedgerEvents:   "ledger.events",
				TopupConfirmed: "ledger.topup.confirmed",
			},
		},
		Business: config.BusinessConfig{
			ReferralPercent:          10.0,
			AnimateCostDiamonds:      5,
			GenerationTimeoutMinutes: 30,
			MaxRetryCount:            5,
		},
	}
}

// seedAccount inserts an account with the given balances directly.
func seedAccount(t *testing.T, db *gorm.DB, tgID int64, diamonds, bananas int) *model.Account {
	t.Helper()

	account := &model.Account{
		TgID:         tgID,
		Username:     "user",
		Diamonds:     diamonds,
		Bananas:      bananas,
		ReferralCode: idgen.NewReferralCode(),
		SelectedTier: model.TierNano,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func reloadAccount(t *testing.T, db *gorm.DB, id int64) *model.Account {
	t.Helper()

	var account model.Account
	if err := db.First(&account, id).Error; err != nil {
		t.Fatalf("reload account %d: %v", id, err)
	}
	return &account
}

func reloadTransaction(t *testing.T, db *gorm.DB, id int64) *model.Transaction {
	t.Helper()

	var trans model.Transaction
	if err := db.First(&trans, id).Error; err != nil {
		t.Fatalf("reload transaction %d: %v", id, err)
	}
	return &trans
}

func countTransactions(t *testing.T, db *gorm.DB, accountID int64) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&model.Transaction{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return count
}

var testCtx = context.Background()
