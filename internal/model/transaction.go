package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction types.
type TransactionType string

const (
	TxTypeSpend         TransactionType = "spend"
	TxTypeTopup         TransactionType = "topup"
	TxTypeReferralBonus TransactionType = "referral_bonus"
	TxTypeAdminAdjust   TransactionType = "admin_adjust"
)

// Transaction statuses.
type TransactionStatus string

const (
	TxStatusPending TransactionStatus = "pending"
	TxStatusPaid    TransactionStatus = "paid"
	TxStatusFailed  TransactionStatus = "failed"
)

// Payment methods recorded on top-up transactions. Spends record their
// generation kind as the method instead.
const (
	MethodCard  = "card"
	MethodStars = "stars"
)

// CanTransitionTo guards the transaction status machine. The only driven
// transition is pending -> paid (confirmation); everything else is created
// directly in a terminal status. A generation spend that fails downstream
// is compensated by a new refund transaction, never by mutating the
// original debit.
func CanTransitionTo(current, target TransactionStatus) bool {
	return current == TxStatusPending && target == TxStatusPaid
}

// Transaction is one append-only journal entry. Rows are never updated
// after reaching a terminal status and never deleted.
//
// ExternalID is the idempotency key for payment confirmation: unique
// across the whole table when present, NULL for internal entries.
type Transaction struct {
	ID             int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo  string            `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	AccountID      int64             `gorm:"index;not null" json:"account_id"`
	Type           TransactionType   `gorm:"type:varchar(32);not null" json:"type"`
	Method         string            `gorm:"type:varchar(32)" json:"method"`
	Status         TransactionStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	AmountDiamonds int               `gorm:"not null;default:0" json:"amount_diamonds"`
	AmountBananas  int               `gorm:"not null;default:0" json:"amount_bananas"`
	AmountUsdt     decimal.Decimal   `gorm:"type:decimal(14,2);not null;default:0" json:"amount_usdt"`
	ExternalID     *string           `gorm:"type:varchar(128);uniqueIndex" json:"external_id,omitempty"`
	Payload        datatypes.JSONMap `gorm:"type:json" json:"payload,omitempty"`
	CreatedAt      time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Delta returns the balance change this transaction represents.
func (t *Transaction) Delta() BalanceDelta {
	return BalanceDelta{
		Diamonds: t.AmountDiamonds,
		Bananas:  t.AmountBananas,
		Usdt:     t.AmountUsdt,
	}
}
