package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service tiers. The base tier can be paid with either token currency,
// the premium tier only with diamonds (see service.PricingResolver).
const (
	TierNano = "nano"
	TierPro  = "pro"
)

// Account holds one end user's balances in all three currencies.
//
// Diamonds and Bananas are integer token counters and must never go
// negative; the repository enforces that with a conditional update, never
// with a read-then-write in application code. UsdtBalance is spendable
// referral earnings; EarnedUsdt is a lifetime audit counter and is only
// ever incremented. Accounts are never deleted.
type Account struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TgID           int64           `gorm:"uniqueIndex;not null" json:"tg_id"`
	Username       string          `gorm:"type:varchar(255)" json:"username"`
	Diamonds       int             `gorm:"not null;default:0" json:"diamonds"`
	Bananas        int             `gorm:"not null;default:0" json:"bananas"`
	UsdtBalance    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"usdt_balance"`
	EarnedUsdt     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"earned_usdt"`
	ReferralCode   string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"referral_code"`
	ReferrerID     *int64          `gorm:"index" json:"referrer_id,omitempty"`
	SelectedTier   string          `gorm:"type:varchar(16);not null;default:nano" json:"selected_tier"`
	SelectedPreset *string         `gorm:"type:varchar(64)" json:"selected_preset,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// BalanceDelta is a signed vector of currency changes applied to one
// account together with exactly one transaction record.
type BalanceDelta struct {
	Diamonds   int
	Bananas    int
	Usdt       decimal.Decimal
	EarnedUsdt decimal.Decimal
}

// Negate returns the compensating delta, used to build refunds.
func (d BalanceDelta) Negate() BalanceDelta {
	return BalanceDelta{
		Diamonds:   -d.Diamonds,
		Bananas:    -d.Bananas,
		Usdt:       d.Usdt.Neg(),
		EarnedUsdt: d.EarnedUsdt.Neg(),
	}
}

// IsZero reports whether applying the delta would change nothing.
func (d BalanceDelta) IsZero() bool {
	return d.Diamonds == 0 && d.Bananas == 0 && d.Usdt.IsZero() && d.EarnedUsdt.IsZero()
}
