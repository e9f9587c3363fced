package model

import (
	"time"
)

// Referral is a denormalized edge recorded once per successful referred
// signup. It exists for counting; bonus computation reads
// Account.ReferrerID directly at confirmation time.
type Referral struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID        int64     `gorm:"index;not null" json:"referrer_id"`
	ReferredAccountID int64     `gorm:"uniqueIndex;not null" json:"referred_account_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
