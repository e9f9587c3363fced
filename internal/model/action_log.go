package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActionLog is an append-only audit trail of privileged actions, kept
// separate from the transaction journal.
type ActionLog struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	TgID      int64             `gorm:"index;not null" json:"tg_id"`
	Username  string            `gorm:"type:varchar(255)" json:"username"`
	Action    string            `gorm:"type:varchar(64);not null" json:"action"`
	Payload   datatypes.JSONMap `gorm:"type:json" json:"payload,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ActionLog) TableName() string {
	return "action_logs"
}
