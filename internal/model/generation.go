package model

import (
	"time"
)

// Generation kinds.
type GenerationKind string

const (
	GenKindText2Img      GenerationKind = "text2img"
	GenKindPresetImg2Img GenerationKind = "preset_img2img"
	GenKindAnimate       GenerationKind = "animate"
)

// Generation statuses.
type GenerationStatus string

const (
	GenStatusProcessing GenerationStatus = "processing"
	GenStatusCompleted  GenerationStatus = "completed"
	GenStatusFailed     GenerationStatus = "failed"
)

// Generation is the audit record of one unit of paid work. It is created
// in processing at the same moment the corresponding spend transaction is
// recorded, and reaches a terminal status exactly once: completed with a
// result reference, or failed with an error detail (which triggers the
// compensating refund).
type Generation struct {
	ID           int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID    int64            `gorm:"index;not null" json:"account_id"`
	Kind         GenerationKind   `gorm:"type:varchar(32);not null" json:"kind"`
	Tier         string           `gorm:"type:varchar(16)" json:"tier"`
	Prompt       string           `gorm:"type:text" json:"prompt,omitempty"`
	Preset       *string          `gorm:"type:varchar(64)" json:"preset,omitempty"`
	Status       GenerationStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	CostDiamonds int              `gorm:"not null;default:0" json:"cost_diamonds"`
	CostBananas  int              `gorm:"not null;default:0" json:"cost_bananas"`
	ResultURL    string           `gorm:"type:text" json:"result_url,omitempty"`
	Error        string           `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Generation) TableName() string {
	return "generations"
}

// Cost returns the delta that was debited for this generation.
func (g *Generation) Cost() BalanceDelta {
	return BalanceDelta{Diamonds: g.CostDiamonds, Bananas: g.CostBananas}
}
