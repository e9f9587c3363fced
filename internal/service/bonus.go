package service

import (
	"github.com/shopspring/decimal"
)

// BonusCalculator derives the referrer's monetary bonus from a confirmed
// top-up. Pure: percent injected at construction so tests can vary it.
type BonusCalculator struct {
	percent decimal.Decimal
}

func NewBonusCalculator(percent float64) BonusCalculator {
	return BonusCalculator{percent: decimal.NewFromFloat(percent)}
}

// Bonus returns diamonds * percent / 100, rounded half up to 2 decimal
// places.
func (c BonusCalculator) Bonus(diamonds int) decimal.Decimal {
	return decimal.NewFromInt(int64(diamonds)).
		Mul(c.percent).
		Div(decimal.NewFromInt(100)).
		Round(2)
}
