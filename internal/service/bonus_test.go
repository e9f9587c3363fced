package service

import (
	"testing"
)

func TestBonusPercentOfDiamonds(t *testing.T) {
	tests := []struct {
		name     string
		percent  float64
		diamonds int
		want     string
	}{
		{"ten percent of 40", 10, 40, "4"},
		{"ten percent of 100", 10, 100, "10"},
		{"ten percent of 1", 10, 1, "0.1"},
		{"rounds half up", 12.5, 1, "0.13"},
		{"rounds half up at boundary", 2.5, 1, "0.03"},
		{"zero diamonds", 10, 0, "0"},
		{"zero percent", 0, 500, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBonusCalculator(tt.percent).Bonus(tt.diamonds)
			if got.String() != tt.want {
				t.Errorf("Bonus(%d) at %v%% = %s, want %s", tt.diamonds, tt.percent, got, tt.want)
			}
		})
	}
}

func TestBonusScalesLinearly(t *testing.T) {
	calc := NewBonusCalculator(10)
	single := calc.Bonus(40)
	double := calc.Bonus(80)
	if !double.Equal(single.Add(single)) {
		t.Errorf("Bonus(80) = %s, want 2 * Bonus(40) = %s", double, single.Add(single))
	}
}
