package stats

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"Empty", []float64{}, 0},
		{"SingleItem", []float64{5.5}, 5.5},
		{"OddCount", []float64{1.1, 3.3, 2.2, 4.4, 5.5}, 3.3},
		{"EvenCount", []float64{1, 2, 3, 4}, 2.5},
		{"Unsorted", []float64{10.5, 2.5, 8.5, 4.5, 6.5}, 6.5},
		{"IgnoresNaN", []float64{math.NaN(), 2, 4}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.values); got != tt.expected {
				t.Errorf("Median() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRatio_ZeroSafe(t *testing.T) {
	if got := Ratio(5, 0); got != 0 {
		t.Errorf("Ratio(5, 0) = %v", got)
	}
	if got := Percent(1, 4); got != 25 {
		t.Errorf("Percent(1, 4) = %v", got)
	}
	if got := Round(math.Inf(1), 2); got != 0 {
		t.Errorf("Round(+Inf) = %v", got)
	}
	if got := Round(2.345, 1); got != 2.3 {
		t.Errorf("Round(2.345, 1) = %v", got)
	}
}
