package stats

import (
	"math"
	"slices"
)

// Median finds the median value in a slice of floats.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Work on a copy to avoid mutating the original
	temp := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			temp = append(temp, v)
		}
	}
	if len(temp) == 0 {
		return 0
	}
	slices.Sort(temp)

	n := len(temp)
	if n%2 == 1 {
		return temp[n/2]
	}
	return (temp[n/2-1] + temp[n/2]) / 2.0
}

// Round rounds v to the given number of decimal places. Non-finite values become 0.
func Round(v float64, places int) float64 {
	if !isFinite(v) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Ratio returns num/den, or 0 when den is zero or the result is not finite.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	r := num / den
	if !isFinite(r) {
		return 0
	}
	return r
}

// Percent returns part as a percentage of total with a zero-safe fallback.
func Percent(part, total float64) float64 {
	return Ratio(part, total) * 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
