package stats

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// BreakdownItem is one category of a group-by.
type BreakdownItem struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
	Share  float64 `json:"share"` // % of the total amount, 1 decimal
}

// TrendPoint is one point of a day or hour series.
type TrendPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DistributionBucket is one fixed-edge bucket with its integer share.
type DistributionBucket struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// Sum adds values with decimal accumulation. Negative and non-finite values count as zero.
func Sum(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		if !isFinite(v) || v <= 0 {
			continue
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

// SumBy sums the values extracted from items.
func SumBy[T any](items []T, value func(T) float64) float64 {
	values := make([]float64, len(items))
	for i, it := range items {
		values[i] = value(it)
	}
	return Sum(values)
}

// Count returns the number of items matching pred. A nil pred counts everything.
func Count[T any](items []T, pred func(T) bool) int {
	if pred == nil {
		return len(items)
	}
	n := 0
	for _, it := range items {
		if pred(it) {
			n++
		}
	}
	return n
}

// Average returns the arithmetic mean of the finite values, or 0 for an empty set.
func Average(values []float64) float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		sum += v
		n++
	}
	return Ratio(sum, float64(n))
}

// WeightedAverage returns sum(v*w)/sum(w), or 0 when the total weight is zero.
// Extra values without a weight are ignored.
func WeightedAverage(values, weights []float64) float64 {
	var num, den float64
	for i := 0; i < len(values) && i < len(weights); i++ {
		if !isFinite(values[i]) || !isFinite(weights[i]) || weights[i] <= 0 {
			continue
		}
		num += values[i] * weights[i]
		den += weights[i]
	}
	return Ratio(num, den)
}

// Breakdown groups items by key, accumulating amount and count. The result is sorted
// by amount descending; equal amounts keep first-seen order.
func Breakdown[T any](items []T, key func(T) string, amount func(T) float64) []BreakdownItem {
	type group struct {
		total decimal.Decimal
		count int
	}
	order := []string{}
	groups := make(map[string]*group)
	grand := decimal.Zero

	for _, it := range items {
		k := key(it)
		g, ok := groups[k]
		if !ok {
			g = &group{total: decimal.Zero}
			groups[k] = g
			order = append(order, k)
		}
		g.count++
		if amount == nil {
			continue
		}
		if v := amount(it); isFinite(v) && v > 0 {
			d := decimal.NewFromFloat(v)
			g.total = g.total.Add(d)
			grand = grand.Add(d)
		}
	}

	out := make([]BreakdownItem, 0, len(order))
	total := grand.InexactFloat64()
	for _, k := range order {
		g := groups[k]
		amt := g.total.InexactFloat64()
		item := BreakdownItem{Label: k, Amount: amt, Count: g.count}
		if amount == nil {
			item.Amount = float64(g.count)
			item.Share = Round(Percent(float64(g.count), float64(len(items))), 1)
		} else {
			item.Share = Round(Percent(amt, total), 1)
		}
		out = append(out, item)
	}

	slices.SortStableFunc(out, func(a, b BreakdownItem) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		}
		return 0
	})
	return out
}

// DailySeries emits one point per calendar day of w, zero-filled, summing value over
// the items whose timestamp falls on that day. A nil value counts items.
func DailySeries[T any](items []T, w TimeWindow, ts func(T) *time.Time, value func(T) float64) []TrendPoint {
	days := w.Days()
	totals := make(map[string]float64, len(days))
	loc := w.From.Location()

	for _, it := range items {
		t := ts(it)
		if t == nil || !w.Contains(*t) {
			continue
		}
		v := 1.0
		if value != nil {
			v = value(it)
		}
		if !isFinite(v) {
			continue
		}
		totals[DayKey(t.In(loc))] += v
	}

	out := make([]TrendPoint, len(days))
	for i, d := range days {
		key := DayKey(d)
		out[i] = TrendPoint{Label: key, Value: Round(totals[key], 2)}
	}
	return out
}

// HourlySeries returns 24 buckets ("00".."23"). Each value is the number of records
// present at hh:00 of every day in w, averaged over the days.
func HourlySeries[T Spanner](items []T, w TimeWindow) []TrendPoint {
	days := w.Days()
	out := make([]TrendPoint, 24)
	for h := 0; h < 24; h++ {
		var total int
		for _, d := range days {
			total += CountPresent(items, hourOf(d, h))
		}
		out[h] = TrendPoint{Label: HourLabel(h), Value: Round(Ratio(float64(total), float64(len(days))), 2)}
	}
	return out
}

// HourCounts returns 24 buckets counting the instants (as chosen by ts) by hour of day.
func HourCounts[T any](items []T, w TimeWindow, ts func(T) *time.Time) []TrendPoint {
	counts := make([]int, 24)
	loc := w.From.Location()
	for _, it := range items {
		if t := ts(it); t != nil && w.Contains(*t) {
			counts[t.In(loc).Hour()]++
		}
	}
	out := make([]TrendPoint, 24)
	for h, c := range counts {
		out[h] = TrendPoint{Label: HourLabel(h), Value: float64(c)}
	}
	return out
}

// HourLabel formats an hour of day as "07".
func HourLabel(h int) string {
	return fmt.Sprintf("%02d", h)
}

func hourOf(day time.Time, h int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
}

// DefaultStayEdges are the stay-duration bucket edges in hours.
var DefaultStayEdges = []float64{1, 3, 6}

// Distribution buckets values by ascending edges: v < edges[0], edges[i-1] <= v < edges[i],
// v >= last edge. Percentages are integers summing to exactly 100 for non-empty input.
func Distribution(values []float64, edges []float64) []DistributionBucket {
	labels := BucketLabels(edges, "h")
	counts := make([]int, len(edges)+1)
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		idx := len(edges)
		for i, e := range edges {
			if v < e {
				idx = i
				break
			}
		}
		counts[idx]++
	}

	pcts := LargestRemainder(counts)
	out := make([]DistributionBucket, len(counts))
	for i := range counts {
		out[i] = DistributionBucket{Label: labels[i], Count: counts[i], Percent: pcts[i]}
	}
	return out
}

// LargestRemainder converts counts into integer percentages summing to 100: floor each
// exact share, then hand the leftover points to the largest fractional remainders,
// ties going to the earlier bucket. All zeros when the total is zero.
func LargestRemainder(counts []int) []int {
	out := make([]int, len(counts))
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return out
	}

	rem := make([]float64, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(c) * 100 / float64(total)
		out[i] = int(math.Floor(exact))
		rem[i] = exact - float64(out[i])
		assigned += out[i]
	}

	idx := make([]int, len(counts))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case rem[a] > rem[b]:
			return -1
		case rem[a] < rem[b]:
			return 1
		}
		return 0
	})
	for k := 0; k < 100-assigned; k++ {
		out[idx[k%len(idx)]]++
	}
	return out
}

// BucketLabels names the buckets for edges, e.g. [1 3 6] -> "<1h" "1-3h" "3-6h" ">6h".
func BucketLabels(edges []float64, unit string) []string {
	labels := make([]string, len(edges)+1)
	if len(edges) == 0 {
		labels[0] = "all"
		return labels
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	labels[0] = "<" + f(edges[0]) + unit
	for i := 1; i < len(edges); i++ {
		labels[i] = f(edges[i-1]) + "-" + f(edges[i]) + unit
	}
	labels[len(edges)] = ">" + f(edges[len(edges)-1]) + unit
	return labels
}
