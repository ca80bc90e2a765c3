package visuals

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"parking-analytics/internal/reports"
	"parking-analytics/internal/stats"
)

// maxPoints is where Mermaid's xychart starts overlapping axis labels.
const maxPoints = 60

// Chart is one named Mermaid diagram.
type Chart struct {
	Name    string `json:"name"`
	Mermaid string `json:"mermaid"`
}

// ReportCharts renders every collection of the report as a chart, in a stable order:
// series, then breakdowns, distributions and rankings. A "<name>_previous"
// series is drawn as a second line on "<name>".
func ReportCharts(r reports.Report) []Chart {
	var charts []Chart

	for _, key := range sortedKeys(r.Series) {
		if strings.HasSuffix(key, "_previous") {
			continue
		}
		prev := r.Series[key+"_previous"]
		if c := TrendChart(humanize(key), r.Series[key], prev); c != "" {
			charts = append(charts, Chart{Name: key, Mermaid: c})
		}
	}
	for _, key := range sortedKeys(r.Breakdowns) {
		if strings.HasSuffix(key, "_previous") {
			continue
		}
		if c := BreakdownPie(humanize(key), r.Breakdowns[key]); c != "" {
			charts = append(charts, Chart{Name: key, Mermaid: c})
		}
	}
	for _, key := range sortedKeys(r.Distributions) {
		if c := DistributionChart(humanize(key), r.Distributions[key]); c != "" {
			charts = append(charts, Chart{Name: key, Mermaid: c})
		}
	}
	for _, key := range sortedKeys(r.Rankings) {
		if c := RankingChart(humanize(key), r.Rankings[key]); c != "" {
			charts = append(charts, Chart{Name: key, Mermaid: c})
		}
	}
	return charts
}

// TrendChart creates a Mermaid xychart-beta line chart. previous, when it has
// the same length, is drawn as a second line.
func TrendChart(title string, points, previous []stats.TrendPoint) string {
	if len(points) == 0 || allZero(points) && allZero(previous) {
		return ""
	}

	// Subsample points if the chart is too wide for Mermaid's layout engine
	rate := 1
	if len(points) > maxPoints {
		rate = int(math.Ceil(float64(len(points)) / maxPoints))
	}
	withPrev := len(previous) == len(points)

	var labels, values, prevValues []string
	maxY := 0.0
	for i, p := range points {
		if withPrev {
			maxY = math.Max(maxY, previous[i].Value)
		}
		maxY = math.Max(maxY, p.Value)
		if i%rate != 0 && i != len(points)-1 {
			continue
		}
		labels = append(labels, quote(p.Label))
		values = append(values, fmt.Sprintf("%.1f", p.Value))
		if withPrev {
			prevValues = append(prevValues, fmt.Sprintf("%.1f", previous[i].Value))
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %s\n", quote(title)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis 0 --> %d\n", yMax(maxY)))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	if withPrev {
		sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(prevValues, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

// BreakdownPie creates a Mermaid pie chart of a categorical breakdown.
func BreakdownPie(title string, items []stats.BreakdownItem) string {
	total := 0.0
	for _, it := range items {
		total += it.Amount
	}
	if total <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("pie title %s\n", title))
	for _, it := range items {
		if it.Amount <= 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s : %.2f\n", quote(it.Label), it.Amount))
	}
	sb.WriteString("```")
	return sb.String()
}

// DistributionChart creates a Mermaid bar chart of bucket percentages.
func DistributionChart(title string, buckets []stats.DistributionBucket) string {
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total == 0 {
		return ""
	}

	labels := make([]string, len(buckets))
	values := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = quote(b.Label)
		values[i] = strconv.Itoa(b.Percent)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %s\n", quote(title)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"%\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// RankingChart creates a Mermaid bar chart of efficiency rankings (top 20).
func RankingChart(title string, items []stats.RankedItem) string {
	if len(items) == 0 {
		return ""
	}
	limit := min(len(items), 20)

	var labels, values []string
	for _, it := range items[:limit] {
		labels = append(labels, quote(it.Label))
		values = append(values, fmt.Sprintf("%.0f", it.Score))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %s\n", quote(title)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Efficiency\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func allZero(points []stats.TrendPoint) bool {
	for _, p := range points {
		if p.Value != 0 {
			return false
		}
	}
	return true
}

func yMax(v float64) int {
	return int(math.Ceil(math.Max(1, v*1.2)))
}

// quote escapes a Mermaid label. Double quotes cannot be escaped inside labels.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "'") + `"`
}

func humanize(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
