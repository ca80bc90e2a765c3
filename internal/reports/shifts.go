package reports

import (
	"strings"
	"time"

	"parking-analytics/internal/insight"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

type shiftTotals struct {
	Count         int
	Open          int
	Ops           int
	Revenue       float64
	Incidents     int
	AvgEfficiency float64
	AvgCompliance float64
}

func totalShifts(scores []stats.ShiftScore, records []parking.ShiftRecord) shiftTotals {
	t := shiftTotals{Count: len(scores)}
	eff := make([]float64, 0, len(scores))
	comp := make([]float64, 0, len(scores))
	revenue := make([]float64, 0, len(scores))
	for _, sc := range scores {
		t.Ops += sc.Ops
		t.Incidents += sc.Incidents
		revenue = append(revenue, sc.Revenue)
		eff = append(eff, float64(sc.Efficiency))
		comp = append(comp, sc.Compliance)
	}
	for _, rec := range records {
		if rec.Open {
			t.Open++
		}
	}
	t.Revenue = stats.Round(stats.Sum(revenue), 2)
	t.AvgEfficiency = stats.Round(stats.Average(eff), 1)
	t.AvgCompliance = stats.Round(stats.Average(comp), 4)
	return t
}

func buildShifts(r *Report, snap parking.Snapshot, p Params) {
	curRecords := stats.FilterWindow(snap.Shifts, r.Period.Current)
	prevRecords := stats.FilterWindow(snap.Shifts, r.Period.Previous)

	// Scores are relative to the shifts of each window.
	curScores := stats.ScoreShifts(curRecords, snap.Sessions)
	prevScores := stats.ScoreShifts(prevRecords, snap.Sessions)
	cur := totalShifts(curScores, curRecords)
	prev := totalShifts(prevScores, prevRecords)

	r.kpi("shifts", float64(cur.Count), float64(prev.Count))
	r.kpi("average_efficiency", cur.AvgEfficiency, prev.AvgEfficiency)
	r.kpi("operations", float64(cur.Ops), float64(prev.Ops))
	r.kpi("revenue", cur.Revenue, prev.Revenue)
	incDesc := r.kpi("incidents", float64(cur.Incidents), float64(prev.Incidents)).Invert()
	r.Descriptors["incidents"] = incDesc
	r.share("average_compliance", cur.AvgCompliance*100, prev.AvgCompliance*100)
	r.Current["open_shifts"] = float64(cur.Open)
	r.Previous["open_shifts"] = float64(prev.Open)

	byAssignee := stats.RankBy(curScores, stats.ByAssignee)
	byType := stats.RankBy(curScores, stats.ByShiftType)
	r.Rankings["by_assignee"] = byAssignee
	r.Rankings["by_shift_type"] = byType
	r.Breakdowns["revenue_by_assignee"] = stats.Breakdown(curScores, stats.ByAssignee, func(sc stats.ShiftScore) float64 { return sc.Revenue })
	r.Series["daily_operations"] = stats.DailySeries(curScores, r.Period.Current,
		func(sc stats.ShiftScore) *time.Time { return &sc.Start },
		func(sc stats.ShiftScore) float64 { return float64(sc.Ops) })
	r.Shifts = curScores

	var best, bestType stats.RankedItem
	if len(byAssignee) > 0 {
		best = byAssignee[0]
	}
	if len(byType) > 1 {
		bestType = byType[0]
	}

	rules := []insight.Rule{
		insight.Either(cur.Count > 0,
			insight.When(true, "%d %s recorded with an average efficiency of %.1f.", cur.Count, insight.Plural(cur.Count, "shift", "shifts"), cur.AvgEfficiency),
			insight.When(true, "No shifts were recorded in the period.")),
		insight.When(best.Shifts > 0, "%s leads with an average efficiency of %.1f across %d %s.",
			best.Label, best.Score, best.Shifts, insight.Plural(best.Shifts, "shift", "shifts")),
		insight.When(bestType.Shifts > 0, "%s shifts perform best (%.1f average efficiency).", capitalize(bestType.Label), bestType.Score),
	}
	if cur.Count > 0 {
		rules = append(rules,
			insight.Either(cur.Incidents > 0,
				insight.When(true, "%d completed %s closed without a valid fee (%s vs previous period).",
					cur.Incidents, insight.Plural(cur.Incidents, "session", "sessions"), incDesc.Label),
				insight.When(true, "No fee incidents were recorded in the period.")),
			insight.When(cur.AvgCompliance < 0.9, "Shifts covered %s of their scheduled hours on average.", insight.Pct(cur.AvgCompliance*100)),
			insight.When(cur.Open > 0, "%d %s still open.", cur.Open, insight.Plural(cur.Open, "shift is", "shifts are")),
		)
	}
	r.Insights = insight.Generate(p.InsightLimit, rules...)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
