package reports

import (
	"math"

	"parking-analytics/internal/insight"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

// indicator is one headline metric of the comparison report.
type indicator struct {
	key    string
	label  string
	cur    float64
	prev   float64
	points bool // compare in percentage points instead of relative change
}

func buildComparison(r *Report, snap parking.Snapshot, p Params) {
	curW, prevW := r.Period.Current, r.Period.Previous

	curIncome := computeIncome(snap.Payments, curW)
	prevIncome := computeIncome(snap.Payments, prevW)
	curMov := computeMovements(snap.Sessions, curW)
	prevMov := computeMovements(snap.Sessions, prevW)
	curSubs := computeSubscriptions(snap.Subscriptions, curW)
	prevSubs := computeSubscriptions(snap.Subscriptions, prevW)

	cfg := stats.ConfigFromFacility(snap.Facility)
	curOcc := stats.ComputeOccupancy(stats.FilterPresent(snap.Sessions, curW), curW, cfg)
	prevOcc := stats.ComputeOccupancy(stats.FilterPresent(snap.Sessions, prevW), prevW, cfg)

	indicators := []indicator{
		{"income", "Income", curIncome.Total, prevIncome.Total, false},
		{"transactions", "Transactions", float64(curIncome.Count), float64(prevIncome.Count), false},
		{"average_ticket", "Average ticket", curIncome.AvgTicket, prevIncome.AvgTicket, false},
		{"entries", "Entries", float64(curMov.Entries), float64(prevMov.Entries), false},
		{"average_stay_hours", "Average stay", curMov.AvgStay, prevMov.AvgStay, false},
		{"average_occupancy", "Average occupancy", curOcc.Average, prevOcc.Average, true},
		{"active_subscriptions", "Active subscriptions", float64(curSubs.Active), float64(prevSubs.Active), false},
		{"digital_share", "Digital share", curIncome.DigitalShare, prevIncome.DigitalShare, true},
	}

	improved, declined := 0, 0
	var best, worst *indicator
	var bestPct, worstPct float64
	for i := range indicators {
		ind := &indicators[i]
		var d stats.Descriptor
		if ind.points {
			d = r.share(ind.key, ind.cur, ind.prev)
		} else {
			d = r.kpi(ind.key, ind.cur, ind.prev)
		}

		change := stats.PercentChange(ind.cur, ind.prev)
		if ind.points {
			change = ind.cur - ind.prev
		}
		switch d.Tone {
		case stats.TonePositive:
			improved++
			if best == nil || change > bestPct {
				best, bestPct = ind, change
			}
		case stats.ToneNegative:
			declined++
			if worst == nil || change < worstPct {
				worst, worstPct = ind, change
			}
		}
	}
	r.Current["improved"] = float64(improved)
	r.Current["declined"] = float64(declined)

	r.Series["daily_income"] = stats.DailySeries(curIncome.Payments, curW, paymentTime, paymentAmount)
	r.Series["daily_income_previous"] = stats.DailySeries(prevIncome.Payments, prevW, paymentTime, paymentAmount)
	r.Series["daily_entries"] = stats.DailySeries(snap.Sessions, curW, entryTime, nil)
	r.Series["daily_entries_previous"] = stats.DailySeries(snap.Sessions, prevW, entryTime, nil)
	r.Breakdowns["by_method"] = stats.Breakdown(curIncome.Payments, methodLabel, paymentAmount)
	r.Breakdowns["by_method_previous"] = stats.Breakdown(prevIncome.Payments, methodLabel, paymentAmount)

	against := policyPhrase(r.Period.Policy)
	var bestLabel, bestDesc, worstLabel, worstDesc string
	if best != nil {
		bestLabel, bestDesc = best.label, r.Descriptors[best.key].Label
	}
	if worst != nil {
		worstLabel, worstDesc = worst.label, r.Descriptors[worst.key].Label
	}

	rules := []insight.Rule{
		insight.When(improved+declined > 0, "%d of %d indicators improved %s.", improved, len(indicators), against),
		insight.When(best != nil, "%s improved the most (%s).", bestLabel, bestDesc),
		insight.When(worst != nil, "%s declined the most (%s).", worstLabel, worstDesc),
		insight.When(curIncome.Total > 0 || prevIncome.Total > 0, "Income was %s against %s %s.",
			insight.Money(curIncome.Total), insight.Money(prevIncome.Total), against),
		insight.When(curMov.Entries > 0 || prevMov.Entries > 0, "Entries went from %d to %d.", prevMov.Entries, curMov.Entries),
		insight.When(improved+declined == 0 && !snap.IsEmpty(), "All indicators are stable %s.", against),
		insight.When(math.Abs(curOcc.Average-prevOcc.Average) >= 10, "Average occupancy moved %s.", r.Descriptors["average_occupancy"].Label),
	}
	r.Insights = insight.Generate(p.InsightLimit, rules...)
}

func policyPhrase(p stats.PreviousPolicy) string {
	switch p {
	case stats.PolicyMonth:
		return "versus the same span last month"
	case stats.PolicyQuarter:
		return "versus 90 days earlier"
	case stats.PolicyYear:
		return "versus the same span last year"
	}
	return "versus the previous period"
}
