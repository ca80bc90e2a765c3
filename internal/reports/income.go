package reports

import (
	"parking-analytics/internal/insight"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

func methodLabel(p parking.PaymentEvent) string { return p.Method.Label() }

func buildIncome(r *Report, snap parking.Snapshot, p Params) {
	curW := r.Period.Current
	cur := computeIncome(snap.Payments, curW)
	prev := computeIncome(snap.Payments, r.Period.Previous)

	totalDesc := r.kpi("total_income", cur.Total, prev.Total)
	r.kpi("transactions", float64(cur.Count), float64(prev.Count))
	ticketDesc := r.kpi("average_ticket", cur.AvgTicket, prev.AvgTicket)
	r.kpi("daily_average", cur.DailyAvg, prev.DailyAvg)
	r.kpi("max_payment", cur.Max, prev.Max)
	r.share("digital_share", cur.DigitalShare, prev.DigitalShare)

	daily := stats.DailySeries(cur.Payments, curW, paymentTime, paymentAmount)
	r.Series["daily_income"] = daily
	r.Series["daily_transactions"] = stats.DailySeries(cur.Payments, curW, paymentTime, nil)
	r.Series["hourly_transactions"] = stats.HourCounts(cur.Payments, curW, paymentTime)
	trend := halfTrend(daily)
	r.Descriptors["trend"] = trend

	byMethod := stats.Breakdown(cur.Payments, methodLabel, paymentAmount)
	r.Breakdowns["by_method"] = byMethod
	byZone := stats.Breakdown(cur.Payments, func(p parking.PaymentEvent) string { return zoneLabel(p.Zone) }, paymentAmount)
	r.Breakdowns["by_zone"] = byZone

	bestDay, hasBest := argMax(daily)
	var topMethod, topZone stats.BreakdownItem
	if len(byMethod) > 0 {
		topMethod = byMethod[0]
	}
	if len(byZone) > 1 {
		topZone = byZone[0]
	}

	rules := []insight.Rule{
		insight.When(cur.Total > 0, "Income reached %s (%s vs previous period).", insight.Money(cur.Total), totalDesc.Label),
		insight.When(hasBest, "The best day was %s with %s collected.", bestDay.Label, insight.Money(bestDay.Value)),
		insight.When(topMethod.Amount > 0, "%s accounts for %s of income.", topMethod.Label, insight.Pct(topMethod.Share)),
		insight.When(cur.Count > 0, "Average ticket was %s across %d %s (%s).",
			insight.Money(cur.AvgTicket), cur.Count, insight.Plural(cur.Count, "payment", "payments"), ticketDesc.Label),
		insight.When(cur.Total > 0 && trend.Tone != stats.ToneNeutral, "Income in the second half of the period moved %s against the first half.", trend.Label),
	}
	if cur.Total > 0 {
		rules = append(rules, insight.Either(cur.DigitalShare >= 50,
			insight.When(true, "Digital payments represent %s of income.", insight.Pct(cur.DigitalShare)),
			insight.When(true, "Cash-like payments still dominate; only %s of income is digital.", insight.Pct(cur.DigitalShare))))
	}
	rules = append(rules,
		insight.When(topZone.Amount > 0, "Zone %s generates %s of income.", topZone.Label, insight.Pct(topZone.Share)),
		insight.When(cur.Total == 0 && prev.Total > 0, "No income was recorded in the period, down from %s.", insight.Money(prev.Total)),
	)
	r.Insights = insight.Generate(p.InsightLimit, rules...)
}
