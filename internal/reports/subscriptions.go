package reports

import (
	"parking-analytics/internal/insight"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

func buildSubscriptions(r *Report, snap parking.Snapshot, p Params) {
	curW, prevW := r.Period.Current, r.Period.Previous
	cur := computeSubscriptions(snap.Subscriptions, curW)
	prev := computeSubscriptions(snap.Subscriptions, prevW)

	activeDesc := r.kpi("active", float64(cur.Active), float64(prev.Active))
	r.kpi("new", float64(cur.New), float64(prev.New))
	renewDesc := r.kpi("renewals", float64(cur.Renewals), float64(prev.Renewals))
	r.Descriptors["expired"] = r.kpi("expired", float64(cur.Expired), float64(prev.Expired)).Invert()

	isSub := func(p parking.PaymentEvent) bool { return p.Method == parking.MethodSubscription }
	curRevenue := stats.SumBy(filter(stats.FilterAt(snap.Payments, curW, paymentTime), isSub), paymentAmount)
	prevRevenue := stats.SumBy(filter(stats.FilterAt(snap.Payments, prevW, paymentTime), isSub), paymentAmount)
	r.kpi("revenue", stats.Round(curRevenue, 2), stats.Round(prevRevenue, 2))

	reserved := snap.Facility.BaselineReserved
	if reserved > 0 {
		r.share("reserved_usage",
			stats.Round(stats.Percent(float64(cur.Active), float64(reserved)), 1),
			stats.Round(stats.Percent(float64(prev.Active), float64(reserved)), 1))
	}

	expiring := expiringSoon(snap.Subscriptions, p.Now)
	r.Expiring = expiring
	r.Current["expiring_soon"] = float64(len(expiring))

	byType := stats.Breakdown(cur.Overlap, func(s parking.SubscriptionRecord) string { return s.Type }, nil)
	r.Breakdowns["by_type"] = byType
	r.Breakdowns["by_zone"] = stats.Breakdown(cur.Overlap, func(s parking.SubscriptionRecord) string { return zoneLabel(s.Zone) }, nil)
	r.Breakdowns["by_status"] = stats.Breakdown(cur.Overlap, func(s parking.SubscriptionRecord) string { return string(s.Status) }, nil)
	r.Series["daily_new"] = stats.DailySeries(snap.Subscriptions, curW, subStart, nil)

	var topType stats.BreakdownItem
	if len(byType) > 1 {
		topType = byType[0]
	}

	rules := []insight.Rule{
		insight.When(cur.Active > 0, "%d active %s (%s vs previous period).", cur.Active, insight.Plural(cur.Active, "subscription", "subscriptions"), activeDesc.Label),
	}
	if cur.Active > 0 || prev.Active > 0 {
		rules = append(rules, insight.Either(cur.Renewals > 0,
			insight.When(true, "%d %s renewed in the period (%s).", cur.Renewals, insight.Plural(cur.Renewals, "subscription was", "subscriptions were"), renewDesc.Label),
			insight.When(true, "No renewals were recorded in the period.")))
	}
	rules = append(rules,
		insight.When(len(expiring) > 0, "%d %s within the next %d days.", len(expiring), insight.Plural(len(expiring), "subscription expires", "subscriptions expire"), parking.ExpiringSoonDays),
		insight.When(cur.New > 0, "%d new %s started.", cur.New, insight.Plural(cur.New, "subscription", "subscriptions")),
		insight.When(topType.Count > 0, "%s plans account for %s of subscriptions.", topType.Label, insight.Pct(topType.Share)),
		insight.When(reserved > 0 && cur.Active > reserved, "Active subscriptions exceed the %d reserved spots.", reserved),
		insight.When(cur.Expired > 0, "%d %s ended during the period.", cur.Expired, insight.Plural(cur.Expired, "subscription", "subscriptions")),
	)
	r.Insights = insight.Generate(p.InsightLimit, rules...)
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
