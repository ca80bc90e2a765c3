package reports

import (
	"parking-analytics/internal/insight"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

// methodOrder fixes the KPI order so output does not depend on map iteration.
var methodOrder = []parking.PaymentMethod{
	parking.MethodCash, parking.MethodTransfer, parking.MethodCard, parking.MethodQR,
	parking.MethodWalletLink, parking.MethodSubscription, parking.MethodOther,
}

func buildPaymentMethods(r *Report, snap parking.Snapshot, p Params) {
	curW := r.Period.Current
	cur := computeIncome(snap.Payments, curW)
	prev := computeIncome(snap.Payments, r.Period.Previous)

	totalDesc := r.kpi("total", cur.Total, prev.Total)
	r.share("digital_share", cur.DigitalShare, prev.DigitalShare)

	curAmounts := amountsByMethod(cur.Payments)
	prevAmounts := amountsByMethod(prev.Payments)

	type shift struct {
		label string
		delta float64
		desc  stats.Descriptor
	}
	var gainer, loser shift
	used := 0
	for _, m := range methodOrder {
		ca, pa := curAmounts[m], prevAmounts[m]
		if ca == 0 && pa == 0 {
			continue
		}
		if ca > 0 {
			used++
		}
		cs := stats.Round(stats.Percent(ca, cur.Total), 1)
		ps := stats.Round(stats.Percent(pa, prev.Total), 1)
		r.kpi("amount."+string(m), stats.Round(ca, 2), stats.Round(pa, 2))
		d := r.share("share."+string(m), cs, ps)

		delta := cs - ps
		if d.Tone == stats.TonePositive && delta > gainer.delta {
			gainer = shift{m.Label(), delta, d}
		}
		if d.Tone == stats.ToneNegative && delta < loser.delta {
			loser = shift{m.Label(), delta, d}
		}
	}
	r.Current["methods_used"] = float64(used)

	byMethod := stats.Breakdown(cur.Payments, methodLabel, paymentAmount)
	r.Breakdowns["by_method"] = byMethod
	r.Breakdowns["by_method_previous"] = stats.Breakdown(prev.Payments, methodLabel, paymentAmount)
	r.Breakdowns["count_by_method"] = stats.Breakdown(cur.Payments, methodLabel, nil)
	r.Series["daily_total"] = stats.DailySeries(cur.Payments, curW, paymentTime, paymentAmount)
	r.Series["daily_digital"] = stats.DailySeries(cur.Payments, curW, paymentTime, func(p parking.PaymentEvent) float64 {
		if p.Method.IsDigital() {
			return p.Amount
		}
		return 0
	})

	var top stats.BreakdownItem
	if len(byMethod) > 0 {
		top = byMethod[0]
	}

	r.Insights = insight.Generate(p.InsightLimit,
		insight.When(top.Amount > 0, "%s leads with %s of collections (%s).", top.Label, insight.Pct(top.Share), insight.Money(top.Amount)),
		insight.When(gainer.delta > 0, "%s gained %s in share versus the previous period.", gainer.label, gainer.desc.Label),
		insight.When(loser.delta < 0, "%s lost %s in share versus the previous period.", loser.label, trimSign(loser.desc.Label)),
		insight.When(cur.Total > 0, "Digital methods account for %s of collections.", insight.Pct(cur.DigitalShare)),
		insight.When(used > 1, "%d payment methods were used in the period.", used),
		insight.When(cur.Total > 0, "Total collections were %s (%s vs previous period).", insight.Money(cur.Total), totalDesc.Label),
	)
}

func amountsByMethod(payments []parking.PaymentEvent) map[parking.PaymentMethod]float64 {
	grouped := make(map[parking.PaymentMethod][]float64)
	for _, p := range payments {
		grouped[p.Method] = append(grouped[p.Method], p.Amount)
	}
	out := make(map[parking.PaymentMethod]float64, len(grouped))
	for m, v := range grouped {
		out[m] = stats.Sum(v)
	}
	return out
}

func trimSign(label string) string {
	if len(label) > 0 && (label[0] == '-' || label[0] == '+') {
		return label[1:]
	}
	return label
}
