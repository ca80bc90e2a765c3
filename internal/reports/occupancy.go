package reports

import (
	"parking-analytics/internal/insight"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

func buildOccupancy(r *Report, snap parking.Snapshot, p Params) {
	cfg := stats.ConfigFromFacility(snap.Facility)
	curSessions := stats.FilterPresent(snap.Sessions, r.Period.Current)
	prevSessions := stats.FilterPresent(snap.Sessions, r.Period.Previous)

	cur := stats.ComputeOccupancy(curSessions, r.Period.Current, cfg)
	prev := stats.ComputeOccupancy(prevSessions, r.Period.Previous, cfg)

	avgDesc := r.share("average_occupancy", cur.Average, prev.Average)
	r.share("peak_hour_pct", cur.PeakHourPct, prev.PeakHourPct)
	r.share("peak_day_pct", cur.PeakDayPct, prev.PeakDayPct)
	r.kpi("sessions", float64(len(curSessions)), float64(len(prevSessions)))
	r.Current["capacity"] = float64(cfg.TotalCapacity)
	r.Current["reserved"] = float64(cfg.BaselineReserved)
	r.Current["peak_hour"] = float64(cur.PeakHour)
	r.Current["dead_hour"] = float64(cur.DeadHour)
	r.Previous["peak_hour"] = float64(prev.PeakHour)
	r.Previous["dead_hour"] = float64(prev.DeadHour)

	r.Series["hourly"] = cur.Hourly
	r.Series["hourly_previous"] = prev.Hourly
	daily := make([]stats.TrendPoint, len(cur.Daily))
	for i, d := range cur.Daily {
		daily[i] = stats.TrendPoint{Label: d.Label, Value: d.Percent}
	}
	r.Series["daily"] = daily
	r.Days = cur.Weekdays

	var highZones []stats.ZoneOccupancy
	if len(snap.Facility.Zones) > 0 {
		r.Zones = stats.ComputeZoneOccupancy(curSessions, r.Period.Current, snap.Facility.Zones, cfg.OperatingHours)
		for _, z := range r.Zones {
			if z.Risk == stats.RiskHigh {
				highZones = append(highZones, z)
			}
		}
	}

	configured := cfg.TotalCapacity > 0
	rules := []insight.Rule{
		insight.When(!configured, "Facility capacity is not configured, so occupancy cannot be measured."),
		insight.When(configured && cur.OperatingHrs > 0,
			"Average occupancy was %s during operating hours (%s vs previous period).", insight.Pct(cur.Average), avgDesc.Label),
		insight.When(configured && cur.PeakHourPct > 0,
			"Peak occupancy occurs at %s:00 with %s of capacity in use.", stats.HourLabel(cur.PeakHour), insight.Pct(cur.PeakHourPct)),
		insight.When(configured && cur.PeakDayPct > 0,
			"%s is the busiest day with %s average occupancy.", cur.PeakDay, insight.Pct(cur.PeakDayPct)),
		insight.When(configured && cur.Risk == stats.RiskHigh,
			"Occupancy on %s is at high saturation risk; consider redirecting demand.", cur.PeakDay),
		insight.When(configured && cur.Risk == stats.RiskMedium,
			"Occupancy on %s is at medium risk of saturation.", cur.PeakDay),
		insight.When(configured && cur.DeadHour >= 0 && cur.DeadHourPct < cur.Average,
			"%s:00 is the quietest operating hour (%s).", stats.HourLabel(cur.DeadHour), insight.Pct(cur.DeadHourPct)),
	}
	for _, z := range highZones {
		rules = append(rules, insight.When(true, "Zone %s is at high occupancy risk (%s).", z.Zone, insight.Pct(z.Percent)))
	}
	r.Insights = insight.Generate(p.InsightLimit, rules...)
}
