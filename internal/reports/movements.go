package reports

import (
	"parking-analytics/internal/insight"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

func buildMovements(r *Report, snap parking.Snapshot, p Params) {
	curW, prevW := r.Period.Current, r.Period.Previous
	cur := computeMovements(snap.Sessions, curW)
	prev := computeMovements(snap.Sessions, prevW)

	entriesDesc := r.kpi("entries", float64(cur.Entries), float64(prev.Entries))
	r.kpi("exits", float64(cur.Exits), float64(prev.Exits))
	r.kpi("movements", float64(cur.Entries+cur.Exits), float64(prev.Entries+prev.Exits))
	r.kpi("average_stay_hours", cur.AvgStay, prev.AvgStay)
	r.kpi("median_stay_hours", cur.MedianStay, prev.MedianStay)
	r.kpi("unique_vehicles", float64(cur.UniqueVehicles), float64(prev.UniqueVehicles))
	r.kpi("repeat_visitors", float64(cur.RepeatVisitors), float64(prev.RepeatVisitors))
	r.kpi("daily_average_entries",
		stats.Round(stats.Ratio(float64(cur.Entries), float64(curW.PeriodDays())), 2),
		stats.Round(stats.Ratio(float64(prev.Entries), float64(prevW.PeriodDays())), 2))
	r.Current["inside_at_end"] = float64(cur.InsideAtEnd)
	r.Previous["inside_at_end"] = float64(prev.InsideAtEnd)

	r.Series["daily_entries"] = stats.DailySeries(snap.Sessions, curW, entryTime, nil)
	r.Series["daily_exits"] = stats.DailySeries(snap.Sessions, curW, exitTime, nil)
	hourlyEntries := stats.HourCounts(snap.Sessions, curW, entryTime)
	r.Series["hourly_entries"] = hourlyEntries
	r.Series["hourly_exits"] = stats.HourCounts(snap.Sessions, curW, exitTime)
	r.Series["hourly_presence"] = stats.HourlySeries(stats.FilterPresent(snap.Sessions, curW), curW)

	dist := stats.Distribution(cur.Durations, p.StayEdges)
	r.Distributions["stay"] = dist
	r.Distributions["stay_previous"] = stats.Distribution(prev.Durations, p.StayEdges)

	entered := stats.FilterAt(snap.Sessions, curW, entryTime)
	byZone := stats.Breakdown(entered, func(s parking.ParkingSession) string { return zoneLabel(s.Zone) }, nil)
	r.Breakdowns["by_zone"] = byZone

	var topZone stats.BreakdownItem
	if len(byZone) > 1 {
		topZone = byZone[0]
	}
	peak, hasPeak := argMax(hourlyEntries)
	var topBucket stats.DistributionBucket
	for _, b := range dist {
		if b.Percent > topBucket.Percent {
			topBucket = b
		}
	}

	r.Insights = insight.Generate(p.InsightLimit,
		insight.When(cur.Entries > 0, "%d vehicle entries (%s vs previous period).", cur.Entries, entriesDesc.Label),
		insight.When(hasPeak, "Most arrivals happen at %s:00 (%.0f entries).", peak.Label, peak.Value),
		insight.When(cur.AvgStay > 0, "Average stay was %s (median %s).", insight.Hours(cur.AvgStay), insight.Hours(cur.MedianStay)),
		insight.When(topBucket.Percent > 0, "%d%% of stays fall in the %s bucket.", topBucket.Percent, topBucket.Label),
		insight.When(cur.RepeatVisitors > 0, "%d %s visited more than once.", cur.RepeatVisitors, insight.Plural(cur.RepeatVisitors, "vehicle", "vehicles")),
		insight.When(topZone.Count > 0, "Zone %s concentrates %s of entries.", topZone.Label, insight.Pct(topZone.Share)),
		insight.When(cur.InsideAtEnd > 0, "%d %s still inside at the end of the period.", cur.InsideAtEnd, insight.Plural(cur.InsideAtEnd, "vehicle was", "vehicles were")),
	)
}
