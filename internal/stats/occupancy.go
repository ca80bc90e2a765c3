package stats

import (
	"time"

	"parking-analytics/internal/parking"
)

// Risk classifies an occupancy level.
type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
)

// Fixed risk thresholds in percent.
const (
	HighRiskPct   = 80.0
	MediumRiskPct = 60.0
)

// RiskLevel classifies an occupancy percentage.
func RiskLevel(pct float64) Risk {
	switch {
	case pct >= HighRiskPct:
		return RiskHigh
	case pct >= MediumRiskPct:
		return RiskMedium
	default:
		return RiskLow
	}
}

// OccupancyConfig is the static facility metadata the model needs.
type OccupancyConfig struct {
	TotalCapacity    int
	BaselineReserved int
	// OperatingHours keyed by weekday; an empty map means open around the clock,
	// a missing or empty day means closed.
	OperatingHours map[time.Weekday][]parking.TimeRange
}

// ConfigFromFacility builds the occupancy config from facility metadata.
func ConfigFromFacility(f parking.Facility) OccupancyConfig {
	return OccupancyConfig{
		TotalCapacity:    f.TotalCapacity,
		BaselineReserved: f.BaselineReserved,
		OperatingHours:   f.OperatingHours,
	}
}

// DayOccupancy is the mean occupancy of a day or weekday across all 24 hours.
// Open reports whether any of those hours fall within operating hours.
type DayOccupancy struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
	Risk    Risk    `json:"risk"`
	Open    bool    `json:"open"`
}

// OccupancyResult aggregates the hour-by-hour occupancy of a window.
type OccupancyResult struct {
	Average      float64        `json:"average"`
	PeakHour     int            `json:"peak_hour"`
	PeakHourPct  float64        `json:"peak_hour_pct"`
	DeadHour     int            `json:"dead_hour"`
	DeadHourPct  float64        `json:"dead_hour_pct"`
	PeakDay      string         `json:"peak_day"`
	PeakDayPct   float64        `json:"peak_day_pct"`
	Risk         Risk           `json:"risk"`
	Hourly       []TrendPoint   `json:"hourly"`
	Weekdays     []DayOccupancy `json:"weekdays"`
	Daily        []DayOccupancy `json:"daily"`
	OperatingHrs int            `json:"operating_hours"`
}

// weekdayOrder lists days Monday first for display.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// ComputeOccupancy evaluates occupied(h) = baseline + sessions present at every hh:00 of
// every day in w. Percentages use TotalCapacity and are 0 when capacity is not positive.
// Hour and day profiles cover all hours; the overall average and the dead hour only
// consider operating hours.
func ComputeOccupancy(sessions []parking.ParkingSession, w TimeWindow, cfg OccupancyConfig) OccupancyResult {
	days := w.Days()
	capacity := float64(cfg.TotalCapacity)
	pct := func(present int) float64 {
		if capacity <= 0 {
			return 0
		}
		return float64(cfg.BaselineReserved+present) / capacity * 100
	}

	var hourSum [24]float64
	var hourOpen [24]bool
	weekdaySum := make(map[time.Weekday]float64)
	weekdayN := make(map[time.Weekday]int)
	weekdayOpen := make(map[time.Weekday]bool)
	var openSum float64
	openN := 0

	res := OccupancyResult{
		Hourly:   make([]TrendPoint, 24),
		Daily:    make([]DayOccupancy, 0, len(days)),
		Weekdays: make([]DayOccupancy, 0, 7),
	}

	for _, d := range days {
		var daySum float64
		dayOpen := false
		for h := 0; h < 24; h++ {
			at := hourOf(d, h)
			p := pct(CountPresent(sessions, at))
			hourSum[h] += p
			daySum += p
			if !IsOperating(cfg.OperatingHours, at) {
				continue
			}
			hourOpen[h] = true
			dayOpen = true
			openSum += p
			openN++
		}
		weekdaySum[d.Weekday()] += daySum
		weekdayN[d.Weekday()] += 24
		if dayOpen {
			weekdayOpen[d.Weekday()] = true
		}

		avg := Round(daySum/24, 1)
		res.Daily = append(res.Daily, DayOccupancy{Label: DayKey(d), Percent: avg, Risk: RiskLevel(avg), Open: dayOpen})
	}

	res.OperatingHrs = openN
	res.Average = Round(Ratio(openSum, float64(openN)), 1)

	res.DeadHour = -1
	res.PeakHour = -1
	for h := 0; h < 24; h++ {
		v := Round(Ratio(hourSum[h], float64(len(days))), 1)
		res.Hourly[h] = TrendPoint{Label: HourLabel(h), Value: v}
		if res.PeakHour < 0 || v > res.PeakHourPct {
			res.PeakHour, res.PeakHourPct = h, v
		}
		if hourOpen[h] && (res.DeadHour < 0 || v < res.DeadHourPct) {
			res.DeadHour, res.DeadHourPct = h, v
		}
	}

	for _, wd := range weekdayOrder {
		n := weekdayN[wd]
		avg := Round(Ratio(weekdaySum[wd], float64(n)), 1)
		res.Weekdays = append(res.Weekdays, DayOccupancy{Label: wd.String(), Percent: avg, Risk: RiskLevel(avg), Open: weekdayOpen[wd]})
		if n > 0 && (res.PeakDay == "" || avg > res.PeakDayPct) {
			res.PeakDay, res.PeakDayPct = wd.String(), avg
		}
	}
	res.Risk = RiskLevel(res.PeakDayPct)
	return res
}

// ZoneOccupancy is the operating-hours average occupancy of one zone.
type ZoneOccupancy struct {
	Zone     string  `json:"zone"`
	Capacity int     `json:"capacity"`
	Percent  float64 `json:"percent"`
	Peak     float64 `json:"peak"`
	Risk     Risk    `json:"risk"`
}

// ComputeZoneOccupancy runs the occupancy model per declared zone. Reserved capacity
// is not attributed to zones.
func ComputeZoneOccupancy(sessions []parking.ParkingSession, w TimeWindow, zones []parking.ZoneCapacity, hours map[time.Weekday][]parking.TimeRange) []ZoneOccupancy {
	byZone := make(map[string][]parking.ParkingSession)
	for _, s := range sessions {
		byZone[s.Zone] = append(byZone[s.Zone], s)
	}

	out := make([]ZoneOccupancy, 0, len(zones))
	for _, z := range zones {
		r := ComputeOccupancy(byZone[z.Zone], w, OccupancyConfig{TotalCapacity: z.Capacity, OperatingHours: hours})
		out = append(out, ZoneOccupancy{
			Zone:     z.Zone,
			Capacity: z.Capacity,
			Percent:  r.Average,
			Peak:     r.PeakHourPct,
			Risk:     RiskLevel(r.Average),
		})
	}
	return out
}

// IsOperating reports whether the facility is open at t. Ranges are [open, close);
// a range whose close is not after its open wraps past midnight, and open == close
// means the whole day.
func IsOperating(hours map[time.Weekday][]parking.TimeRange, t time.Time) bool {
	if len(hours) == 0 {
		return true
	}
	m := t.Hour()*60 + t.Minute()

	for _, r := range hours[t.Weekday()] {
		open, shut, ok := parseRange(r)
		if !ok {
			continue
		}
		switch {
		case open == shut:
			return true
		case open < shut:
			if m >= open && m < shut {
				return true
			}
		default:
			if m >= open {
				return true
			}
		}
	}

	// Overnight ranges declared on the previous day.
	for _, r := range hours[(t.Weekday()+6)%7] {
		open, shut, ok := parseRange(r)
		if ok && open > shut && m < shut {
			return true
		}
	}
	return false
}

func parseRange(r parking.TimeRange) (int, int, bool) {
	open, err := parking.ParseClock(r.Open)
	if err != nil {
		return 0, 0, false
	}
	shut, err := parking.ParseClock(r.Close)
	if err != nil {
		return 0, 0, false
	}
	if open == 1440 {
		open = 0
	}
	return open, shut, true
}
