package reports

import (
	"slices"
	"time"

	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

func entryTime(s parking.ParkingSession) *time.Time { return s.Entry }
func exitTime(s parking.ParkingSession) *time.Time  { return s.Exit }
func paymentTime(p parking.PaymentEvent) *time.Time { return &p.Timestamp }
func paymentAmount(p parking.PaymentEvent) float64  { return p.Amount }
func subStart(s parking.SubscriptionRecord) *time.Time {
	return &s.Start
}

type movementStats struct {
	Entries        int
	Exits          int
	Durations      []float64
	AvgStay        float64
	MedianStay     float64
	UniqueVehicles int
	RepeatVisitors int
	InsideAtEnd    int
}

// computeMovements counts entries and exits in w. Durations only use sessions with a
// valid interval that completed inside w.
func computeMovements(sessions []parking.ParkingSession, w stats.TimeWindow) movementStats {
	var m movementStats
	visits := make(map[string]int)

	for _, s := range sessions {
		if s.Entry != nil && w.Contains(*s.Entry) {
			m.Entries++
			if s.VehicleKey != "" {
				visits[s.VehicleKey]++
			}
		}
		if s.Exit != nil && w.Contains(*s.Exit) {
			m.Exits++
			if s.HasValidInterval() {
				m.Durations = append(m.Durations, s.DurationHours())
			}
		}
	}

	m.UniqueVehicles = len(visits)
	for _, n := range visits {
		if n > 1 {
			m.RepeatVisitors++
		}
	}
	m.AvgStay = stats.Round(stats.Average(m.Durations), 2)
	m.MedianStay = stats.Round(stats.Median(m.Durations), 2)
	m.InsideAtEnd = stats.CountPresent(sessions, w.To)
	return m
}

type incomeStats struct {
	Payments     []parking.PaymentEvent
	Total        float64
	Count        int
	AvgTicket    float64
	Max          float64
	DailyAvg     float64
	DigitalShare float64
}

func computeIncome(payments []parking.PaymentEvent, w stats.TimeWindow) incomeStats {
	in := stats.FilterAt(payments, w, paymentTime)
	var digital []float64
	var m float64
	for _, p := range in {
		if p.Method.IsDigital() {
			digital = append(digital, p.Amount)
		}
		m = max(m, p.Amount)
	}

	total := stats.Round(stats.SumBy(in, paymentAmount), 2)
	return incomeStats{
		Payments:     in,
		Total:        total,
		Count:        len(in),
		AvgTicket:    stats.Round(stats.Ratio(total, float64(len(in))), 2),
		Max:          m,
		DailyAvg:     stats.Round(stats.Ratio(total, float64(w.PeriodDays())), 2),
		DigitalShare: stats.Round(stats.Percent(stats.Sum(digital), total), 1),
	}
}

type subscriptionStats struct {
	Active   int
	New      int
	Renewals int
	Expired  int
	Overlap  []parking.SubscriptionRecord
}

// computeSubscriptions evaluates contracts against w. A renewal is a contract starting
// in w whose holder already had an earlier contract.
func computeSubscriptions(all []parking.SubscriptionRecord, w stats.TimeWindow) subscriptionStats {
	st := subscriptionStats{Overlap: stats.FilterWindow(all, w)}
	st.Active = len(st.Overlap)

	for _, s := range st.Overlap {
		if w.Contains(s.Start) {
			st.New++
			if hasEarlierContract(all, s) {
				st.Renewals++
			}
		}
		if w.Contains(s.End) {
			st.Expired++
		}
	}
	return st
}

func hasEarlierContract(all []parking.SubscriptionRecord, s parking.SubscriptionRecord) bool {
	key := s.HolderKey()
	if key == "" {
		return false
	}
	for _, o := range all {
		if o.ID != s.ID && o.HolderKey() == key && o.Start.Before(s.Start) {
			return true
		}
	}
	return false
}

// expiringSoon lists contracts with 0..7 days remaining as of now, soonest first.
func expiringSoon(all []parking.SubscriptionRecord, now time.Time) []parking.SubscriptionRecord {
	out := []parking.SubscriptionRecord{}
	for _, s := range all {
		if s.Status == parking.SubscriptionExpired {
			continue
		}
		s.RemainingDays = s.RemainingAt(now)
		if s.RemainingDays >= 0 && s.RemainingDays <= parking.ExpiringSoonDays {
			s.Status = parking.SubscriptionExpiring
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b parking.SubscriptionRecord) int {
		if a.RemainingDays != b.RemainingDays {
			return a.RemainingDays - b.RemainingDays
		}
		return a.End.Compare(b.End)
	})
	return out
}
