package stats

import (
	"math"
	"slices"
	"time"

	"parking-analytics/internal/parking"
)

// ShiftType buckets shifts by their starting hour.
type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"   // 06:00-13:59
	ShiftAfternoon ShiftType = "afternoon" // 14:00-21:59
	ShiftNight     ShiftType = "night"
)

// ClassifyShift returns the shift type for a start instant.
func ClassifyShift(start time.Time) ShiftType {
	h := start.Hour()
	switch {
	case h >= 6 && h < 14:
		return ShiftMorning
	case h >= 14 && h < 22:
		return ShiftAfternoon
	default:
		return ShiftNight
	}
}

// Efficiency weights.
const (
	moveWeight      = 0.4
	incomeWeight    = 0.3
	incidenceWeight = 0.3
)

// ShiftScore is the per-shift derivation plus its batch-relative efficiency.
type ShiftScore struct {
	ShiftID        string    `json:"shift_id"`
	Assignee       string    `json:"assignee"`
	Type           ShiftType `json:"type"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Entries        int       `json:"entries"`
	Exits          int       `json:"exits"`
	Ops            int       `json:"ops"`
	Revenue        float64   `json:"revenue"`
	Incidents      int       `json:"incidents"`
	IncidenceRate  float64   `json:"incidence_rate"`
	Compliance     float64   `json:"compliance"`
	MoveScore      float64   `json:"move_score"`
	IncomeScore    float64   `json:"income_score"`
	IncidenceScore float64   `json:"incidence_score"`
	Efficiency     int       `json:"efficiency"`
}

// ScoreShifts derives operations, revenue, incidents and compliance per shift, then
// scores each shift against the best of the batch. Scores are relative: scoring a
// different subset of shifts changes every score.
func ScoreShifts(shifts []parking.ShiftRecord, sessions []parking.ParkingSession) []ShiftScore {
	scores := make([]ShiftScore, 0, len(shifts))

	// Pass 1: raw per-shift figures and batch maxima.
	var maxOps int
	var maxRevenue float64
	for _, sh := range shifts {
		sc := ShiftScore{
			ShiftID:  sh.ID,
			Assignee: sh.AssigneeName,
			Type:     ClassifyShift(sh.Start),
			Start:    sh.Start,
			End:      sh.End,
		}

		var fees []float64
		for _, s := range sessions {
			if s.Entry != nil && withinShift(*s.Entry, sh) {
				sc.Entries++
			}
			if s.Exit == nil || !withinShift(*s.Exit, sh) {
				continue
			}
			sc.Exits++
			fees = append(fees, s.Fee)
			if isIncident(s) {
				sc.Incidents++
			}
		}
		sc.Ops = sc.Entries + sc.Exits
		sc.Revenue = Round(Sum(fees), 2)
		sc.IncidenceRate = Ratio(float64(sc.Incidents), float64(max(1, sc.Ops)))
		sc.Compliance = compliance(sh)

		maxOps = max(maxOps, sc.Ops)
		maxRevenue = math.Max(maxRevenue, sc.Revenue)
		scores = append(scores, sc)
	}

	// Pass 2: normalise against the maxima.
	for i := range scores {
		sc := &scores[i]
		sc.MoveScore = Ratio(float64(sc.Ops), float64(maxOps))
		sc.IncomeScore = Ratio(sc.Revenue, maxRevenue)
		sc.IncidenceScore = 1 - sc.IncidenceRate
		sc.Efficiency = int(math.Round(100 * (moveWeight*sc.MoveScore + incomeWeight*sc.IncomeScore + incidenceWeight*sc.IncidenceScore)))
		sc.IncidenceRate = Round(sc.IncidenceRate, 4)
		sc.MoveScore = Round(sc.MoveScore, 4)
		sc.IncomeScore = Round(sc.IncomeScore, 4)
		sc.IncidenceScore = Round(sc.IncidenceScore, 4)
	}
	return scores
}

// RankedItem is a mean efficiency over a group of shifts.
type RankedItem struct {
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	Shifts int     `json:"shifts"`
}

// RankBy averages efficiency per key, sorted descending with first-seen order on ties.
func RankBy(scores []ShiftScore, key func(ShiftScore) string) []RankedItem {
	order := []string{}
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, sc := range scores {
		k := key(sc)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		sums[k] += sc.Efficiency
		counts[k]++
	}

	out := make([]RankedItem, 0, len(order))
	for _, k := range order {
		out = append(out, RankedItem{
			Label:  k,
			Score:  Round(Ratio(float64(sums[k]), float64(counts[k])), 1),
			Shifts: counts[k],
		})
	}
	slices.SortStableFunc(out, func(a, b RankedItem) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out
}

// ByAssignee and ByShiftType are the standard ranking keys.
func ByAssignee(sc ShiftScore) string  { return sc.Assignee }
func ByShiftType(sc ShiftScore) string { return string(sc.Type) }

func withinShift(t time.Time, sh parking.ShiftRecord) bool {
	return !t.Before(sh.Start) && t.Before(sh.End)
}

// isIncident flags a completed paid session whose fee is zero or invalid.
// Subscription exits are settled by the contract and never count.
func isIncident(s parking.ParkingSession) bool {
	if s.Method == parking.MethodSubscription {
		return false
	}
	return !isFinite(s.Fee) || s.Fee <= 0
}

func compliance(sh parking.ShiftRecord) float64 {
	if sh.ExpectedDurationHours <= 0 {
		return 0
	}
	actual := sh.End.Sub(sh.Start).Hours()
	return Round(math.Min(1, math.Max(0, actual/sh.ExpectedDurationHours)), 4)
}
