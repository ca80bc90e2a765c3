package stats

import (
	"testing"

	"parking-analytics/internal/parking"
)

func shiftFixture() ([]parking.ShiftRecord, []parking.ParkingSession) {
	shifts := []parking.ShiftRecord{
		{ID: "A", AssigneeName: "Ana", Start: *at("2024-01-01T08:00"), End: *at("2024-01-01T16:00"), ExpectedDurationHours: 8},
		{ID: "B", AssigneeName: "Ben", Start: *at("2024-01-01T16:00"), End: *at("2024-01-02T00:00"), ExpectedDurationHours: 8},
	}
	sessions := []parking.ParkingSession{
		{ID: "s1", Entry: at("2024-01-01T09:00"), Exit: at("2024-01-01T10:00"), Fee: 100, Method: parking.MethodCash},
		{ID: "s2", Entry: at("2024-01-01T10:00"), Exit: at("2024-01-01T11:00"), Fee: 0, Method: parking.MethodCash},
		{ID: "s3", Entry: at("2024-01-01T15:00"), Exit: at("2024-01-01T17:00"), Fee: 200, Method: parking.MethodCard},
	}
	return shifts, sessions
}

func TestScoreShifts(t *testing.T) {
	shifts, sessions := shiftFixture()
	got := ScoreShifts(shifts, sessions)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	a, b := got[0], got[1]
	if a.Entries != 3 || a.Exits != 2 || a.Ops != 5 {
		t.Errorf("A ops = %d/%d/%d, want 3/2/5", a.Entries, a.Exits, a.Ops)
	}
	if a.Revenue != 100 || a.Incidents != 1 {
		t.Errorf("A revenue/incidents = %v/%d, want 100/1", a.Revenue, a.Incidents)
	}
	if a.Efficiency != 79 {
		t.Errorf("A efficiency = %d, want 79", a.Efficiency)
	}
	if b.Ops != 1 || b.Revenue != 200 || b.Incidents != 0 {
		t.Errorf("B = %+v", b)
	}
	if b.Efficiency != 68 {
		t.Errorf("B efficiency = %d, want 68", b.Efficiency)
	}
	if a.Type != ShiftMorning || b.Type != ShiftAfternoon {
		t.Errorf("types = %s/%s", a.Type, b.Type)
	}
	if a.Compliance != 1 {
		t.Errorf("A compliance = %v, want 1", a.Compliance)
	}
}

func TestScoreShifts_IsRelativeToBatch(t *testing.T) {
	shifts, sessions := shiftFixture()
	alone := ScoreShifts(shifts[1:], sessions)
	if alone[0].Efficiency != 100 {
		t.Errorf("B scored alone = %d, want 100", alone[0].Efficiency)
	}
}

func TestScoreShifts_Empty(t *testing.T) {
	if got := ScoreShifts(nil, nil); len(got) != 0 {
		t.Errorf("ScoreShifts(nil) = %v", got)
	}
	shifts, _ := shiftFixture()
	got := ScoreShifts(shifts, nil)
	for _, sc := range got {
		// No ops and no revenue anywhere: only the incidence component remains.
		if sc.MoveScore != 0 || sc.IncomeScore != 0 || sc.Efficiency != 30 {
			t.Errorf("%s = %+v", sc.ShiftID, sc)
		}
	}
}

func TestCompliance(t *testing.T) {
	tests := []struct {
		name     string
		shift    parking.ShiftRecord
		expected float64
	}{
		{"Half", parking.ShiftRecord{Start: *at("2024-01-01T08:00"), End: *at("2024-01-01T12:00"), ExpectedDurationHours: 8}, 0.5},
		{"Overtime", parking.ShiftRecord{Start: *at("2024-01-01T08:00"), End: *at("2024-01-01T20:00"), ExpectedDurationHours: 8}, 1},
		{"NoExpectation", parking.ShiftRecord{Start: *at("2024-01-01T08:00"), End: *at("2024-01-01T12:00")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compliance(tt.shift); got != tt.expected {
				t.Errorf("compliance() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRankBy(t *testing.T) {
	scores := []ShiftScore{
		{Assignee: "Ana", Type: ShiftMorning, Efficiency: 70},
		{Assignee: "Ben", Type: ShiftNight, Efficiency: 90},
		{Assignee: "Ana", Type: ShiftMorning, Efficiency: 90},
		{Assignee: "Cleo", Type: ShiftAfternoon, Efficiency: 80},
	}

	got := RankBy(scores, ByAssignee)
	want := []RankedItem{{"Ben", 90, 1}, {"Ana", 80, 2}, {"Cleo", 80, 1}}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	byType := RankBy(scores, ByShiftType)
	if byType[0].Label != "night" {
		t.Errorf("top shift type = %s, want night", byType[0].Label)
	}
}

func TestClassifyShift(t *testing.T) {
	tests := map[string]ShiftType{
		"2024-01-01T06:00": ShiftMorning,
		"2024-01-01T13:59": ShiftMorning,
		"2024-01-01T14:00": ShiftAfternoon,
		"2024-01-01T22:00": ShiftNight,
		"2024-01-01T05:59": ShiftNight,
	}
	for in, want := range tests {
		if got := ClassifyShift(*at(in)); got != want {
			t.Errorf("ClassifyShift(%s) = %s, want %s", in, got, want)
		}
	}
}
