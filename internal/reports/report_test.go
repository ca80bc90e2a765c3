package reports

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func januaryParams() Params {
	return Params{
		Range:        &stats.DateRange{From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		Now:          time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Location:     time.UTC,
		InsightLimit: 6,
	}
}

func fixtureSnapshot() parking.Snapshot {
	snap := parking.EmptySnapshot("fac-1")
	snap.Facility = parking.Facility{ID: "fac-1", Name: "Centro", TotalCapacity: 20, BaselineReserved: 2,
		Zones: []parking.ZoneCapacity{{Zone: "A", Capacity: 10}, {Zone: "B", Capacity: 10}}}
	snap.Sessions = []parking.ParkingSession{
		{ID: "s1", Entry: ts("2024-01-02T10:00"), Exit: ts("2024-01-02T12:00"), Fee: 600, Method: parking.MethodCash, Zone: "A", VehicleKey: "AB123CD"},
		{ID: "s2", Entry: ts("2024-01-20T08:00"), Exit: ts("2024-01-20T16:00"), Fee: 400, Method: parking.MethodCard, Zone: "B", VehicleKey: "AB123CD"},
		{ID: "s3", Entry: ts("2023-12-10T09:00"), Exit: ts("2023-12-10T10:00"), Fee: 1050, Method: parking.MethodCash, Zone: "A"},
		{ID: "s4", Entry: ts("2024-01-25T09:00"), Exit: ts("2024-01-25T09:30"), Fee: 0, Method: parking.MethodCash, Zone: "A"},
	}
	for _, s := range snap.Sessions {
		if s.Fee > 0 {
			snap.Payments = append(snap.Payments, parking.PaymentEvent{SessionID: s.ID, Amount: s.Fee, Method: s.Method, Zone: s.Zone, Timestamp: *s.Exit})
		}
	}
	for i := 0; i < 5; i++ {
		snap.Subscriptions = append(snap.Subscriptions, parking.SubscriptionRecord{
			ID: string(rune('a' + i)), Holder: "Holder " + string(rune('A'+i)), Type: "Monthly",
			Start: *ts("2024-01-05T00:00"), End: *ts("2024-02-28T23:59"), Status: parking.SubscriptionActive, RemainingDays: 27,
		})
	}
	snap.Shifts = []parking.ShiftRecord{
		{ID: "t1", AssigneeName: "Ana", Start: *ts("2024-01-02T08:00"), End: *ts("2024-01-02T16:00"), ExpectedDurationHours: 8},
		{ID: "t2", AssigneeName: "Ben", Start: *ts("2024-01-20T06:00"), End: *ts("2024-01-20T18:00"), ExpectedDurationHours: 12},
	}
	return snap
}

func TestBuild_UnknownKind(t *testing.T) {
	_, err := Build("weather", parking.EmptySnapshot("x"), januaryParams())
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
	if _, err := ParseKind("Payment-Methods"); err != nil {
		t.Errorf("ParseKind: %v", err)
	}
}

func TestBuild_EmptySnapshotIsWellFormed(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			r, err := Build(kind, parking.EmptySnapshot("fac-1"), januaryParams())
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if r.Insights == nil || len(r.Insights) != 0 {
				t.Errorf("insights = %v, want empty", r.Insights)
			}
			for k, v := range r.Current {
				if v != 0 {
					t.Errorf("current[%s] = %v, want 0", k, v)
				}
			}
			for k, d := range r.Descriptors {
				if d.Tone != stats.ToneNeutral {
					t.Errorf("descriptor %s = %+v, want neutral", k, d)
				}
			}
			if _, err := json.Marshal(r); err != nil {
				t.Errorf("report must serialise: %v", err)
			}
		})
	}
}

func TestBuild_Idempotent(t *testing.T) {
	snap := fixtureSnapshot()
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			a, _ := Build(kind, snap, januaryParams())
			b, _ := Build(kind, snap, januaryParams())
			ja, err := json.Marshal(a)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			jb, _ := json.Marshal(b)
			if !bytes.Equal(ja, jb) {
				t.Error("two builds of the same snapshot differ")
			}
		})
	}
}

func TestIncome_DropAgainstPreviousPeriod(t *testing.T) {
	r, err := Build(KindIncome, fixtureSnapshot(), januaryParams())
	if err != nil {
		t.Fatal(err)
	}
	if r.Current["total_income"] != 1000 || r.Previous["total_income"] != 1050 {
		t.Fatalf("income = %v vs %v", r.Current["total_income"], r.Previous["total_income"])
	}
	want := stats.Descriptor{Label: "-4.8%", Tone: stats.ToneNegative}
	if got := r.Descriptors["total_income"]; got != want {
		t.Errorf("descriptor = %+v, want %+v", got, want)
	}
	if r.Current["average_ticket"] != 500 {
		t.Errorf("average ticket = %v, want 500", r.Current["average_ticket"])
	}
	if len(r.Series["daily_income"]) != 31 {
		t.Errorf("daily series has %d points, want 31", len(r.Series["daily_income"]))
	}
	if top := r.Breakdowns["by_method"][0]; top.Label != "Cash" || top.Share != 60 {
		t.Errorf("top method = %+v", top)
	}
	if len(r.Insights) == 0 || len(r.Insights) > 6 {
		t.Errorf("insights = %v", r.Insights)
	}
}

func TestSubscriptions_NewActiveFromZero(t *testing.T) {
	r, _ := Build(KindSubscriptions, fixtureSnapshot(), januaryParams())
	if r.Current["active"] != 5 || r.Previous["active"] != 0 {
		t.Fatalf("active = %v vs %v", r.Current["active"], r.Previous["active"])
	}
	want := stats.Descriptor{Label: "+100%", Tone: stats.TonePositive}
	if got := r.Descriptors["active"]; got != want {
		t.Errorf("descriptor = %+v, want %+v", got, want)
	}
	if r.Current["renewals"] != 0 {
		t.Errorf("renewals = %v, want 0", r.Current["renewals"])
	}
	found := false
	for _, s := range r.Insights {
		if s == "No renewals were recorded in the period." {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the no-renewals insight, got %v", r.Insights)
	}
}

func TestSubscriptions_Renewal(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Subscriptions = []parking.SubscriptionRecord{
		{ID: "old", HolderID: "30111222", Start: *ts("2023-12-01T00:00"), End: *ts("2023-12-31T23:59"), Status: parking.SubscriptionExpired},
		{ID: "new", HolderID: "30111222", Start: *ts("2024-01-01T00:00"), End: *ts("2024-01-31T23:59"), Status: parking.SubscriptionExpired},
		{ID: "soon", Holder: "Eva", Start: *ts("2024-01-10T00:00"), End: *ts("2024-02-03T23:59"), RemainingDays: 2, Status: parking.SubscriptionExpiring},
	}
	r, _ := Build(KindSubscriptions, snap, januaryParams())
	if r.Current["renewals"] != 1 {
		t.Errorf("renewals = %v, want 1", r.Current["renewals"])
	}
	if len(r.Expiring) != 1 || r.Expiring[0].ID != "soon" {
		t.Errorf("expiring = %+v", r.Expiring)
	}
}

func TestSubscriptions_ExpiringUsesReportTime(t *testing.T) {
	snap := parking.EmptySnapshot("fac-1")
	snap.Subscriptions = []parking.SubscriptionRecord{
		// Normalized weeks before the report; RemainingDays is stale.
		{ID: "stale", Holder: "Ana", Start: *ts("2024-01-01T00:00"), End: *ts("2024-02-05T23:59"), RemainingDays: 30, Status: parking.SubscriptionActive},
		{ID: "reported", Holder: "Ben", Start: *ts("2024-01-01T00:00"), End: *ts("2024-02-05T23:59"), RemainingDays: 30, RemainingReported: true, Status: parking.SubscriptionActive},
		{ID: "lapsed", Holder: "Cleo", Start: *ts("2024-01-01T00:00"), End: *ts("2024-01-30T23:59"), RemainingDays: 5, Status: parking.SubscriptionExpiring},
	}

	r, _ := Build(KindSubscriptions, snap, januaryParams())
	if len(r.Expiring) != 1 || r.Expiring[0].ID != "stale" {
		t.Fatalf("expiring = %+v", r.Expiring)
	}
	if r.Expiring[0].RemainingDays != 5 {
		t.Errorf("remaining days = %d, want 5", r.Expiring[0].RemainingDays)
	}
	if snap.Subscriptions[0].RemainingDays != 30 {
		t.Error("snapshot records must not be modified")
	}
}

func TestMovements(t *testing.T) {
	snap := fixtureSnapshot()
	r, _ := Build(KindMovements, snap, januaryParams())

	if r.Current["entries"] != 3 || r.Current["exits"] != 3 {
		t.Errorf("entries/exits = %v/%v, want 3/3", r.Current["entries"], r.Current["exits"])
	}
	if r.Current["repeat_visitors"] != 1 || r.Current["unique_vehicles"] != 1 {
		t.Errorf("repeat/unique = %v/%v", r.Current["repeat_visitors"], r.Current["unique_vehicles"])
	}
	// Stays of 2h, 8h and 0.5h.
	if r.Current["median_stay_hours"] != 2 {
		t.Errorf("median stay = %v, want 2", r.Current["median_stay_hours"])
	}
	total := 0
	for _, b := range r.Distributions["stay"] {
		total += b.Percent
	}
	if total != 100 {
		t.Errorf("stay distribution sums to %d", total)
	}
	if got := r.Series["hourly_entries"]; len(got) != 24 || got[10].Value != 1 {
		t.Errorf("hourly entries = %v", got)
	}
}

func TestMovements_StayDistribution(t *testing.T) {
	snap := parking.EmptySnapshot("fac-1")
	snap.Sessions = []parking.ParkingSession{
		{ID: "1", Entry: ts("2024-01-03T10:00"), Exit: ts("2024-01-03T10:30")},
		{ID: "2", Entry: ts("2024-01-03T10:00"), Exit: ts("2024-01-03T12:00")},
		{ID: "3", Entry: ts("2024-01-03T10:00"), Exit: ts("2024-01-03T14:00")},
		{ID: "4", Entry: ts("2024-01-03T10:00"), Exit: ts("2024-01-03T18:00")},
		{ID: "inverted", Entry: ts("2024-01-04T10:00"), Exit: ts("2024-01-04T08:00")},
	}
	r, _ := Build(KindMovements, snap, januaryParams())

	want := []int{25, 25, 25, 25}
	for i, b := range r.Distributions["stay"] {
		if b.Percent != want[i] {
			t.Errorf("bucket %s = %d, want %d", b.Label, b.Percent, want[i])
		}
	}
	if r.Current["exits"] != 5 {
		t.Errorf("inverted sessions still count as exits, got %v", r.Current["exits"])
	}
}

func TestOccupancy(t *testing.T) {
	p := januaryParams()
	p.Range = &stats.DateRange{From: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}

	r, _ := Build(KindOccupancy, fixtureSnapshot(), p)
	// Baseline 2 of 20 spots plus one session between 10:00 and 12:00.
	hourly := r.Series["hourly"]
	if hourly[10].Value != 15 || hourly[13].Value != 10 {
		t.Errorf("hour 10/13 = %v/%v, want 15/10", hourly[10].Value, hourly[13].Value)
	}
	if r.Current["peak_hour"] != 10 {
		t.Errorf("peak hour = %v, want 10", r.Current["peak_hour"])
	}
	if len(r.Zones) != 2 {
		t.Errorf("zones = %+v", r.Zones)
	}
}

func TestOccupancy_OpenSessionFromBeforeWindow(t *testing.T) {
	snap := parking.EmptySnapshot("fac-1")
	snap.Facility = parking.Facility{ID: "fac-1", TotalCapacity: 1}
	snap.Sessions = []parking.ParkingSession{
		{ID: "still-inside", Entry: ts("2023-12-30T10:00")},
	}

	occ, _ := Build(KindOccupancy, snap, januaryParams())
	if occ.Current["average_occupancy"] != 100 {
		t.Errorf("average occupancy = %v, want 100", occ.Current["average_occupancy"])
	}
	if got := occ.Series["hourly"][10].Value; got != 100 {
		t.Errorf("hour 10 = %v, want 100", got)
	}

	mov, _ := Build(KindMovements, snap, januaryParams())
	if mov.Current["inside_at_end"] != 1 {
		t.Errorf("inside at end = %v, want 1", mov.Current["inside_at_end"])
	}
	if got := mov.Series["hourly_presence"][10].Value; got != 1 {
		t.Errorf("hourly presence at 10 = %v, want 1", got)
	}

	cmp, _ := Build(KindComparison, snap, januaryParams())
	if cmp.Current["average_occupancy"] != 100 {
		t.Errorf("comparison average occupancy = %v, want 100", cmp.Current["average_occupancy"])
	}
}

func TestShifts(t *testing.T) {
	r, _ := Build(KindShifts, fixtureSnapshot(), januaryParams())
	if r.Current["shifts"] != 2 {
		t.Fatalf("shifts = %v", r.Current["shifts"])
	}
	if len(r.Rankings["by_assignee"]) != 2 {
		t.Errorf("rankings = %+v", r.Rankings)
	}
	if len(r.Shifts) != 2 || r.Shifts[0].Revenue != 600 {
		t.Errorf("shift scores = %+v", r.Shifts)
	}
}

func TestComparison_Policy(t *testing.T) {
	p := januaryParams()
	p.Policy = stats.PolicyYear
	r, err := Build(KindComparison, fixtureSnapshot(), p)
	if err != nil {
		t.Fatal(err)
	}
	if r.Period.Policy != stats.PolicyYear {
		t.Errorf("policy = %s", r.Period.Policy)
	}
	if got := stats.DayKey(r.Period.Previous.From); got != "2023-01-01" {
		t.Errorf("previous from = %s, want 2023-01-01", got)
	}
	if r.Previous["income"] != 0 || r.Current["income"] != 1000 {
		t.Errorf("income = %v vs %v", r.Current["income"], r.Previous["income"])
	}

	// Other reports ignore the policy.
	inc, _ := Build(KindIncome, fixtureSnapshot(), p)
	if inc.Period.Policy != stats.PolicyPreceding {
		t.Errorf("income policy = %s", inc.Period.Policy)
	}
}

func TestBuild_InsightLimit(t *testing.T) {
	p := januaryParams()
	p.InsightLimit = 2
	for _, r := range BuildAll(fixtureSnapshot(), p) {
		if len(r.Insights) > 2 {
			t.Errorf("%s: %d insights, want at most 2", r.Kind, len(r.Insights))
		}
	}
}

func TestParseParams(t *testing.T) {
	now := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		from, to   string
		policy     string
		wantRange  bool
		wantPolicy stats.PreviousPolicy
		wantErr    bool
	}{
		{"defaults", "", "", "", false, stats.PolicyPreceding, false},
		{"explicit range", "2024-01-01", "2024-01-31", "year", true, stats.PolicyYear, false},
		{"half range", "2024-01-01", "", "", false, "", true},
		{"inverted range", "2024-02-01", "2024-01-01", "", false, "", true},
		{"unknown policy", "", "", "fortnight", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseParams(tt.from, tt.to, tt.policy, nil, now, 3)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if (p.Range != nil) != tt.wantRange || p.Policy != tt.wantPolicy || p.InsightLimit != 3 || p.Location != time.UTC {
				t.Errorf("params = %+v", p)
			}
		})
	}
}

func TestBuildAllObserved_TimesEachKind(t *testing.T) {
	var seen []Kind
	all := BuildAllObserved(fixtureSnapshot(), januaryParams(), func(k Kind, d time.Duration) {
		if d < 0 {
			t.Errorf("%s elapsed = %v", k, d)
		}
		seen = append(seen, k)
	})

	if len(seen) != len(Kinds) || len(all) != len(Kinds) {
		t.Fatalf("observed %d kinds for %d reports, want %d", len(seen), len(all), len(Kinds))
	}
	for i, k := range Kinds {
		if seen[i] != k || all[i].Kind != k {
			t.Errorf("position %d = %s/%s, want %s", i, seen[i], all[i].Kind, k)
		}
	}
}
