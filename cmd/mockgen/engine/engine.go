package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"parking-analytics/internal/backend"
	"parking-analytics/internal/snapshot"
)

const wireLayout = "2006-01-02T15:04:05"

type GeneratorConfig struct {
	FacilityID string
	Scenario   string // "steady", "growth" or "chaos"
	Days       int
	Capacity   int
	Rate       float64 // fee per started hour
	Seed       int64
	Now        time.Time
	Location   *time.Location
}

// Raw payment labels as they show up in the legacy backend.
var methodLabels = []struct {
	label  string
	weight float64
}{
	{"Efectivo", 0.35},
	{"Tarjeta de débito", 0.25},
	{"QR", 0.20},
	{"Transferencia", 0.10},
	{"Link de pago", 0.10},
}

var assignees = []struct{ id, name string }{
	{"1", "Lucía"}, {"2", "Martín"}, {"3", "Sofía"}, {"4", "Diego"},
}

// Generate builds a raw facility payload with realistic arrival and stay patterns.
func Generate(cfg GeneratorConfig) snapshot.Raw {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Days <= 0 {
		cfg.Days = 30
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 80
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1500
	}
	if cfg.FacilityID == "" {
		cfg.FacilityID = "MOCK_0"
	}
	rng := newRand(cfg.Seed)
	now := cfg.Now.In(cfg.Location)
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cfg.Location).AddDate(0, 0, -cfg.Days+1)

	return snapshot.Raw{
		FacilityID:    cfg.FacilityID,
		FetchedAt:     cfg.Now,
		Facility:      facility(cfg),
		History:       history(rng, cfg, first, now),
		Subscriptions: subscriptions(rng, cfg, first, now),
		Shifts:        shifts(cfg, first, now),
	}
}

func facility(cfg GeneratorConfig) *backend.FacilityDTO {
	weekday := []backend.TimeRangeDTO{{Open: "07:00", Close: "22:00"}}
	dto := &backend.FacilityDTO{
		ID:            backend.FlexString(cfg.FacilityID),
		Name:          "Mock facility " + cfg.FacilityID,
		TotalSpots:    cfg.Capacity,
		ReservedSpots: cfg.Capacity / 10,
		Zones: []backend.ZoneDTO{
			{Name: "A", Capacity: cfg.Capacity * 6 / 10},
			{Name: "B", Capacity: cfg.Capacity - cfg.Capacity*6/10},
		},
	}
	for d := 1; d <= 5; d++ {
		dto.Schedule = append(dto.Schedule, backend.ScheduleDTO{Day: backend.FlexString(fmt.Sprint(d)), Ranges: weekday})
	}
	dto.Schedule = append(dto.Schedule,
		backend.ScheduleDTO{Day: "sabado", Ranges: []backend.TimeRangeDTO{{Open: "08:00", Close: "13:00"}, {Open: "16:00", Close: "21:00"}}},
		backend.ScheduleDTO{Day: "domingo", Closed: true},
	)
	return dto
}

func history(rng *rand.Rand, cfg GeneratorConfig, first, now time.Time) []backend.HistoryRowDTO {
	var rows []backend.HistoryRowDTO
	id := 0
	for d := 0; d < cfg.Days; d++ {
		day := first.AddDate(0, 0, d)
		if day.Weekday() == time.Sunday {
			continue
		}

		// Roughly two turnovers per spot per day, scaled by scenario
		arrivals := float64(cfg.Capacity) * 2.0
		if day.Weekday() == time.Saturday {
			arrivals *= 0.6
		}
		if cfg.Scenario == "growth" {
			arrivals *= 0.7 + 0.6*float64(d)/float64(cfg.Days)
		}
		n := int(arrivals * (0.85 + 0.3*rng.Float64()))

		for i := 0; i < n; i++ {
			entry := day.Add(arrivalOffset(rng))
			if entry.After(now) {
				continue
			}
			k, lambda := 1.4, 2.5
			if cfg.Scenario == "chaos" {
				k = 0.8
			}
			stay := math.Max(weibullSample(rng, k, lambda), 1.0/6)
			exit := entry.Add(time.Duration(stay * float64(time.Hour)))

			id++
			row := backend.HistoryRowDTO{
				ID:        fmt.Sprint(id),
				EntryTime: ptr(entry.Format(wireLayout)),
				Zone:      ptr([]string{"A", "A", "A", "B", "B"}[rng.Intn(5)]),
				Plate:     ptr(plate(rng)),
			}
			if exit.Before(now) {
				row.ExitTime = ptr(exit.Format(wireLayout))
				row.Fee = amount(math.Ceil(stay) * cfg.Rate)
				row.Method = ptr(pickMethod(rng))
			}
			if cfg.Scenario == "chaos" {
				corrupt(rng, &row)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// arrivalOffset samples a time of day from a morning and an evening peak.
func arrivalOffset(rng *rand.Rand) time.Duration {
	peak := 9.0
	if rng.Float64() < 0.45 {
		peak = 18.0
	}
	h := math.Min(math.Max(peak+rng.NormFloat64()*1.8, 7), 21.75)
	return time.Duration(h * float64(time.Hour))
}

// corrupt damages a small share of rows the way the legacy backend does.
func corrupt(rng *rand.Rand, row *backend.HistoryRowDTO) {
	switch p := rng.Float64(); {
	case p < 0.01:
		row.EntryTime = ptr("n/a")
	case p < 0.02 && row.ExitTime != nil:
		row.EntryTime, row.ExitTime = row.ExitTime, row.EntryTime
	case p < 0.04:
		row.Fee = nil
	}
}

func subscriptions(rng *rand.Rand, cfg GeneratorConfig, first, now time.Time) []backend.SubscriptionDTO {
	var rows []backend.SubscriptionDTO
	holders := max(cfg.Capacity/5, 1)
	id := 0
	for h := 0; h < holders; h++ {
		start := first.AddDate(0, 0, -rng.Intn(60))
		contracts := 1 + rng.Intn(3)
		for c := 0; c < contracts && !start.After(now); c++ {
			end := start.AddDate(0, 1, -1)
			id++
			rows = append(rows, backend.SubscriptionDTO{
				ID:          backend.FlexString(fmt.Sprint(id)),
				HolderFirst: fmt.Sprintf("Holder%d", h+1),
				HolderLast:  "Mock",
				DNI:         backend.FlexString(fmt.Sprint(30000000 + h)),
				Zone:        "A",
				SpotNumber:  backend.FlexString(fmt.Sprint(h + 1)),
				Type:        "mensual",
				StartDate:   start.Format("2006-01-02"),
				EndDate:     end.Format("2006-01-02"),
			})
			start = end.AddDate(0, 0, 1)
		}
	}
	return rows
}

// shifts emits three eight-hour shifts per day; the one in progress has no end.
func shifts(cfg GeneratorConfig, first, now time.Time) []backend.ShiftDTO {
	starts := []string{"06:00", "14:00", "22:00"}
	ends := []string{"14:00", "22:00", "06:00"}

	var rows []backend.ShiftDTO
	id := 0
	for d := 0; d < cfg.Days; d++ {
		day := first.AddDate(0, 0, d)
		for s := range starts {
			begin := day.Add(time.Duration(6+8*s) * time.Hour)
			if begin.After(now) {
				break
			}
			id++
			who := assignees[(d+s)%len(assignees)]
			row := backend.ShiftDTO{
				ID:            backend.FlexString(fmt.Sprint(id)),
				AssigneeID:    backend.FlexString(who.id),
				AssigneeName:  who.name,
				Date:          day.Format("2006-01-02"),
				StartTime:     starts[s],
				ExpectedHours: amount(8),
			}
			if begin.Add(8 * time.Hour).Before(now) {
				row.EndTime = ptr(ends[s])
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func pickMethod(rng *rand.Rand) string {
	p := rng.Float64()
	for _, m := range methodLabels {
		if p < m.weight {
			return m.label
		}
		p -= m.weight
	}
	return methodLabels[0].label
}

func plate(rng *rand.Rand) string {
	const letters = "ABCDEFGHJKLMNPRSTUVWXYZ"
	return fmt.Sprintf("%c%c %03d %c%c",
		letters[rng.Intn(len(letters))], letters[rng.Intn(len(letters))],
		rng.Intn(1000),
		letters[rng.Intn(len(letters))], letters[rng.Intn(len(letters))])
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func amount(v float64) *backend.FlexNumber {
	d, _ := backend.ParseAmount(fmt.Sprintf("%.2f", v))
	return &backend.FlexNumber{Value: d, Valid: true}
}

func ptr(s string) *string { return &s }
