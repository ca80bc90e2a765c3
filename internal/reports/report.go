package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"parking-analytics/internal/parking"
	"parking-analytics/internal/stats"
)

// ErrUnknownKind is returned by Build and ParseKind for unsupported report kinds.
var ErrUnknownKind = errors.New("unknown report kind")

// Kind names one of the report views.
type Kind string

const (
	KindOccupancy      Kind = "occupancy"
	KindMovements      Kind = "movements"
	KindShifts         Kind = "shifts"
	KindIncome         Kind = "income"
	KindPaymentMethods Kind = "payment_methods"
	KindSubscriptions  Kind = "subscriptions"
	KindComparison     Kind = "comparison"
)

// Kinds lists every report in display order.
var Kinds = []Kind{
	KindOccupancy, KindMovements, KindShifts, KindIncome, KindPaymentMethods, KindSubscriptions, KindComparison,
}

// Describe returns a one-line description of the report.
func (k Kind) Describe() string {
	switch k {
	case KindOccupancy:
		return "Hourly and weekday occupancy against capacity, peak and dead hours, saturation risk."
	case KindMovements:
		return "Entries, exits, stay durations and repeat visitors."
	case KindShifts:
		return "Per-shift operations, revenue, incidents and relative efficiency rankings."
	case KindIncome:
		return "Collections, average ticket, daily income and method breakdown."
	case KindPaymentMethods:
		return "Share of collections per payment method and share shifts between periods."
	case KindSubscriptions:
		return "Active, new, renewed, expired and soon-expiring subscriptions."
	case KindComparison:
		return "Headline indicators compared against a configurable previous period."
	}
	return ""
}

// ParseKind maps a user-supplied name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Params are the per-view inputs. Now and Location are explicit so output is reproducible.
type Params struct {
	Range        *stats.DateRange
	Now          time.Time
	Location     *time.Location
	InsightLimit int
	// Policy only applies to the comparison report; every other report compares
	// against the immediately preceding window.
	Policy    stats.PreviousPolicy
	StayEdges []float64
}

// Report is the serialisable output consumed by the presentation layer.
type Report struct {
	Kind          Kind                                  `json:"kind"`
	FacilityID    string                                `json:"facility_id"`
	Period        stats.Period                          `json:"period"`
	Current       map[string]float64                    `json:"current"`
	Previous      map[string]float64                    `json:"previous"`
	Descriptors   map[string]stats.Descriptor           `json:"descriptors"`
	Breakdowns    map[string][]stats.BreakdownItem      `json:"breakdowns"`
	Series        map[string][]stats.TrendPoint         `json:"series"`
	Distributions map[string][]stats.DistributionBucket `json:"distributions"`
	Rankings      map[string][]stats.RankedItem         `json:"rankings"`
	Days          []stats.DayOccupancy                  `json:"days,omitempty"`
	Zones         []stats.ZoneOccupancy                 `json:"zones,omitempty"`
	Shifts        []stats.ShiftScore                    `json:"shifts,omitempty"`
	Expiring      []parking.SubscriptionRecord          `json:"expiring,omitempty"`
	Dropped       parking.NormalizeStats                `json:"dropped"`
	Insights      []string                              `json:"insights"`
}

type builder func(r *Report, snap parking.Snapshot, p Params)

var builders = map[Kind]builder{
	KindOccupancy:      buildOccupancy,
	KindMovements:      buildMovements,
	KindShifts:         buildShifts,
	KindIncome:         buildIncome,
	KindPaymentMethods: buildPaymentMethods,
	KindSubscriptions:  buildSubscriptions,
	KindComparison:     buildComparison,
}

// Build computes one report from an immutable snapshot. It never fails on data
// problems; an empty snapshot yields zero KPIs, empty collections and no insights.
func Build(kind Kind, snap parking.Snapshot, p Params) (Report, error) {
	b, ok := builders[kind]
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	if len(p.StayEdges) == 0 {
		p.StayEdges = stats.DefaultStayEdges
	}

	policy := stats.PolicyPreceding
	if kind == KindComparison && p.Policy != "" {
		policy = p.Policy
	}

	r := newReport(kind, snap.FacilityID, stats.ResolvePeriodWithPolicy(p.Range, p.Now, p.Location, policy))
	r.Dropped = snap.Dropped
	b(&r, snap, p)

	if snap.IsEmpty() {
		r.Insights = []string{}
	}
	return r, nil
}

// BuildAll computes every report kind from the same snapshot.
func BuildAll(snap parking.Snapshot, p Params) []Report {
	return BuildAllObserved(snap, p, nil)
}

// Observer receives the build time of one report.
type Observer func(kind Kind, elapsed time.Duration)

// BuildAllObserved is BuildAll, calling observe (when non-nil) after each report.
func BuildAllObserved(snap parking.Snapshot, p Params, observe Observer) []Report {
	out := make([]Report, 0, len(Kinds))
	for _, k := range Kinds {
		start := time.Now()
		r, _ := Build(k, snap, p)
		if observe != nil {
			observe(k, time.Since(start))
		}
		out = append(out, r)
	}
	return out
}

func newReport(kind Kind, facilityID string, period stats.Period) Report {
	return Report{
		Kind:          kind,
		FacilityID:    facilityID,
		Period:        period,
		Current:       map[string]float64{},
		Previous:      map[string]float64{},
		Descriptors:   map[string]stats.Descriptor{},
		Breakdowns:    map[string][]stats.BreakdownItem{},
		Series:        map[string][]stats.TrendPoint{},
		Distributions: map[string][]stats.DistributionBucket{},
		Rankings:      map[string][]stats.RankedItem{},
		Insights:      []string{},
	}
}

// kpi records a current/previous pair and its relative descriptor.
func (r *Report) kpi(key string, cur, prev float64) stats.Descriptor {
	r.Current[key] = cur
	r.Previous[key] = prev
	d := stats.Compare(cur, prev)
	r.Descriptors[key] = d
	return d
}

// share records a percentage pair compared in points.
func (r *Report) share(key string, cur, prev float64) stats.Descriptor {
	r.Current[key] = cur
	r.Previous[key] = prev
	d := stats.ComparePoints(cur, prev)
	r.Descriptors[key] = d
	return d
}

func zoneLabel(z string) string {
	if z == "" {
		return "Unassigned"
	}
	return z
}

// argMax returns the first point with the highest value, or false when all are zero.
func argMax(points []stats.TrendPoint) (stats.TrendPoint, bool) {
	var best stats.TrendPoint
	found := false
	for _, p := range points {
		if p.Value > 0 && (!found || p.Value > best.Value) {
			best, found = p, true
		}
	}
	return best, found
}

// halfTrend compares the second half of a daily series against the first half.
func halfTrend(points []stats.TrendPoint) stats.Descriptor {
	if len(points) < 2 {
		return stats.Descriptor{Label: stats.LabelNoChange, Tone: stats.ToneNeutral}
	}
	mid := len(points) / 2
	var first, second float64
	for i, p := range points {
		if i < mid {
			first += p.Value
		} else if len(points)%2 == 0 || i > mid {
			second += p.Value
		}
	}
	return stats.Compare(second, first)
}

// ParseParams builds Params from the textual inputs of the outer surfaces
// (query strings, tool arguments, CLI flags).
func ParseParams(from, to, policy string, loc *time.Location, now time.Time, insightLimit int) (Params, error) {
	if loc == nil {
		loc = time.UTC
	}
	rng, err := stats.ParseDateRange(from, to, loc)
	if err != nil {
		return Params{}, err
	}
	pol, err := stats.ParsePolicy(policy)
	if err != nil {
		return Params{}, err
	}
	return Params{
		Range:        rng,
		Now:          now,
		Location:     loc,
		InsightLimit: insightLimit,
		Policy:       pol,
	}, nil
}
