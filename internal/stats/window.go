package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRange is returned when a user-selected range cannot be parsed or is inverted.
var ErrInvalidRange = errors.New("invalid date range")

// DefaultWindowDays is the trailing window used when no range is selected.
const DefaultWindowDays = 30

const dayKeyLayout = "2006-01-02"

// TimeWindow is an inclusive [From, To] interval. From is a start of day and To an
// end of day (23:59:59.999) in the same location.
type TimeWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewTimeWindow snaps from/to to day boundaries. Inverted inputs are swapped.
func NewTimeWindow(from, to time.Time) TimeWindow {
	if to.Before(from) {
		from, to = to, from
	}
	return TimeWindow{From: StartOfDay(from), To: EndOfDay(to.In(from.Location()))}
}

// PeriodDays returns the number of calendar days covered, minimum 1.
func (w TimeWindow) PeriodDays() int {
	start := StartOfDay(w.From)
	end := StartOfDay(w.To.In(w.From.Location()))
	days := 1
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// Days returns the start of every calendar day in the window.
func (w TimeWindow) Days() []time.Time {
	end := w.To.In(w.From.Location())
	days := make([]time.Time, 0, w.PeriodDays())
	for d := StartOfDay(w.From); !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether t lies in [From, To].
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Label renders the window as "2024-01-01 to 2024-01-31".
func (w TimeWindow) Label() string {
	return DayKey(w.From) + " to " + DayKey(w.To.In(w.From.Location()))
}

// DayKey is the series label for the calendar day containing t.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// StartOfDay normalizes t to 00:00:00 of its day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay normalizes t to the last millisecond of its day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DateRange is a user-selected inclusive calendar range.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ParseDateRange parses "2006-01-02" bounds in loc. Both empty means no selection.
func ParseDateRange(from, to string, loc *time.Location) (*DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: both bounds are required", ErrInvalidRange)
	}
	f, err := time.ParseInLocation(dayKeyLayout, from, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: from: %v", ErrInvalidRange, err)
	}
	t, err := time.ParseInLocation(dayKeyLayout, to, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: to: %v", ErrInvalidRange, err)
	}
	if t.Before(f) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	return &DateRange{From: f, To: t}, nil
}

// PreviousPolicy selects how the comparable previous window is derived.
type PreviousPolicy string

const (
	// PolicyPreceding is the equal-length window immediately before the current one.
	PolicyPreceding PreviousPolicy = "preceding"
	PolicyMonth     PreviousPolicy = "month"
	PolicyQuarter   PreviousPolicy = "quarter"
	PolicyYear      PreviousPolicy = "year"
)

// ParsePolicy maps user input to a policy. Empty input is PolicyPreceding.
func ParsePolicy(s string) (PreviousPolicy, error) {
	switch PreviousPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyPreceding:
		return PolicyPreceding, nil
	case PolicyMonth:
		return PolicyMonth, nil
	case PolicyQuarter:
		return PolicyQuarter, nil
	case PolicyYear:
		return PolicyYear, nil
	}
	return "", fmt.Errorf("unknown comparison policy %q", s)
}

// Period is the resolved current window and its comparable previous window.
type Period struct {
	Current  TimeWindow     `json:"current"`
	Previous TimeWindow     `json:"previous"`
	Days     int            `json:"days"`
	Policy   PreviousPolicy `json:"policy"`
}

// ResolvePeriod derives the current window from sel (or the trailing default ending
// at now) and the equal-length window immediately preceding it.
func ResolvePeriod(sel *DateRange, now time.Time, loc *time.Location) Period {
	return ResolvePeriodWithPolicy(sel, now, loc, PolicyPreceding)
}

// ResolvePeriodWithPolicy is ResolvePeriod with an explicit previous-window policy.
// Every policy yields a previous window of the same day count ending before current.From.
func ResolvePeriodWithPolicy(sel *DateRange, now time.Time, loc *time.Location, policy PreviousPolicy) Period {
	if loc == nil {
		loc = time.UTC
	}

	var current TimeWindow
	if sel != nil {
		current = NewTimeWindow(sel.From.In(loc), sel.To.In(loc))
	} else {
		today := now.In(loc)
		current = NewTimeWindow(StartOfDay(today).AddDate(0, 0, -(DefaultWindowDays-1)), today)
	}

	days := current.PeriodDays()
	var prevFrom time.Time
	switch policy {
	case PolicyMonth:
		prevFrom = shiftMonths(current.From, -1)
	case PolicyQuarter:
		prevFrom = current.From.AddDate(0, 0, -90)
	case PolicyYear:
		prevFrom = current.From.AddDate(0, 0, -365)
	default:
		policy = PolicyPreceding
	}

	var previous TimeWindow
	if policy == PolicyPreceding {
		prevTo := current.From.Add(-time.Millisecond)
		previous = TimeWindow{From: StartOfDay(prevTo).AddDate(0, 0, -(days - 1)), To: prevTo}
	} else {
		prevTo := EndOfDay(prevFrom.AddDate(0, 0, days-1))
		if !prevTo.Before(current.From) {
			// Long ranges would overlap the current window; fall back to the preceding one.
			prevTo = current.From.Add(-time.Millisecond)
			prevFrom = StartOfDay(prevTo).AddDate(0, 0, -(days - 1))
		}
		previous = TimeWindow{From: prevFrom, To: prevTo}
	}

	return Period{Current: current, Previous: previous, Days: days, Policy: policy}
}

// shiftMonths moves t by n months, clamping the day to the target month's length.
func shiftMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := min(t.Day(), last)
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}
