package stats

import "time"

// Spanner is any record with an optional start and end instant.
type Spanner interface {
	Span() (*time.Time, *time.Time)
}

// InWindow applies the overlap rule: a record is included when any of its timestamps
// falls in [From, To], or when it starts before the window and ends after it.
func InWindow(start, end *time.Time, w TimeWindow) bool {
	if start != nil && w.Contains(*start) {
		return true
	}
	if end != nil && w.Contains(*end) {
		return true
	}
	return start != nil && end != nil && start.Before(w.From) && end.After(w.To)
}

// PresentAt is the half-open point-in-time predicate start <= t < end. A missing
// start or end is unbounded on that side. Inverted intervals are never present.
func PresentAt(start, end *time.Time, t time.Time) bool {
	if start != nil && end != nil && end.Before(*start) {
		return false
	}
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && !t.Before(*end) {
		return false
	}
	return true
}

// FilterWindow returns the records overlapping w, preserving order.
func FilterWindow[T Spanner](items []T, w TimeWindow) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		start, end := it.Span()
		if InWindow(start, end, w) {
			out = append(out, it)
		}
	}
	return out
}

// FilterPresent returns the records that are present at some instant of w under the
// PresentAt rule: started no later than To and not ended by From. Unlike FilterWindow it
// keeps open records that began before the window.
func FilterPresent[T Spanner](items []T, w TimeWindow) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		start, end := it.Span()
		if start != nil && end != nil && end.Before(*start) {
			continue
		}
		if start != nil && start.After(w.To) {
			continue
		}
		if end != nil && !end.After(w.From) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// FilterAt returns the records whose timestamp (as chosen by ts) is in w.
func FilterAt[T any](items []T, w TimeWindow, ts func(T) *time.Time) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if t := ts(it); t != nil && w.Contains(*t) {
			out = append(out, it)
		}
	}
	return out
}

// CountPresent counts records present at instant t.
func CountPresent[T Spanner](items []T, t time.Time) int {
	n := 0
	for _, it := range items {
		start, end := it.Span()
		if PresentAt(start, end, t) {
			n++
		}
	}
	return n
}
