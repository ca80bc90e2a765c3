package parking

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"parking-analytics/internal/backend"
)

// NormalizeStats counts rows discarded by the normalizer.
type NormalizeStats struct {
	Sessions      int `json:"sessions"`
	Payments      int `json:"payments"`
	Subscriptions int `json:"subscriptions"`
	Shifts        int `json:"shifts"`
}

// Total returns the number of dropped rows of any kind.
func (s NormalizeStats) Total() int {
	return s.Sessions + s.Payments + s.Subscriptions + s.Shifts
}

// MaxRangesPerDay caps the operating sub-ranges kept per weekday.
const MaxRangesPerDay = 3

// Normalizer turns raw backend rows into canonical entities. Unparsable rows
// are dropped and counted; they never abort the batch.
type Normalizer struct {
	loc *time.Location
	now time.Time
}

// NewNormalizer creates a normalizer reading zone-less timestamps in loc.
// now anchors derived values such as remaining subscription days.
func NewNormalizer(loc *time.Location, now time.Time) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, now: now}
}

// Snapshot normalizes every upstream collection into one immutable snapshot.
func (n *Normalizer) Snapshot(facilityID string, history []backend.HistoryRowDTO, subs []backend.SubscriptionDTO, shifts []backend.ShiftDTO, facility *backend.FacilityDTO) Snapshot {
	snap := EmptySnapshot(facilityID)
	snap.Facility = n.Facility(facilityID, facility)

	sessions, payments, dropped := n.Sessions(history)
	snap.Sessions = sessions
	snap.Payments = payments
	snap.Dropped = dropped

	snap.Subscriptions, snap.Dropped.Subscriptions = n.Subscriptions(subs)
	snap.Shifts, snap.Dropped.Shifts = n.Shifts(shifts)
	return snap
}

// Sessions converts history rows into sessions and the payment events they carry.
func (n *Normalizer) Sessions(rows []backend.HistoryRowDTO) ([]ParkingSession, []PaymentEvent, NormalizeStats) {
	sessions := make([]ParkingSession, 0, len(rows))
	payments := make([]PaymentEvent, 0, len(rows))
	var stats NormalizeStats

	for i, row := range rows {
		entry, okEntry := n.optionalTime(row.EntryTime)
		exit, okExit := n.optionalTime(row.ExitTime)
		if !okEntry || !okExit || (entry == nil && exit == nil) {
			stats.Sessions++
			continue
		}

		id := row.ID
		if id == "" {
			id = "row-" + strconv.Itoa(i)
		}

		fee := SafeAmount(row.Fee.Float())
		method := MethodOther
		if row.Method != nil {
			method = CanonicalMethod(*row.Method)
		}

		s := ParkingSession{
			ID:     id,
			Entry:  entry,
			Exit:   exit,
			Fee:    fee,
			Method: method,
			Zone:   deref(row.Zone),
		}
		if row.Plate != nil {
			s.VehicleKey = NormalizePlate(*row.Plate)
		}
		sessions = append(sessions, s)

		if p, ok := paymentFromSession(s, row.Fee.Float()); ok {
			payments = append(payments, p)
		} else if row.Fee != nil && !row.Fee.Valid {
			stats.Payments++
		}
	}
	return sessions, payments, stats
}

// paymentFromSession builds the collection event. The effective date prefers the
// exit (completion) and falls back to the entry.
func paymentFromSession(s ParkingSession, raw float64) (PaymentEvent, bool) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw <= 0 {
		return PaymentEvent{}, false
	}
	ts := s.Exit
	if ts == nil {
		ts = s.Entry
	}
	return PaymentEvent{
		SessionID: s.ID,
		Amount:    raw,
		Method:    s.Method,
		Zone:      s.Zone,
		Timestamp: *ts,
	}, true
}

// Subscriptions converts abono rows; rows without a valid start/end are dropped.
func (n *Normalizer) Subscriptions(rows []backend.SubscriptionDTO) ([]SubscriptionRecord, int) {
	out := make([]SubscriptionRecord, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		start, err := backend.ParseTime(row.StartDate, n.loc)
		if err != nil {
			dropped++
			continue
		}
		end, err := backend.ParseTime(row.EndDate, n.loc)
		if err != nil || end.Before(start) {
			dropped++
			continue
		}
		if isDateOnly(row.EndDate) {
			end = endOfDay(end)
		}

		remaining := daysUntil(n.now, end)
		reported := row.RemainingDays != nil && row.RemainingDays.Valid
		if reported {
			remaining = int(math.Round(row.RemainingDays.Float()))
		}

		out = append(out, SubscriptionRecord{
			ID:                string(row.ID),
			Holder:            strings.TrimSpace(row.HolderFirst + " " + row.HolderLast),
			HolderID:          strings.TrimSpace(string(row.DNI)),
			Zone:              strings.TrimSpace(row.Zone),
			Spot:              strings.TrimSpace(string(row.SpotNumber)),
			Type:              CanonicalSubscriptionType(row.Type),
			Start:             start,
			End:               end,
			Status:            deriveStatus(row.Status, remaining, end, n.now),
			RemainingDays:     remaining,
			RemainingReported: reported,
		})
	}
	return out, dropped
}

// Shifts converts turno rows. A missing end is derived from the declared duration.
func (n *Normalizer) Shifts(rows []backend.ShiftDTO) ([]ShiftRecord, int) {
	out := make([]ShiftRecord, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		start, err := n.combine(row.Date, row.StartTime)
		if err != nil {
			dropped++
			continue
		}

		expected := row.ExpectedHours.Float()
		if expected < 0 || math.IsNaN(expected) || math.IsInf(expected, 0) {
			expected = 0
		}

		rec := ShiftRecord{
			ID:                    string(row.ID),
			AssigneeID:            string(row.AssigneeID),
			AssigneeName:          strings.TrimSpace(row.AssigneeName),
			Start:                 start,
			ExpectedDurationHours: expected,
		}

		if row.EndTime != nil && strings.TrimSpace(*row.EndTime) != "" {
			end, err := n.combine(row.Date, *row.EndTime)
			if err != nil {
				dropped++
				continue
			}
			// Time-only ends earlier than the start belong to the next day.
			if end.Before(start) && isClockOnly(*row.EndTime) {
				end = end.AddDate(0, 0, 1)
			}
			if end.Before(start) {
				dropped++
				continue
			}
			rec.End = end
			if rec.ExpectedDurationHours == 0 {
				rec.ExpectedDurationHours = end.Sub(start).Hours()
			}
		} else {
			rec.End = start.Add(time.Duration(expected * float64(time.Hour)))
			rec.Open = true
		}

		if rec.AssigneeName == "" {
			rec.AssigneeName = "Unassigned"
		}
		out = append(out, rec)
	}
	return out, dropped
}

// Facility converts the metadata DTO. A nil DTO yields a zero-capacity facility.
func (n *Normalizer) Facility(facilityID string, dto *backend.FacilityDTO) Facility {
	f := Facility{ID: facilityID}
	if dto == nil {
		return f
	}
	f.Name = dto.Name
	f.TotalCapacity = max(dto.TotalSpots, 0)
	f.BaselineReserved = max(dto.ReservedSpots, 0)

	if len(dto.Schedule) > 0 {
		f.OperatingHours = make(map[time.Weekday][]TimeRange)
		for _, day := range dto.Schedule {
			wd, ok := ParseWeekday(string(day.Day))
			if !ok {
				continue
			}
			ranges := []TimeRange{}
			if !day.Closed {
				for _, r := range day.Ranges {
					if len(ranges) == MaxRangesPerDay {
						break
					}
					if _, err := ParseClock(r.Open); err != nil {
						continue
					}
					if _, err := ParseClock(r.Close); err != nil {
						continue
					}
					ranges = append(ranges, TimeRange{Open: r.Open, Close: r.Close})
				}
			}
			f.OperatingHours[wd] = ranges
		}
	}

	for _, z := range dto.Zones {
		if z.Name == "" || z.Capacity <= 0 {
			continue
		}
		f.Zones = append(f.Zones, ZoneCapacity{Zone: z.Name, Capacity: z.Capacity})
	}
	return f
}

// optionalTime parses a nullable timestamp. ok is false only when a value is
// present but malformed.
func (n *Normalizer) optionalTime(s *string) (*time.Time, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, true
	}
	t, err := backend.ParseTime(*s, n.loc)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// combine resolves a shift time that is either a full timestamp or a clock
// value relative to date.
func (n *Normalizer) combine(date, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	if !isClockOnly(clock) {
		return backend.ParseTime(clock, n.loc)
	}
	day, err := backend.ParseTime(date, n.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("shift date: %w", err)
	}
	minutes, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, n.loc).Add(time.Duration(minutes) * time.Minute), nil
}

// SafeAmount maps negative or non-finite amounts to zero.
func SafeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// CanonicalMethod folds the open vocabulary of payment labels into the canonical set.
func CanonicalMethod(raw string) PaymentMethod {
	s := foldAccents(strings.ToLower(strings.TrimSpace(raw)))
	switch {
	case s == "":
		return MethodOther
	case strings.Contains(s, "abono") || strings.Contains(s, "subscri") || strings.Contains(s, "mensual"):
		return MethodSubscription
	case strings.Contains(s, "efectivo") || strings.Contains(s, "cash") || strings.Contains(s, "contado"):
		return MethodCash
	case strings.Contains(s, "transfer"):
		return MethodTransfer
	case s == "qr" || strings.HasPrefix(s, "qr ") || strings.HasSuffix(s, " qr") || strings.Contains(s, "codigo qr"):
		return MethodQR
	case strings.Contains(s, "link") || strings.Contains(s, "mercado pago") || strings.Contains(s, "mercadopago") || s == "mp" || strings.Contains(s, "wallet") || strings.Contains(s, "billetera"):
		return MethodWalletLink
	case strings.Contains(s, "tarjeta") || strings.Contains(s, "card") || strings.Contains(s, "debit") || strings.Contains(s, "credit") || strings.Contains(s, "credito"):
		return MethodCard
	default:
		return MethodOther
	}
}

// CanonicalSubscriptionType normalizes plan labels.
func CanonicalSubscriptionType(raw string) string {
	s := foldAccents(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "":
		return "Standard"
	case "mensual", "monthly", "mes":
		return "Monthly"
	case "semanal", "weekly":
		return "Weekly"
	case "quincenal", "biweekly":
		return "Biweekly"
	case "anual", "annual", "yearly":
		return "Annual"
	case "diario", "daily":
		return "Daily"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// NormalizePlate upper-cases and strips separators so "ab 123-cd" == "AB123CD".
func NormalizePlate(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseWeekday accepts 0-6 (Sunday=0) or English/Spanish day names.
func ParseWeekday(raw string) (time.Weekday, bool) {
	s := foldAccents(strings.ToLower(strings.TrimSpace(raw)))
	if d, err := strconv.Atoi(s); err == nil {
		if d == 7 {
			d = 0
		}
		if d >= 0 && d <= 6 {
			return time.Weekday(d), true
		}
		return 0, false
	}
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "sun": time.Sunday, "domingo": time.Sunday,
		"monday": time.Monday, "mon": time.Monday, "lunes": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday, "martes": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday, "miercoles": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday, "jueves": time.Thursday,
		"friday": time.Friday, "fri": time.Friday, "viernes": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday, "sabado": time.Saturday,
	}
	wd, ok := names[s]
	return wd, ok
}

// ParseClock parses "HH:MM" (or "HH:MM:SS") into minutes after midnight. "24:00" is 1440.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return h*60 + m, nil
}

func deriveStatus(raw string, remaining int, end, now time.Time) SubscriptionStatus {
	s := foldAccents(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "expired", "vencido", "vencida", "inactive", "inactivo", "cancelled", "cancelado", "baja":
		return SubscriptionExpired
	}
	if remaining < 0 || (remaining == 0 && end.Before(now)) {
		return SubscriptionExpired
	}
	if remaining <= ExpiringSoonDays {
		return SubscriptionExpiring
	}
	return SubscriptionActive
}

func daysUntil(now, end time.Time) int {
	if now.IsZero() {
		return 0
	}
	d := end.Sub(now).Hours() / 24
	if d < 0 {
		return int(math.Floor(d))
	}
	return int(math.Ceil(d))
}

func isClockOnly(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) <= 8 && strings.Contains(s, ":") && !strings.ContainsAny(s, "-/T ")
}

func isDateOnly(s string) bool {
	return len(strings.TrimSpace(s)) == len("2006-01-02")
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

var accentReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u")

func foldAccents(s string) string {
	return accentReplacer.Replace(s)
}
