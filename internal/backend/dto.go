package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Legacy aliases accepted for each history field, in priority order.
var (
	idAliases     = []string{"id", "history_id", "ticket_id", "_id"}
	entryAliases  = []string{"entry_time", "hora_entrada", "entrada", "entry", "check_in", "created_at"}
	exitAliases   = []string{"exit_time", "hora_salida", "salida", "exit", "check_out", "completed_at"}
	feeAliases    = []string{"fee", "tarifa", "monto", "amount", "total", "importe"}
	methodAliases = []string{"payment_type", "payment_method", "metodo_pago", "tipo_pago", "medio_pago"}
	zoneAliases   = []string{"zone", "zona", "sector"}
	plateAliases  = []string{"plate", "patente", "license_plate", "vehicle", "dominio"}
)

// HistoryRowDTO is one raw session/payment row. Every field is optional.
type HistoryRowDTO struct {
	ID        string      `json:"id,omitempty"`
	EntryTime *string     `json:"entry_time,omitempty"`
	ExitTime  *string     `json:"exit_time,omitempty"`
	Fee       *FlexNumber `json:"fee,omitempty"`
	Method    *string     `json:"payment_method,omitempty"`
	Zone      *string     `json:"zone,omitempty"`
	Plate     *string     `json:"plate,omitempty"`
}

// UnmarshalJSON resolves field-name variants; the first alias present wins.
// Values of the wrong JSON type are treated as absent rather than failing the row.
func (h *HistoryRowDTO) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*h = HistoryRowDTO{}
	if v := pickString(raw, idAliases); v != nil {
		h.ID = *v
	}
	h.EntryTime = pickString(raw, entryAliases)
	h.ExitTime = pickString(raw, exitAliases)
	h.Method = pickString(raw, methodAliases)
	h.Zone = pickString(raw, zoneAliases)
	h.Plate = pickString(raw, plateAliases)

	for _, key := range feeAliases {
		msg, ok := raw[key]
		if !ok || isNull(msg) {
			continue
		}
		var n FlexNumber
		if err := json.Unmarshal(msg, &n); err == nil {
			h.Fee = &n
			break
		}
	}
	return nil
}

// SubscriptionDTO is one raw abono row.
type SubscriptionDTO struct {
	ID            FlexString  `json:"id"`
	HolderFirst   string      `json:"holder_first"`
	HolderLast    string      `json:"holder_last"`
	DNI           FlexString  `json:"dni"`
	Zone          string      `json:"zone"`
	SpotNumber    FlexString  `json:"spot_number"`
	Type          string      `json:"type"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date"`
	Status        string      `json:"status"`
	RemainingDays *FlexNumber `json:"remaining_days"`
}

// ShiftDTO is one raw turno row.
type ShiftDTO struct {
	ID            FlexString  `json:"id"`
	AssigneeID    FlexString  `json:"assignee_id"`
	Date          string      `json:"date"`
	StartTime     string      `json:"start_time"`
	EndTime       *string     `json:"end_time_or_null"`
	ExpectedHours *FlexNumber `json:"expected_hours"`
	AssigneeName  string      `json:"assignee_name"`
}

// ScheduleDTO is the operating-hours entry for one day of week.
type ScheduleDTO struct {
	Day    FlexString     `json:"day"`
	Closed bool           `json:"closed,omitempty"`
	Ranges []TimeRangeDTO `json:"ranges"`
}

// TimeRangeDTO is one open/close sub-range.
type TimeRangeDTO struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// ZoneDTO declares the capacity of a zone.
type ZoneDTO struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// FacilityDTO is the static facility metadata.
type FacilityDTO struct {
	ID            FlexString    `json:"id"`
	Name          string        `json:"name"`
	TotalSpots    int           `json:"total_spots"`
	ReservedSpots int           `json:"reserved_spots"`
	Schedule      []ScheduleDTO `json:"schedule"`
	Zones         []ZoneDTO     `json:"zones,omitempty"`
}

// FlexNumber accepts a JSON number or a numeric string ("1500", "1500.50", "1.500,50").
type FlexNumber struct {
	Value decimal.Decimal
	Valid bool
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	*n = FlexNumber{}
	if isNull(data) {
		return nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}

	d, err := ParseAmount(s)
	if err != nil {
		return nil
	}
	n.Value = d
	n.Valid = true
	return nil
}

func (n FlexNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Value.String()), nil
}

// Float returns the value, or 0 when absent.
func (n *FlexNumber) Float() float64 {
	if n == nil || !n.Valid {
		return 0
	}
	return n.Value.InexactFloat64()
}

// FlexString accepts a JSON string or number for identifier fields.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(strings.TrimSpace(string(data)))
	return nil
}

// ParseAmount parses a monetary string. A trailing comma group of 1-2 digits is
// treated as the decimal separator ("1.500,50" -> 1500.50).
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	if i := strings.LastIndex(s, ","); i >= 0 && len(s)-i-1 <= 2 && len(s)-i-1 > 0 {
		s = strings.ReplaceAll(s[:i], ".", "") + "." + s[i+1:]
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	return decimal.NewFromString(s)
}

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseTime parses an ISO-8601-ish timestamp. Zone-less values are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func pickString(raw map[string]json.RawMessage, keys []string) *string {
	for _, key := range keys {
		msg, ok := raw[key]
		if !ok || isNull(msg) {
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			return &s
		}
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		if err := dec.Decode(&n); err == nil {
			v := n.String()
			return &v
		}
	}
	return nil
}

func isNull(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null"
}
