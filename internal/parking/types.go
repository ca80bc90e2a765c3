package parking

import (
	"time"
)

// PaymentMethod is the canonical payment category.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodTransfer     PaymentMethod = "transfer"
	MethodCard         PaymentMethod = "card"
	MethodQR           PaymentMethod = "qr"
	MethodWalletLink   PaymentMethod = "wallet_link"
	MethodSubscription PaymentMethod = "subscription"
	MethodOther        PaymentMethod = "other"
)

// Label returns the display name used in breakdowns and insights.
func (m PaymentMethod) Label() string {
	switch m {
	case MethodCash:
		return "Cash"
	case MethodTransfer:
		return "Transfer"
	case MethodCard:
		return "Card"
	case MethodQR:
		return "QR"
	case MethodWalletLink:
		return "Payment link"
	case MethodSubscription:
		return "Subscription"
	default:
		return "Other"
	}
}

// IsDigital reports whether the method settles without cash changing hands.
func (m PaymentMethod) IsDigital() bool {
	switch m {
	case MethodTransfer, MethodCard, MethodQR, MethodWalletLink:
		return true
	}
	return false
}

// ParkingSession is one vehicle stay. Entry and Exit are nil when unknown:
// the vehicle may already be inside at window start or still inside at window end.
type ParkingSession struct {
	ID         string        `json:"id"`
	Entry      *time.Time    `json:"entry,omitempty"`
	Exit       *time.Time    `json:"exit,omitempty"`
	Fee        float64       `json:"fee"`
	Method     PaymentMethod `json:"method,omitempty"`
	Zone       string        `json:"zone,omitempty"`
	VehicleKey string        `json:"vehicle_key,omitempty"`
}

// Span returns the session's interval bounds.
func (s ParkingSession) Span() (*time.Time, *time.Time) {
	return s.Entry, s.Exit
}

// IsCompleted reports whether the vehicle has left.
func (s ParkingSession) IsCompleted() bool {
	return s.Exit != nil
}

// HasValidInterval is true when both ends are known and exit >= entry.
// Inverted sessions still count as entries/exits but never feed duration aggregates.
func (s ParkingSession) HasValidInterval() bool {
	return s.Entry != nil && s.Exit != nil && !s.Exit.Before(*s.Entry)
}

// DurationHours is the stay length, or 0 when the interval is not valid.
func (s ParkingSession) DurationHours() float64 {
	if !s.HasValidInterval() {
		return 0
	}
	return s.Exit.Sub(*s.Entry).Hours()
}

// PaymentEvent is a monetary collection with amount > 0.
type PaymentEvent struct {
	SessionID string        `json:"session_id,omitempty"`
	Amount    float64       `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Zone      string        `json:"zone,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Span returns the event instant as a degenerate interval.
func (p PaymentEvent) Span() (*time.Time, *time.Time) {
	return &p.Timestamp, nil
}

// SubscriptionStatus is derived from source data.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpiring SubscriptionStatus = "expiring"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

// ExpiringSoonDays is the remaining-days threshold for "expiring soon".
const ExpiringSoonDays = 7

// SubscriptionRecord (abono) is a recurring-access contract.
type SubscriptionRecord struct {
	ID                string             `json:"id"`
	Holder            string             `json:"holder"`
	HolderID          string             `json:"holder_id,omitempty"`
	Zone              string             `json:"zone,omitempty"`
	Spot              string             `json:"spot,omitempty"`
	Type              string             `json:"type"`
	Start             time.Time          `json:"start"`
	End               time.Time          `json:"end"`
	Status            SubscriptionStatus `json:"status"`
	RemainingDays     int                `json:"remaining_days"`
	// RemainingReported is set when RemainingDays came from the backend rather than
	// being derived from End at normalization time.
	RemainingReported bool               `json:"remaining_reported,omitempty"`
}

// RemainingAt returns the days left on the contract as of now. Backend-reported values
// are kept as is; derived ones are recomputed from End.
func (s SubscriptionRecord) RemainingAt(now time.Time) int {
	if s.RemainingReported || now.IsZero() {
		return s.RemainingDays
	}
	return daysUntil(now, s.End)
}

// Span returns the contract interval.
func (s SubscriptionRecord) Span() (*time.Time, *time.Time) {
	return &s.Start, &s.End
}

// HolderKey identifies the holder across contracts for renewal detection.
func (s SubscriptionRecord) HolderKey() string {
	if s.HolderID != "" {
		return "id:" + s.HolderID
	}
	if s.Holder != "" {
		return "name:" + s.Holder
	}
	if s.Spot != "" {
		return "spot:" + s.Zone + "/" + s.Spot
	}
	return ""
}

// ShiftRecord (turno) is one work shift.
type ShiftRecord struct {
	ID                    string    `json:"id"`
	AssigneeID            string    `json:"assignee_id,omitempty"`
	AssigneeName          string    `json:"assignee_name"`
	Start                 time.Time `json:"start"`
	End                   time.Time `json:"end"`
	ExpectedDurationHours float64   `json:"expected_duration_hours"`
	Open                  bool      `json:"open,omitempty"`
}

// Span returns the shift interval.
func (s ShiftRecord) Span() (*time.Time, *time.Time) {
	return &s.Start, &s.End
}

// TimeRange is an open/close pair in "HH:MM" local time.
type TimeRange struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// ZoneCapacity declares the spots of a zone.
type ZoneCapacity struct {
	Zone     string `json:"zone"`
	Capacity int    `json:"capacity"`
}

// Facility holds the static metadata passed explicitly into every computation.
type Facility struct {
	ID               string                       `json:"id"`
	Name             string                       `json:"name,omitempty"`
	TotalCapacity    int                          `json:"total_capacity"`
	BaselineReserved int                          `json:"baseline_reserved"`
	OperatingHours   map[time.Weekday][]TimeRange `json:"operating_hours,omitempty"`
	Zones            []ZoneCapacity               `json:"zones,omitempty"`
}

// Snapshot is the immutable per-view data set all reports are computed from.
type Snapshot struct {
	FacilityID    string               `json:"facility_id"`
	Facility      Facility             `json:"facility"`
	Sessions      []ParkingSession     `json:"sessions"`
	Payments      []PaymentEvent       `json:"payments"`
	Subscriptions []SubscriptionRecord `json:"subscriptions"`
	Shifts        []ShiftRecord        `json:"shifts"`
	Dropped       NormalizeStats       `json:"dropped"`
}

// IsEmpty reports whether the snapshot carries no records at all.
func (s Snapshot) IsEmpty() bool {
	return len(s.Sessions) == 0 && len(s.Payments) == 0 && len(s.Subscriptions) == 0 && len(s.Shifts) == 0
}

// EmptySnapshot is what a failed fetch degrades to.
func EmptySnapshot(facilityID string) Snapshot {
	return Snapshot{
		FacilityID:    facilityID,
		Facility:      Facility{ID: facilityID},
		Sessions:      []ParkingSession{},
		Payments:      []PaymentEvent{},
		Subscriptions: []SubscriptionRecord{},
		Shifts:        []ShiftRecord{},
	}
}
