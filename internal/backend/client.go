package backend

import (
	"context"
	"errors"
	"time"
)

// ErrUpstream marks failures of the parking REST backend.
var ErrUpstream = errors.New("upstream backend error")

// Client is the read interface to the parking backend.
type Client interface {
	FetchHistory(ctx context.Context, facilityID string) ([]HistoryRowDTO, error)
	FetchSubscriptions(ctx context.Context, facilityID string) ([]SubscriptionDTO, error)
	FetchShifts(ctx context.Context, facilityID string) ([]ShiftDTO, error)
	FetchFacility(ctx context.Context, facilityID string) (*FacilityDTO, error)
}

// Config holds the connection settings for the backend.
type Config struct {
	BaseURL string
	Token   string

	// Performance Settings
	RequestDelay time.Duration
	Timeout      time.Duration
	CacheTTL     time.Duration
}

// NewClient creates a backend client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewHTTPClient(cfg)
}
