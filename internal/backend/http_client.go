package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

type httpClient struct {
	cfg         Config
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	lastRequest time.Time
	throttleMu  sync.Mutex

	// Session Cache
	cache      map[string]*cacheEntry
	cacheMutex sync.Mutex
}

type cacheEntry struct {
	Value       []byte
	Expiration  time.Time
	AccessCount int
	OriginalTTL time.Duration
}

// NewHTTPClient builds the REST client. Every request passes through a circuit
// breaker so a failing backend degrades to empty snapshots quickly.
func NewHTTPClient(cfg Config) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "parking-backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return &httpClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: breaker,
		cache:   make(map[string]*cacheEntry),
	}
}

func (c *httpClient) FetchHistory(ctx context.Context, facilityID string) ([]HistoryRowDTO, error) {
	var rows []HistoryRowDTO
	if err := c.getList(ctx, facilityPath(facilityID, "history"), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *httpClient) FetchSubscriptions(ctx context.Context, facilityID string) ([]SubscriptionDTO, error) {
	var rows []SubscriptionDTO
	if err := c.getList(ctx, facilityPath(facilityID, "subscriptions"), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *httpClient) FetchShifts(ctx context.Context, facilityID string) ([]ShiftDTO, error) {
	var rows []ShiftDTO
	if err := c.getList(ctx, facilityPath(facilityID, "shifts"), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *httpClient) FetchFacility(ctx context.Context, facilityID string) (*FacilityDTO, error) {
	body, err := c.get(ctx, facilityPath(facilityID, ""))
	if err != nil {
		return nil, err
	}
	var dto FacilityDTO
	if err := json.Unmarshal(unwrapEnvelope(body), &dto); err != nil {
		return nil, fmt.Errorf("failed to decode facility %s: %w", facilityID, err)
	}
	return &dto, nil
}

func facilityPath(facilityID, resource string) string {
	p := "/facilities/" + url.PathEscape(facilityID)
	if resource != "" {
		p += "/" + resource
	}
	return p
}

func (c *httpClient) getList(ctx context.Context, path string, out any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(unwrapEnvelope(body), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// get performs a cached, throttled, breaker-guarded GET and returns the raw body.
func (c *httpClient) get(ctx context.Context, path string) ([]byte, error) {
	if body, ok := c.getFromCache(path); ok {
		return body, nil
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, path)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUpstream, path, err)
	}

	body := res.([]byte)
	if c.cfg.CacheTTL > 0 {
		c.addToCache(path, body, c.cfg.CacheTTL)
	}
	return body, nil
}

func (c *httpClient) do(ctx context.Context, path string) ([]byte, error) {
	c.throttle()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("Backend request")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func (c *httpClient) throttle() {
	if c.cfg.RequestDelay <= 0 {
		return
	}
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling backend request")
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}

func (c *httpClient) getFromCache(key string) ([]byte, bool) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.Expiration) {
		delete(c.cache, key)
		return nil, false
	}

	// Sliding window extension
	if entry.AccessCount < 6 {
		entry.Expiration = time.Now().Add(entry.OriginalTTL)
		entry.AccessCount++
	}
	log.Debug().Str("key", key).Msg("Cache hit")
	return entry.Value, true
}

func (c *httpClient) addToCache(key string, value []byte, ttl time.Duration) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	c.cache[key] = &cacheEntry{
		Value:       value,
		Expiration:  time.Now().Add(ttl),
		OriginalTTL: ttl,
		AccessCount: 1,
	}
}

// unwrapEnvelope accepts both bare payloads and {"data": ...} envelopes.
func unwrapEnvelope(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 {
		return env.Data
	}
	return trimmed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
