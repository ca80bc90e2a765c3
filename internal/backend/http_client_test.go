package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_FetchHistory(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare array", `[{"id": 1, "entrada": "2024-01-01T10:00:00", "importe": "250"}]`},
		{"data envelope", `{"data": [{"id": 1, "entrada": "2024-01-01T10:00:00", "importe": "250"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, map[string]string{"/facilities/42/history": tt.body}, nil)
			client := NewHTTPClient(Config{BaseURL: srv.URL + "/"})

			rows, err := client.FetchHistory(context.Background(), "42")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "1", rows[0].ID)
			require.NotNil(t, rows[0].EntryTime)
			assert.Equal(t, "2024-01-01T10:00:00", *rows[0].EntryTime)
			assert.Equal(t, 250.0, rows[0].Fee.Float())
		})
	}
}

func TestHTTPClient_SendsToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id": 7, "total_spots": 50}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL, Token: "secret"})
	f, err := client.FetchFacility(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, 50, f.TotalSpots)
}

func TestHTTPClient_UpstreamError(t *testing.T) {
	srv := newTestServer(t, map[string]string{}, nil)
	client := NewHTTPClient(Config{BaseURL: srv.URL})

	_, err := client.FetchShifts(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPClient_Cache(t *testing.T) {
	var hits int32
	srv := newTestServer(t, map[string]string{"/facilities/1/subscriptions": `[]`}, &hits)

	cached := NewHTTPClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		_, err := cached.FetchSubscriptions(context.Background(), "1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	uncached := NewHTTPClient(Config{BaseURL: srv.URL})
	for i := 0; i < 2; i++ {
		_, err := uncached.FetchSubscriptions(context.Background(), "1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestHTTPClient_BreakerOpens(t *testing.T) {
	var hits int32
	srv := newTestServer(t, map[string]string{}, &hits)
	client := NewHTTPClient(Config{BaseURL: srv.URL})

	for i := 0; i < 8; i++ {
		_, err := client.FetchHistory(context.Background(), "1")
		assert.ErrorIs(t, err, ErrUpstream)
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits), "breaker should stop calling after 5 consecutive failures")
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1500", "1500", false},
		{"$ 1500.50", "1500.5", false},
		{"1.500,50", "1500.5", false},
		{"1,500", "1500", false},
		{"12,5", "12.5", false},
		{"", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02T10:30:00Z", time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{"2024-01-02T10:30:00", time.Date(2024, 1, 2, 10, 30, 0, 0, loc)},
		{"2024-01-02 10:30", time.Date(2024, 1, 2, 10, 30, 0, 0, loc)},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, loc)},
		{"02/01/2024", time.Date(2024, 1, 2, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in, loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}

	_, err := ParseTime("yesterday", loc)
	assert.Error(t, err)
}
