package snapshot

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"parking-analytics/internal/backend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	calls    int
	history  []backend.HistoryRowDTO
	err      error
	gates    []chan struct{}
	facility *backend.FacilityDTO
}

func (f *fakeClient) FetchHistory(ctx context.Context, facilityID string) ([]backend.HistoryRowDTO, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	var gate chan struct{}
	if call < len(f.gates) {
		gate = f.gates[call]
	}
	history, err := f.history, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return history, err
}

func (f *fakeClient) FetchSubscriptions(context.Context, string) ([]backend.SubscriptionDTO, error) {
	return []backend.SubscriptionDTO{}, nil
}

func (f *fakeClient) FetchShifts(context.Context, string) ([]backend.ShiftDTO, error) {
	return []backend.ShiftDTO{}, nil
}

func (f *fakeClient) FetchFacility(context.Context, string) (*backend.FacilityDTO, error) {
	return f.facility, nil
}

func historyRow(id, entry, exit string) backend.HistoryRowDTO {
	return backend.HistoryRowDTO{ID: id, EntryTime: &entry, ExitTime: &exit}
}

func TestProvider_Refresh(t *testing.T) {
	client := &fakeClient{
		history:  []backend.HistoryRowDTO{historyRow("1", "2024-01-01T10:00:00", "2024-01-01T11:00:00")},
		facility: &backend.FacilityDTO{TotalSpots: 40},
	}
	dir := t.TempDir()
	p := NewProvider(client, NewStore(), dir, time.UTC, time.Minute)

	snap, err := p.Refresh(context.Background(), "9")
	require.NoError(t, err)
	assert.Len(t, snap.Sessions, 1)
	assert.Equal(t, 40, snap.Facility.TotalCapacity)
	assert.Equal(t, []string{"9"}, p.Facilities())

	raw, err := LoadRaw(dir, "9")
	require.NoError(t, err)
	assert.Len(t, raw.History, 1)
	assert.Equal(t, "9", raw.FacilityID)
}

func TestProvider_GetUsesTTL(t *testing.T) {
	client := &fakeClient{}
	p := NewProvider(client, NewStore(), "", time.UTC, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	_, err := p.Get(context.Background(), "1")
	require.NoError(t, err)
	_, err = p.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)

	now = now.Add(2 * time.Minute)
	_, err = p.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestProvider_FailureDegradesToEmpty(t *testing.T) {
	client := &fakeClient{
		history: []backend.HistoryRowDTO{historyRow("1", "2024-01-01T10:00:00", "2024-01-01T11:00:00")},
	}
	store := NewStore()
	p := NewProvider(client, store, "", time.UTC, time.Minute)

	_, err := p.Refresh(context.Background(), "1")
	require.NoError(t, err)

	client.err = backend.ErrUpstream
	snap, err := p.Refresh(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrUpstream))
	assert.True(t, snap.IsEmpty())
	assert.NotNil(t, snap.Sessions)

	e, ok := store.Get("1")
	require.True(t, ok)
	assert.True(t, e.Snapshot.IsEmpty())
	assert.Error(t, e.Err)

	// a failed entry is never served from the TTL cache
	client.err = nil
	snap, err = p.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Len(t, snap.Sessions, 1)
}

func TestProvider_LatestFetchWins(t *testing.T) {
	slow := make(chan struct{})
	client := &fakeClient{
		gates: []chan struct{}{slow, nil},
	}
	store := NewStore()
	p := NewProvider(client, store, "", time.UTC, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Refresh(context.Background(), "1")
	}()

	// wait until the first fetch is parked on its gate
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.calls == 1
	}, time.Second, time.Millisecond)

	client.mu.Lock()
	client.history = []backend.HistoryRowDTO{historyRow("new", "2024-01-02T10:00:00", "2024-01-02T11:00:00")}
	client.mu.Unlock()

	fresh, err := p.Refresh(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, fresh.Sessions, 1)

	close(slow)
	<-done

	e, ok := store.Get("1")
	require.True(t, ok)
	assert.Equal(t, uint64(2), e.Generation)
	require.Len(t, e.Snapshot.Sessions, 1)
	assert.Equal(t, "new", e.Snapshot.Sessions[0].ID)
}

func TestProvider_Offline(t *testing.T) {
	dir := t.TempDir()
	raw := Raw{
		FacilityID: "3",
		History:    []backend.HistoryRowDTO{historyRow("1", "2024-01-01T10:00:00", "2024-01-01T11:00:00")},
		Facility:   &backend.FacilityDTO{TotalSpots: 10},
	}
	require.NoError(t, SaveRaw(dir, raw))

	p := NewProvider(nil, NewStore(), dir, time.UTC, 0)
	snap, err := p.Refresh(context.Background(), "3")
	require.NoError(t, err)
	assert.Len(t, snap.Sessions, 1)
	assert.Equal(t, 10, snap.Facility.TotalCapacity)

	_, err = p.Refresh(context.Background(), "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_RejectsOlderGeneration(t *testing.T) {
	s := NewStore()
	assert.True(t, s.Put("1", Entry{Generation: 2}))
	assert.False(t, s.Put("1", Entry{Generation: 1}))
	assert.True(t, s.Put("1", Entry{Generation: 2}))

	e, _ := s.Get("1")
	assert.Equal(t, uint64(2), e.Generation)

	s.Clear("1")
	_, ok := s.Get("1")
	assert.False(t, ok)
}

func TestDeleteCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveRaw(dir, Raw{FacilityID: "1"}))
	require.NoError(t, DeleteCache(dir, "1"))
	require.NoError(t, DeleteCache(dir, "1"))
	_, err := LoadRaw(dir, "1")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
