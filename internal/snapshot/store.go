package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"parking-analytics/internal/backend"
	"parking-analytics/internal/parking"

	"github.com/rs/zerolog/log"
)

// Entry is the snapshot currently served for one facility.
type Entry struct {
	Snapshot   parking.Snapshot
	FetchedAt  time.Time
	Generation uint64
	Err        error
}

// Store provides thread-safe storage of the latest snapshot per facility.
// A write carrying an older generation than the stored one is rejected, so a
// slow fetch never overwrites the result of a newer one.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]Entry),
	}
}

// Put stores e for facilityID and reports whether it was accepted.
func (s *Store) Put(facilityID string, e Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entries[facilityID]; ok && cur.Generation > e.Generation {
		return false
	}
	s.entries[facilityID] = e
	return true
}

// Get returns the stored entry for facilityID.
func (s *Store) Get(facilityID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[facilityID]
	return e, ok
}

// Clear drops the entry for facilityID.
func (s *Store) Clear(facilityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, facilityID)
}

// Facilities lists the facilities with a stored snapshot, sorted.
func (s *Store) Facilities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Raw is the un-normalized upstream payload. It is what gets cached on disk
// and what the mock generator emits; computed metrics are never persisted.
type Raw struct {
	FacilityID    string                    `json:"facility_id"`
	FetchedAt     time.Time                 `json:"fetched_at"`
	Facility      *backend.FacilityDTO      `json:"facility,omitempty"`
	History       []backend.HistoryRowDTO   `json:"history"`
	Subscriptions []backend.SubscriptionDTO `json:"subscriptions"`
	Shifts        []backend.ShiftDTO        `json:"shifts"`
}

// Normalize converts the raw payload into an immutable snapshot.
func (r Raw) Normalize(loc *time.Location, now time.Time) parking.Snapshot {
	return parking.NewNormalizer(loc, now).Snapshot(r.FacilityID, r.History, r.Subscriptions, r.Shifts, r.Facility)
}

func cachePath(cacheDir, facilityID string) string {
	return filepath.Join(cacheDir, fmt.Sprintf("snapshot-%s.json", facilityID))
}

// SaveRaw persists a raw payload under cacheDir using an atomic rename.
func SaveRaw(cacheDir string, raw Raw) error {
	path := cachePath(cacheDir, raw.FacilityID)
	tmpPath := path + ".tmp"

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	log.Info().Str("facility", raw.FacilityID).Int("history", len(raw.History)).Msg("Raw snapshot saved to cache")
	return nil
}

// LoadRaw reads the cached payload for facilityID. A missing cache is
// reported as os.ErrNotExist.
func LoadRaw(cacheDir, facilityID string) (Raw, error) {
	return ReadFile(cachePath(cacheDir, facilityID))
}

// ReadFile decodes a raw payload file.
func ReadFile(path string) (Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Raw{}, fmt.Errorf("failed to open snapshot: %w", err)
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return Raw{}, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return raw, nil
}

// DeleteCache removes the cached payload for facilityID.
func DeleteCache(cacheDir, facilityID string) error {
	err := os.Remove(cachePath(cacheDir, facilityID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
