package snapshot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"parking-analytics/internal/backend"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/telemetry"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Provider orchestrates fetching, normalization and caching of snapshots.
type Provider struct {
	client   backend.Client
	store    *Store
	cacheDir string
	loc      *time.Location
	ttl      time.Duration
	now      func() time.Time
	gen      atomic.Uint64
}

// NewProvider wires a provider. With a nil client the provider serves the
// cached raw payloads only (offline mode).
func NewProvider(client backend.Client, store *Store, cacheDir string, loc *time.Location, ttl time.Duration) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{
		client:   client,
		store:    store,
		cacheDir: cacheDir,
		loc:      loc,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the stored snapshot while it is younger than the TTL and
// refreshes it otherwise.
func (p *Provider) Get(ctx context.Context, facilityID string) (parking.Snapshot, error) {
	if e, ok := p.store.Get(facilityID); ok && e.Err == nil && p.ttl > 0 && p.now().Sub(e.FetchedAt) < p.ttl {
		return e.Snapshot, nil
	}
	return p.Refresh(ctx, facilityID)
}

// Refresh fetches a fresh snapshot. On failure an empty snapshot is stored and
// returned together with the error. If a newer refresh was started meanwhile,
// its result wins and is returned instead.
func (p *Provider) Refresh(ctx context.Context, facilityID string) (parking.Snapshot, error) {
	gen := p.gen.Add(1)
	start := time.Now()
	now := p.now()

	raw, err := p.fetch(ctx, facilityID)
	telemetry.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.FetchErrors.WithLabelValues(facilityID).Inc()
		log.Error().Err(err).Str("facility", facilityID).Msg("Snapshot fetch failed, serving empty snapshot")
		snap := parking.EmptySnapshot(facilityID)
		if !p.store.Put(facilityID, Entry{Snapshot: snap, FetchedAt: now, Generation: gen, Err: err}) {
			return p.latest(facilityID, snap), nil
		}
		return snap, err
	}

	snap := raw.Normalize(p.loc, now)
	d := snap.Dropped
	telemetry.ObserveDropped(d.Sessions, d.Payments, d.Subscriptions, d.Shifts)

	if !p.store.Put(facilityID, Entry{Snapshot: snap, FetchedAt: now, Generation: gen}) {
		telemetry.SupersededFetches.Inc()
		log.Debug().Str("facility", facilityID).Uint64("generation", gen).Msg("Discarding superseded snapshot")
		return p.latest(facilityID, snap), nil
	}
	p.observe(snap)

	if p.client != nil && p.cacheDir != "" {
		if err := SaveRaw(p.cacheDir, raw); err != nil {
			log.Warn().Err(err).Str("facility", facilityID).Msg("Failed to save snapshot cache")
		}
	}

	log.Info().
		Str("facility", facilityID).
		Int("sessions", len(snap.Sessions)).
		Int("payments", len(snap.Payments)).
		Int("subscriptions", len(snap.Subscriptions)).
		Int("shifts", len(snap.Shifts)).
		Int("dropped", d.Total()).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot refreshed")
	return snap, nil
}

// Facilities lists the facilities currently held in memory.
func (p *Provider) Facilities() []string {
	return p.store.Facilities()
}

func (p *Provider) latest(facilityID string, fallback parking.Snapshot) parking.Snapshot {
	if e, ok := p.store.Get(facilityID); ok {
		return e.Snapshot
	}
	return fallback
}

func (p *Provider) fetch(ctx context.Context, facilityID string) (Raw, error) {
	if p.client == nil {
		if p.cacheDir == "" {
			return Raw{}, fmt.Errorf("no backend configured and no cache directory")
		}
		return LoadRaw(p.cacheDir, facilityID)
	}

	raw := Raw{FacilityID: facilityID, FetchedAt: p.now()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := p.client.FetchHistory(gctx, facilityID)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		raw.History = rows
		return nil
	})
	g.Go(func() error {
		rows, err := p.client.FetchSubscriptions(gctx, facilityID)
		if err != nil {
			return fmt.Errorf("subscriptions: %w", err)
		}
		raw.Subscriptions = rows
		return nil
	})
	g.Go(func() error {
		rows, err := p.client.FetchShifts(gctx, facilityID)
		if err != nil {
			return fmt.Errorf("shifts: %w", err)
		}
		raw.Shifts = rows
		return nil
	})
	g.Go(func() error {
		f, err := p.client.FetchFacility(gctx, facilityID)
		if err != nil {
			return fmt.Errorf("facility: %w", err)
		}
		raw.Facility = f
		return nil
	})

	if err := g.Wait(); err != nil {
		return Raw{}, err
	}
	return raw, nil
}

func (p *Provider) observe(snap parking.Snapshot) {
	id := snap.FacilityID
	telemetry.SnapshotRecords.WithLabelValues(id, "sessions").Set(float64(len(snap.Sessions)))
	telemetry.SnapshotRecords.WithLabelValues(id, "payments").Set(float64(len(snap.Payments)))
	telemetry.SnapshotRecords.WithLabelValues(id, "subscriptions").Set(float64(len(snap.Subscriptions)))
	telemetry.SnapshotRecords.WithLabelValues(id, "shifts").Set(float64(len(snap.Shifts)))
}
