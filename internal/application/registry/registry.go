// Package registry implements the Connection Registry: the in-memory
// authoritative view of which apps are alive, whether or not this
// daemon launched them (spec §4.2).
package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ghostrunctl/ghost/internal/application/idlock"
	"github.com/ghostrunctl/ghost/internal/domain/cache"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	"github.com/ghostrunctl/ghost/internal/domain/store"
)

// listActiveCacheKey is the sole cache entry this package memoizes: the
// full ListActive() snapshot, short-lived so the Maintenance Ticker's
// per-second sweep doesn't re-walk the map on every consumer (spec §6
// capability hint: cache is opt-in, never load-bearing for correctness).
const listActiveCacheKey = "registry:listactive"

// listActiveCacheTTL is kept well under the default 1s maintenance
// tick so a cache hit still reflects a recent sweep, not a stale one.
const listActiveCacheTTL = 500 * time.Millisecond

// EventSink receives connection lifecycle events. The daemon wires this
// to a bus.Bus-backed adapter.
type EventSink interface {
	PublishEvent(event ghost.SystemEvent)
}

// Registry owns every ConnectionRecord mutation.
type Registry struct {
	cfg   Config
	store store.Store
	sink  EventSink
	cache cache.Cache

	mu      sync.RWMutex
	records map[string]*ghost.ConnectionRecord

	locks *idlock.Table
}

// New constructs a Registry. store may be nil to skip persistence (used
// by tests exercising only in-memory behavior).
func New(cfg Config, s store.Store, sink EventSink) *Registry {
	return &Registry{
		cfg:     cfg,
		store:   s,
		sink:    sink,
		records: make(map[string]*ghost.ConnectionRecord),
		locks:   idlock.NewTable(),
	}
}

// WithCache attaches an optional cache.Cache backend used to memoize
// ListActive() snapshots between maintenance ticks (spec §6 capability
// hint: cache is opt-in, never load-bearing for correctness). Returns r
// for chaining during bootstrap wiring.
func (r *Registry) WithCache(c cache.Cache) *Registry {
	r.cache = c
	return r
}

// Get returns a copy of the record for id, or false if unknown.
func (r *Registry) Get(id string) (ghost.ConnectionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return ghost.ConnectionRecord{}, false
	}
	return rec.Clone(), true
}

// ListActive returns records whose lastSeen is within ConnectionTimeout
// of now. When a cache backend is attached, a recent snapshot is served
// from it instead of re-walking the record map (spec §6: "the Registry
// uses it to memoize ListActive() between maintenance ticks").
func (r *Registry) ListActive(now time.Time) []ghost.ConnectionRecord {
	if r.cache != nil {
		if cached, ok := r.listActiveFromCache(); ok {
			return cached
		}
	}

	r.mu.RLock()
	out := make([]ghost.ConnectionRecord, 0, len(r.records))
	for _, rec := range r.records {
		if now.Sub(rec.LastSeen) <= r.cfg.ConnectionTimeout {
			out = append(out, rec.Clone())
		}
	}
	r.mu.RUnlock()

	if r.cache != nil {
		r.storeListActiveCache(out)
	}
	return out
}

func (r *Registry) listActiveFromCache() ([]ghost.ConnectionRecord, bool) {
	blob, ok, err := r.cache.Get(context.Background(), listActiveCacheKey)
	if err != nil || !ok {
		return nil, false
	}
	var out []ghost.ConnectionRecord
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (r *Registry) storeListActiveCache(records []ghost.ConnectionRecord) {
	blob, err := json.Marshal(records)
	if err != nil {
		return
	}
	_ = r.cache.Set(context.Background(), listActiveCacheKey, blob, listActiveCacheTTL)
}

// ListAll returns a copy of every known record, active or not.
func (r *Registry) ListAll() []ghost.ConnectionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ghost.ConnectionRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	return out
}

// RegisterConnection upserts c by id, bypassing the heartbeat
// auto-registration defaults.
func (r *Registry) RegisterConnection(ctx context.Context, c ghost.ConnectionRecord) error {
	if c.ID == "" {
		return ghost.NewError(ghost.KindInvalidArgument, "id must not be empty")
	}
	r.locks.Lock(c.ID)
	defer r.locks.Unlock(c.ID)

	r.mu.Lock()
	rec := c.Clone()
	if rec.LastSeen.IsZero() {
		rec.LastSeen = time.Now()
	}
	r.records[rec.ID] = &rec
	r.mu.Unlock()

	return r.persist(ctx, rec)
}

// UpsertFromHeartbeat implements spec §4.2: auto-registers unknown ids
// with minimal metadata, updates status and lastSeen, and emits
// connection.connected when transitioning out of Disconnected.
func (r *Registry) UpsertFromHeartbeat(ctx context.Context, id string, status ghost.Status, appType string) error {
	return r.upsert(ctx, id, appType, func(rec *ghost.ConnectionRecord) bool {
		rec.Status = status
		return true
	})
}

// UpsertFromHealth is UpsertFromHeartbeat plus a stored message.
func (r *Registry) UpsertFromHealth(ctx context.Context, id string, status ghost.Status, message, appType string) error {
	return r.upsert(ctx, id, appType, func(rec *ghost.ConnectionRecord) bool {
		rec.Status = status
		rec.LastMessage = message
		return true
	})
}

// UpsertFromMetrics is like UpsertFromHeartbeat but also records the
// sample, forces status to Running, and forwards the sample to the
// State Store tagged with the record's AppType.
func (r *Registry) UpsertFromMetrics(ctx context.Context, id string, sample ghost.MetricSample) error {
	appType := sample.AppType
	recordAppType := defaultAppType(appType)
	err := r.upsert(ctx, id, appType, func(rec *ghost.ConnectionRecord) bool {
		rec.Status = ghost.StatusRunning
		m := sample
		rec.LastMetrics = &m
		recordAppType = rec.AppType()
		return true
	})
	if err != nil {
		return err
	}
	if r.store != nil {
		stored := sample
		stored.AppType = recordAppType
		if serr := r.store.SaveMetric(ctx, stored); serr != nil {
			return ghost.Wrap(ghost.KindStorageFailed, serr, "save metric for %q", id)
		}
	}
	return nil
}

// UpdateSelfMetrics is a convenience wrapper for the daemon's own
// record, used by the Self-Metrics Reporter.
func (r *Registry) UpdateSelfMetrics(ctx context.Context, daemonID string, sample ghost.MetricSample) error {
	return r.UpsertFromMetrics(ctx, daemonID, sample)
}

// upsert implements the shared auto-register/clock-regression/
// connected-event logic for the three Upsert* operations. Clock
// regression is detected here before mutate runs; mutate returning
// false skips the update without error.
func (r *Registry) upsert(ctx context.Context, id, appType string, mutate func(rec *ghost.ConnectionRecord) bool) error {
	if id == "" {
		return ghost.NewError(ghost.KindInvalidArgument, "id must not be empty")
	}
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	now := time.Now()

	r.mu.Lock()
	rec, exists := r.records[id]
	if !exists {
		rec = &ghost.ConnectionRecord{
			ID: id,
			Metadata: ghost.Metadata{
				Name:    id,
				Type:    "unknown",
				Version: "1.0.0",
				Config:  map[string]string{ghost.ReservedAppType: defaultAppType(appType)},
			},
			Status: ghost.StatusUnknown,
		}
		r.records[id] = rec
	}

	// Clock regression: drop heartbeats claiming an earlier lastSeen than
	// what is already stored (spec §4.2 ordering guarantee).
	if !rec.LastSeen.IsZero() && now.Before(rec.LastSeen) {
		r.mu.Unlock()
		return nil
	}

	wasDisconnected := rec.Status == ghost.StatusDisconnected
	if !mutate(rec) {
		r.mu.Unlock()
		return nil
	}
	rec.LastSeen = now
	snapshot := rec.Clone()
	r.mu.Unlock()

	if err := r.persist(ctx, snapshot); err != nil {
		return err
	}
	if wasDisconnected && r.sink != nil {
		r.sink.PublishEvent(ghost.NewSystemEvent(ghost.EventConnectionConnected, id))
	}
	return nil
}

// Sweep marks every record whose lastSeen has exceeded ConnectionTimeout
// as Disconnected, emitting connection.disconnected once per transition
// (spec §4.2, §4.6).
func (r *Registry) Sweep(ctx context.Context, now time.Time) {
	r.mu.Lock()
	var disconnected []string
	for id, rec := range r.records {
		if rec.Status != ghost.StatusDisconnected && now.Sub(rec.LastSeen) > r.cfg.ConnectionTimeout {
			rec.Status = ghost.StatusDisconnected
			disconnected = append(disconnected, id)
		}
	}
	r.mu.Unlock()

	if r.sink == nil {
		return
	}
	for _, id := range disconnected {
		r.sink.PublishEvent(ghost.NewSystemEvent(ghost.EventConnectionDisconnected, id))
	}
}

func (r *Registry) persist(ctx context.Context, rec ghost.ConnectionRecord) error {
	if r.store == nil {
		return nil
	}
	// ConnectionRecords are persisted through the kv facet only, one
	// entry keyed by connection id; the process table is not touched.
	blob, err := encodeConnection(rec)
	if err != nil {
		return ghost.Wrap(ghost.KindInternal, err, "encode connection %q", rec.ID)
	}
	if err := r.store.KVPut(ctx, connectionKey(rec.ID), blob, time.Time{}); err != nil {
		return ghost.Wrap(ghost.KindStorageFailed, err, "save connection %q", rec.ID)
	}
	return nil
}

// Load restores a previously persisted connection record from the
// Store into memory, used by the daemon to recover the self-record
// (and any other known connections) across restarts. Returns false if
// nothing was persisted for id.
func (r *Registry) Load(ctx context.Context, id string) (bool, error) {
	if r.store == nil {
		return false, nil
	}
	blob, ok, err := r.store.KVGet(ctx, connectionKey(id))
	if err != nil {
		return false, ghost.Wrap(ghost.KindStorageFailed, err, "load connection %q", id)
	}
	if !ok {
		return false, nil
	}
	rec, err := decodeConnection(blob)
	if err != nil {
		return false, ghost.Wrap(ghost.KindInternal, err, "decode connection %q", id)
	}
	r.mu.Lock()
	r.records[id] = &rec
	r.mu.Unlock()
	return true, nil
}

func defaultAppType(appType string) string {
	if appType == "" {
		return "unknown"
	}
	return appType
}
