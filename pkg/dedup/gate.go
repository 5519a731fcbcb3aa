// Package dedup implements the event deduplication gate. The durable path is
// a conditional first-writer-wins insert into the Pebble store; when the store
// errors the gate degrades to a process-local timestamped set and re-probes
// the store after a cooldown. While degraded, duplicate detection is
// process-scoped only - an accepted, documented weakening during an outage,
// not a silent bug.
package dedup

import (
	"encoding/json"
	"sync"
	"time"

	"minuteman/pkg/logger"
	"minuteman/pkg/models"
	"minuteman/pkg/store"
	"minuteman/pkg/telemetry"
)

// Options tunes the gate. Zero values pick the defaults below.
type Options struct {
	// Retention bounds how long durable dedup records live before the sweep
	// collects them. Duplicates are a near-term redelivery concern, so hours.
	Retention time.Duration
	// Cooldown is how long the gate stays on the local fallback after a
	// durable store error before probing the store again.
	Cooldown time.Duration
	// LocalRetention bounds the degraded-mode set's memory.
	LocalRetention time.Duration
	// Now is injectable for tests.
	Now func() time.Time
}

const (
	defaultRetention      = 6 * time.Hour
	defaultCooldown       = 60 * time.Second
	defaultLocalRetention = 10 * time.Minute
)

// Gate answers "is this the first time we see this event key?".
type Gate struct {
	opts Options

	mu            sync.Mutex
	local         map[string]time.Time
	degradedUntil time.Time
}

// NewGate builds a gate with the given options.
func NewGate(opts Options) *Gate {
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.LocalRetention <= 0 {
		opts.LocalRetention = defaultLocalRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gate{opts: opts, local: make(map[string]time.Time)}
}

// CheckAndMark atomically records eventKey as seen and reports whether this
// call was the first observation. Concurrent duplicate deliveries are
// serialized here: exactly one caller gets isNew=true. Errors from the durable
// store are absorbed into degraded mode and never propagated.
func (g *Gate) CheckAndMark(eventKey string, meta map[string]string) bool {
	now := g.opts.Now()

	g.mu.Lock()
	degraded := now.Before(g.degradedUntil)
	g.mu.Unlock()

	if !degraded {
		rec := models.DedupRecord{
			EventKey:    eventKey,
			ProcessedAt: now.Unix(),
			ExpiresAt:   now.Add(g.opts.Retention).Unix(),
			Metadata:    meta,
		}
		b, err := json.Marshal(rec)
		if err == nil {
			created, serr := store.SetIfAbsent(store.DedupPrefix+eventKey, b)
			if serr == nil {
				if !created {
					telemetry.DuplicatesDropped.Inc()
					logger.Debug("duplicate_event_dropped", "event_key", eventKey)
				}
				return created
			}
			err = serr
		}
		telemetry.DedupDegraded.Inc()
		logger.Warn("dedup_store_degraded", "event_key", eventKey, "cooldown", g.opts.Cooldown.String(), "error", err)
		g.mu.Lock()
		g.degradedUntil = now.Add(g.opts.Cooldown)
		g.mu.Unlock()
	}

	return g.markLocal(eventKey, now)
}

// markLocal is the process-scoped fallback path.
func (g *Gate) markLocal(eventKey string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cutoff := now.Add(-g.opts.LocalRetention)
	for k, seen := range g.local {
		if seen.Before(cutoff) {
			delete(g.local, k)
		}
	}
	if _, ok := g.local[eventKey]; ok {
		telemetry.DuplicatesDropped.Inc()
		logger.Debug("duplicate_event_dropped_local", "event_key", eventKey)
		return false
	}
	g.local[eventKey] = now
	return true
}

// Degraded reports whether the gate is currently on the local fallback.
func (g *Gate) Degraded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opts.Now().Before(g.degradedUntil)
}
