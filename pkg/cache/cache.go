// Package cache provides the ephemeral artifact staging area. It is not a
// performance cache: entries live until the process exits or the TTL sweep
// collects them, and every consumer must tolerate a miss by re-acquiring the
// artifact from its origin.
package cache

import (
	"sync"
	"time"

	"minuteman/pkg/models"
)

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

// ArtifactCache is a bounded in-process map with TTL sweeping. Constructed and
// injected, never a module-level global, so tests control time and eviction.
type ArtifactCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     Clock
}

type entry struct {
	art     *models.Artifact
	savedAt time.Time
}

// New returns a cache whose entries expire after ttl. A zero ttl disables
// expiry (process-lifetime entries). now may be nil for wall-clock time.
func New(ttl time.Duration, now Clock) *ArtifactCache {
	if now == nil {
		now = time.Now
	}
	return &ArtifactCache{entries: make(map[string]entry), ttl: ttl, now: now}
}

// CompositeKey builds the fileID|channel lookup key. Interaction payloads may
// carry either the bare file id or the composite, so Put maintains both.
func CompositeKey(fileID, channel string) string { return fileID + "|" + channel }

// Put stores the artifact under its bare file id and, when the channel is
// known, under the composite key as well.
func (c *ArtifactCache) Put(art *models.Artifact) {
	if art == nil || art.FileID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{art: art, savedAt: c.now()}
	c.entries[art.FileID] = e
	if art.Channel != "" {
		c.entries[CompositeKey(art.FileID, art.Channel)] = e
	}
}

// Get returns the artifact stored under key, if present and unexpired.
func (c *ArtifactCache) Get(key string) (*models.Artifact, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.savedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.art, true
}

// Lookup tries the composite key first, then the bare file id.
func (c *ArtifactCache) Lookup(fileID, channel string) (*models.Artifact, bool) {
	if channel != "" {
		if a, ok := c.Get(CompositeKey(fileID, channel)); ok {
			return a, ok
		}
	}
	return c.Get(fileID)
}

// AttachSummary sets the summary on the cached artifact. Last write wins; the
// summary is derived deterministically from the same content, so concurrent
// writers are harmless.
func (c *ArtifactCache) AttachSummary(fileID, channel, summary string) {
	if a, ok := c.Lookup(fileID, channel); ok {
		c.mu.Lock()
		a.Summary = summary
		c.mu.Unlock()
	}
}

// Sweep removes expired entries and returns how many were dropped.
func (c *ArtifactCache) Sweep() int {
	if c.ttl <= 0 {
		return 0
	}
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if e.savedAt.Before(cutoff) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of live keys (composite keys counted separately).
func (c *ArtifactCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
