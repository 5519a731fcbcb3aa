package dedup

import (
	"sync"
	"testing"
	"time"

	"minuteman/pkg/logger"
	"minuteman/pkg/store"
)

func openStore(t *testing.T) {
	t.Helper()
	logger.InitWithLevel("error")
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func TestCheckAndMarkFirstAndDuplicate(t *testing.T) {
	openStore(t)
	g := NewGate(Options{})

	if !g.CheckAndMark("ev1", nil) {
		t.Fatalf("first observation reported duplicate")
	}
	if g.CheckAndMark("ev1", nil) {
		t.Fatalf("duplicate reported as new")
	}
}

func TestCheckAndMarkConcurrentExactlyOneNew(t *testing.T) {
	openStore(t)
	g := NewGate(Options{})

	const n = 32
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.CheckAndMark("ev-race", nil)
		}(i)
	}
	wg.Wait()
	news := 0
	for _, r := range results {
		if r {
			news++
		}
	}
	if news != 1 {
		t.Fatalf("expected exactly one isNew=true, got %d", news)
	}
}

func TestDegradedModeSurvivesOutage(t *testing.T) {
	// No store opened at all: every durable attempt errors, forcing the
	// process-local fallback.
	logger.InitWithLevel("error")
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	g := NewGate(Options{Cooldown: time.Minute, Now: clock})

	if !g.CheckAndMark("outage-ev", nil) {
		t.Fatalf("first observation during outage reported duplicate")
	}
	if !g.Degraded() {
		t.Fatalf("gate did not enter degraded mode after store error")
	}
	// duplicate seen during the outage is still rejected, process-locally
	if g.CheckAndMark("outage-ev", nil) {
		t.Fatalf("duplicate not caught in degraded mode")
	}
}

func TestDegradedCooldownReenablesDurable(t *testing.T) {
	openStore(t)
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	g := NewGate(Options{Cooldown: time.Minute, Now: clock})

	// force degraded mode manually
	g.mu.Lock()
	g.degradedUntil = now.Add(time.Minute)
	g.mu.Unlock()

	if !g.CheckAndMark("cool-ev", nil) {
		t.Fatalf("local first observation reported duplicate")
	}
	// durable store must not have been touched while degraded
	if _, ok, _ := store.Get(store.DedupPrefix + "cool-ev"); ok {
		t.Fatalf("durable store written during cooldown")
	}

	// cooldown elapses; the durable path resumes
	now = now.Add(2 * time.Minute)
	if !g.CheckAndMark("cool-ev2", nil) {
		t.Fatalf("post-cooldown observation reported duplicate")
	}
	if _, ok, _ := store.Get(store.DedupPrefix + "cool-ev2"); !ok {
		t.Fatalf("durable store not used after cooldown elapsed")
	}
}

func TestLocalRetentionBoundsMemory(t *testing.T) {
	logger.InitWithLevel("error")
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	g := NewGate(Options{Cooldown: time.Hour, LocalRetention: 10 * time.Minute, Now: clock})

	g.CheckAndMark("a", nil) // degrades, marks locally
	now = now.Add(11 * time.Minute)
	g.mu.Lock()
	g.degradedUntil = now.Add(time.Hour) // stay degraded
	g.mu.Unlock()
	// "a" is past local retention and gets swept, so it reads as new again.
	// This is the documented process-scoped weakening, not a bug.
	if !g.CheckAndMark("a", nil) {
		t.Fatalf("expired local entry still rejected")
	}
	g.mu.Lock()
	size := len(g.local)
	g.mu.Unlock()
	if size != 1 {
		t.Fatalf("local set not swept: %d entries", size)
	}
}
