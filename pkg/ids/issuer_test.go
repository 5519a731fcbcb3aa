package ids

import (
	"regexp"
	"sort"
	"sync"
	"testing"

	"minuteman/pkg/logger"
	"minuteman/pkg/store"
)

func TestGenerateNextIDSequence(t *testing.T) {
	logger.InitWithLevel("error")
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer store.Close()

	iss := NewIssuer("TASK", 3)
	id1 := iss.GenerateNextID("2608")
	id2 := iss.GenerateNextID("2608")
	if id1.Value != "TASK-2608-001" || id2.Value != "TASK-2608-002" {
		t.Fatalf("unexpected ids: %s, %s", id1.Value, id2.Value)
	}
	if id1.Fallback || id2.Fallback {
		t.Fatalf("sequence ids marked fallback")
	}
	if !(id1.Value < id2.Value) {
		t.Fatalf("ids not lexicographically increasing")
	}
}

func TestGenerateNextIDConcurrentDistinct(t *testing.T) {
	logger.InitWithLevel("error")
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer store.Close()

	iss := NewIssuer("TASK", 4)
	const n = 1000
	var mu sync.Mutex
	var seqs []int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := iss.GenerateNextID("2608")
			if id.Fallback {
				t.Errorf("unexpected fallback id %s", id.Value)
				return
			}
			mu.Lock()
			seqs = append(seqs, id.Seq)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seqs) != n {
		t.Fatalf("expected %d ids, got %d", n, len(seqs))
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i := range seqs {
		if seqs[i] != int64(i+1) {
			t.Fatalf("sequence not distinct/strictly increasing at %d: %d", i, seqs[i])
		}
	}
}

var fallbackPat = regexp.MustCompile(`^TASK-\d{6}-[0-9A-Z]+$`)

func TestFallbackWhenCounterUnavailable(t *testing.T) {
	logger.InitWithLevel("error")
	// no store opened: counter increments fail
	iss := NewIssuer("TASK", 3)
	id := iss.GenerateNextID("")
	if !id.Fallback {
		t.Fatalf("expected fallback id, got %+v", id)
	}
	if !fallbackPat.MatchString(id.Value) {
		t.Fatalf("fallback id %q does not match pattern", id.Value)
	}
	if id.SourceID == "" {
		t.Fatalf("fallback id missing SourceID")
	}
	// fallback must never look like a sequence-issued id
	if regexp.MustCompile(`^TASK-\d{4}-\d{3}$`).MatchString(id.Value) {
		t.Fatalf("fallback id indistinguishable from sequence id: %s", id.Value)
	}
}
