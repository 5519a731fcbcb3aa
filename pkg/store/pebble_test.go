package store

import (
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"minuteman/pkg/logger"
	"minuteman/pkg/models"
)

func openTemp(t *testing.T) {
	t.Helper()
	logger.InitWithLevel("error")
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestSetIfAbsentFirstWriterWins(t *testing.T) {
	openTemp(t)

	created, err := SetIfAbsent("dedup:k1", []byte("a"))
	if err != nil || !created {
		t.Fatalf("first SetIfAbsent: created=%v err=%v", created, err)
	}
	created, err = SetIfAbsent("dedup:k1", []byte("b"))
	if err != nil {
		t.Fatalf("second SetIfAbsent: %v", err)
	}
	if created {
		t.Fatalf("second SetIfAbsent reported created=true")
	}
	v, ok, err := Get("dedup:k1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(v) != "a" {
		t.Fatalf("duplicate write overwrote value: got %q", v)
	}
}

func TestSetIfAbsentConcurrent(t *testing.T) {
	openTemp(t)

	const n = 64
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := SetIfAbsent("dedup:race", []byte("x"))
			if err != nil {
				t.Errorf("SetIfAbsent: %v", err)
			}
			results[i] = created
		}(i)
	}
	wg.Wait()
	wins := 0
	for _, r := range results {
		if r {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestIncrementConcurrentDistinct(t *testing.T) {
	openTemp(t)

	const n = 1000
	var mu sync.Mutex
	var got []int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Increment("counter:task:2608")
			if err != nil {
				t.Errorf("Increment: %v", err)
				return
			}
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(got) != n {
		t.Fatalf("expected %d values, got %d", n, len(got))
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i := range got {
		if got[i] != int64(i+1) {
			t.Fatalf("values not distinct/strictly increasing at %d: %d", i, got[i])
		}
	}
}

func TestScanPrefixBounds(t *testing.T) {
	openTemp(t)

	_ = Set("commit:f1:p1", []byte("1"))
	_ = Set("commit:f2:p1", []byte("2"))
	_ = Set("counter:task:2608", []byte("3"))

	var keys []string
	if err := ScanPrefix(CommitPrefix, func(key string, value []byte) bool {
		keys = append(keys, key)
		return true
	}); err != nil {
		t.Fatalf("ScanPrefix: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 commit keys, got %v", keys)
	}
}

func TestSweepExpiredDedup(t *testing.T) {
	openTemp(t)

	now := time.Now()
	put := func(key string, expires time.Time) {
		rec := models.DedupRecord{EventKey: key, ProcessedAt: now.Unix(), ExpiresAt: expires.Unix()}
		b, _ := json.Marshal(rec)
		_ = Set(DedupPrefix+key, b)
	}
	put("old", now.Add(-time.Hour))
	put("fresh", now.Add(time.Hour))

	n, err := SweepExpiredDedup(now)
	if err != nil {
		t.Fatalf("SweepExpiredDedup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if _, ok, _ := Get(DedupPrefix + "old"); ok {
		t.Fatalf("expired record survived sweep")
	}
	if _, ok, _ := Get(DedupPrefix + "fresh"); !ok {
		t.Fatalf("fresh record removed by sweep")
	}
}
