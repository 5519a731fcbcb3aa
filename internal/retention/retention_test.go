package retention

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"minuteman/pkg/cache"
	"minuteman/pkg/logger"
	"minuteman/pkg/models"
	"minuteman/pkg/store"
)

func TestStartRejectsInvalidCron(t *testing.T) {
	logger.InitWithLevel("error")
	if _, err := Start(context.Background(), "not a cron", nil); err == nil {
		t.Fatalf("invalid cron accepted")
	}
	cancel, err := Start(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("default cron rejected: %v", err)
	}
	cancel()
}

func TestRunOnceSweepsExpiredRecords(t *testing.T) {
	logger.InitWithLevel("error")
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer store.Close()

	now := time.Unix(1_700_000_000, 0)
	put := func(key string, expires time.Time) {
		b, _ := json.Marshal(models.DedupRecord{EventKey: key, ExpiresAt: expires.Unix()})
		if err := store.Set(store.DedupPrefix+key, b); err != nil {
			t.Fatal(err)
		}
	}
	put("old", now.Add(-time.Hour))
	put("live", now.Add(time.Hour))

	clock := now
	arts := cache.New(time.Minute, func() time.Time { return clock })
	arts.Put(&models.Artifact{FileID: "F1", Channel: "C1"})
	clock = clock.Add(2 * time.Minute)

	RunOnce(now, arts)

	if _, ok, _ := store.Get(store.DedupPrefix + "old"); ok {
		t.Fatalf("expired record survived sweep")
	}
	if _, ok, _ := store.Get(store.DedupPrefix + "live"); !ok {
		t.Fatalf("live record swept")
	}
	if _, ok := arts.Lookup("F1", "C1"); ok {
		t.Fatalf("expired artifact survived sweep")
	}
}
