package store

import (
	"encoding/json"
	"time"

	"minuteman/pkg/logger"
	"minuteman/pkg/models"
)

// SweepExpiredDedup deletes dedup records whose expiry has passed. Duplicates
// are only a near-term redelivery concern; the records are not a permanent
// ledger. Returns the number of records removed.
func SweepExpiredDedup(now time.Time) (int, error) {
	type victim struct{ key string }
	var victims []victim
	err := ScanPrefix(DedupPrefix, func(key string, value []byte) bool {
		var rec models.DedupRecord
		if json.Unmarshal(value, &rec) != nil {
			// unparseable record: remove rather than keep forever
			victims = append(victims, victim{key})
			return true
		}
		if rec.ExpiresAt > 0 && rec.ExpiresAt <= now.Unix() {
			victims = append(victims, victim{key})
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	for _, v := range victims {
		if err := Delete(v.key); err != nil {
			return 0, err
		}
	}
	if len(victims) > 0 {
		logger.Info("dedup_records_swept", "count", len(victims))
	}
	return len(victims), nil
}
