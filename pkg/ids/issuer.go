// Package ids issues human-readable, lexicographically sortable task
// identifiers backed by a durable per-period counter.
package ids

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"minuteman/pkg/logger"
	"minuteman/pkg/models"
	"minuteman/pkg/store"
	"minuteman/pkg/telemetry"
)

// Issuer formats PREFIX-period-NNN identifiers from an atomic counter in the
// durable store. When the counter is unreachable it falls back to a
// timestamp-based scheme that is marked distinguishably so downstream systems
// never mistake it for a sequence-issued id.
type Issuer struct {
	Prefix string
	SeqPad int
	Now    func() time.Time
}

// NewIssuer returns an issuer with defaults applied.
func NewIssuer(prefix string, seqPad int) *Issuer {
	if prefix == "" {
		prefix = "TASK"
	}
	if seqPad <= 0 {
		seqPad = 3
	}
	return &Issuer{Prefix: prefix, SeqPad: seqPad, Now: time.Now}
}

// CurrentPeriod returns the YYMM period for now.
func (i *Issuer) CurrentPeriod() string {
	return i.Now().UTC().Format("0601")
}

// GenerateNextID issues the next identifier for period. Two concurrent
// issuances never receive the same value: the store serializes the increment.
func (i *Issuer) GenerateNextID(period string) models.TaskID {
	if period == "" {
		period = i.CurrentPeriod()
	}
	seq, err := store.Increment(store.CounterPrefix + "task:" + period)
	if err != nil {
		return i.fallback(period, err)
	}
	return models.TaskID{
		Value:  fmt.Sprintf("%s-%s-%0*d", i.Prefix, period, i.SeqPad, seq),
		Period: period,
		Seq:    seq,
	}
}

// fallback builds a PREFIX-date-base36(ts) id plus a SourceID so downstream
// consumers can still dedupe even though strict ordering is lost.
func (i *Issuer) fallback(period string, cause error) models.TaskID {
	telemetry.TaskIDFallbacks.Inc()
	now := i.Now().UTC()
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := strings.ToUpper(uuid.NewString()[:4])
	id := models.TaskID{
		Value:    fmt.Sprintf("%s-%s-%s%s", i.Prefix, now.Format("060102"), ts, suffix),
		Period:   period,
		Fallback: true,
		SourceID: uuid.NewString(),
	}
	logger.Warn("task_id_fallback", "id", id.Value, "source_id", id.SourceID, "error", cause)
	return id
}
