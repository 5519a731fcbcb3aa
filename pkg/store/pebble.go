// Package store wraps a Pebble database with the small set of primitives the
// pipeline needs: plain get/set, a conditional first-writer-wins insert, a
// serialized counter increment, and prefix scans. The DB directory is owned by
// exactly one process, so the package mutex around conditional operations is
// the store's single-writer serialization point.
package store

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"

	"minuteman/pkg/logger"
)

var (
	db     *pebble.DB
	dbPath string

	// condMu serializes read-modify-write operations (SetIfAbsent,
	// Increment). Pebble itself has no compare-and-swap.
	condMu sync.Mutex
)

// Key namespaces. Dedup records, counters and commit markers share the store
// but live in distinct logical tables.
const (
	DedupPrefix   = "dedup:"
	CounterPrefix = "counter:"
	CommitPrefix  = "commit:"
)

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Path returns the opened DB directory.
func Path() string { return dbPath }

// Get returns the value stored at key, or (nil, false) when absent.
func Get(key string) ([]byte, bool, error) {
	if db == nil {
		return nil, false, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, true, nil
}

// Set writes value at key with a synced write.
func Set(key string, value []byte) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	return db.Set([]byte(key), value, pebble.Sync)
}

// Delete removes key.
func Delete(key string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	return db.Delete([]byte(key), pebble.Sync)
}

// SetIfAbsent writes value at key only when the key does not already exist.
// Returns created=false (and no error) when the key was present; this is the
// expected duplicate path for dedup records, not a failure.
func SetIfAbsent(key string, value []byte) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("pebble not opened; call store.Open first")
	}
	condMu.Lock()
	defer condMu.Unlock()
	_, closer, err := db.Get([]byte(key))
	if err == nil {
		_ = closer.Close()
		return false, nil
	}
	if err != pebble.ErrNotFound {
		return false, err
	}
	if err := db.Set([]byte(key), value, pebble.Sync); err != nil {
		return false, err
	}
	return true, nil
}

// Increment atomically increments the decimal counter at key and returns the
// new value. A missing key starts at zero.
func Increment(key string) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("pebble not opened; call store.Open first")
	}
	condMu.Lock()
	defer condMu.Unlock()
	var cur int64
	v, closer, err := db.Get([]byte(key))
	if err == nil {
		cur, err = strconv.ParseInt(string(v), 10, 64)
		_ = closer.Close()
		if err != nil {
			return 0, fmt.Errorf("corrupt counter at %s: %w", key, err)
		}
	} else if err != pebble.ErrNotFound {
		return 0, err
	}
	next := cur + 1
	if err := db.Set([]byte(key), []byte(strconv.FormatInt(next, 10)), pebble.Sync); err != nil {
		return 0, err
	}
	return next, nil
}

// ScanPrefix calls fn for every key/value under prefix, in key order. fn must
// not retain value. Returning false from fn stops the scan.
func ScanPrefix(prefix string, fn func(key string, value []byte) bool) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	upper := append([]byte(prefix), 0xff)
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: []byte(prefix), UpperBound: upper})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(string(iter.Key()), iter.Value()) {
			break
		}
	}
	return iter.Error()
}
