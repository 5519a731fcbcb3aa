package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"minuteman/pkg/logger"
	"minuteman/pkg/models"
	"minuteman/pkg/store"
)

// Operator tool: dump dedup records, counters and commit markers from a
// minuteman Pebble directory.
func main() {
	db := flag.String("db", "./.database", "Pebble DB path")
	what := flag.String("what", "all", "what to dump: dedup|counters|commits|all")
	flag.Parse()

	logger.InitWithLevel("error")
	if err := store.Open(*db); err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *db, err)
		os.Exit(1)
	}
	defer store.Close()

	if *what == "dedup" || *what == "all" {
		fmt.Println("-- dedup records --")
		_ = store.ScanPrefix(store.DedupPrefix, func(key string, value []byte) bool {
			var rec models.DedupRecord
			if json.Unmarshal(value, &rec) == nil {
				fmt.Printf("%s processed_at=%d expires_at=%d\n", rec.EventKey, rec.ProcessedAt, rec.ExpiresAt)
			} else {
				fmt.Printf("%s <unparseable>\n", key)
			}
			return true
		})
	}
	if *what == "counters" || *what == "all" {
		fmt.Println("-- counters --")
		_ = store.ScanPrefix(store.CounterPrefix, func(key string, value []byte) bool {
			fmt.Printf("%s = %s\n", key, value)
			return true
		})
	}
	if *what == "commits" || *what == "all" {
		fmt.Println("-- commit markers --")
		_ = store.ScanPrefix(store.CommitPrefix, func(key string, value []byte) bool {
			fmt.Printf("%s %s\n", key, value)
			return true
		})
	}
}
