package ingest

import (
	"fmt"
	"time"
)

// StaticKey builds the blob key for a static schedule archive. The hash
// segment makes the key content-addressed; fetched_at records when this
// copy was observed.
func StaticKey(agencyID, versionID string, fetchedAtMs int64) string {
	return fmt.Sprintf("gtfs-static/%s/hash=%s/fetched_at=%d.zip", agencyID, versionID, fetchedAtMs)
}

// SnapshotKey builds the time-partitioned blob key for a realtime snapshot.
// UTC year/month/day/hour partitions keep prefix listing and lifecycle
// rules cheap on the blob store.
func SnapshotKey(agencyID, feedType string, tsMs int64) string {
	t := time.UnixMilli(tsMs).UTC()
	return fmt.Sprintf("gtfsrt/%s/%s/year=%04d/month=%02d/day=%02d/hour=%02d/%d.pb",
		agencyID, feedType, t.Year(), int(t.Month()), t.Day(), t.Hour(), tsMs)
}
