package ingest

import (
	"testing"
	"time"
)

func TestSnapshotKey(t *testing.T) {
	tsMs := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC).UnixMilli()
	got := SnapshotKey("demo-agency", "vehicle-positions", tsMs)
	want := "gtfsrt/demo-agency/vehicle-positions/year=2025/month=01/day=02/hour=03/1735787045000.pb"
	if got != want {
		t.Errorf("SnapshotKey = %q, want %q", got, want)
	}
}

func TestSnapshotKeyUsesUTCPartitions(t *testing.T) {
	// 2024-12-31T23:30:00Z must partition under hour=23 of Dec 31 regardless
	// of the host timezone.
	tsMs := time.Date(2024, time.December, 31, 23, 30, 0, 0, time.UTC).UnixMilli()
	got := SnapshotKey("demo", "alerts", tsMs)
	want := "gtfsrt/demo/alerts/year=2024/month=12/day=31/hour=23/1735687800000.pb"
	if got != want {
		t.Errorf("SnapshotKey = %q, want %q", got, want)
	}
}

func TestStaticKey(t *testing.T) {
	got := StaticKey("demo-agency", "deadbeef", 1700000000000)
	want := "gtfs-static/demo-agency/hash=deadbeef/fetched_at=1700000000000.zip"
	if got != want {
		t.Errorf("StaticKey = %q, want %q", got, want)
	}
}
