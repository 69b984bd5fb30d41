package catalog

import (
	"context"
	"testing"
)

func TestInsertVersionIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	v := ScheduleVersion{VersionID: "abc123", AgencyID: "demo", FetchedAtMs: 1000, StorageKey: "gtfs-static/demo/hash=abc123/fetched_at=1000.zip"}
	if err := m.InsertVersion(ctx, v, 1000); err != nil {
		t.Fatalf("InsertVersion: %v", err)
	}

	// Same content at a later instant: one version row, two effective mappings.
	v2 := v
	v2.FetchedAtMs = 2000
	if err := m.InsertVersion(ctx, v2, 2000); err != nil {
		t.Fatalf("InsertVersion again: %v", err)
	}

	versions, err := m.ListVersions(ctx, "demo")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("got %d versions, want 1", len(versions))
	}
	if versions[0].FetchedAtMs != 1000 {
		t.Errorf("version row mutated: FetchedAtMs = %d, want original 1000", versions[0].FetchedAtMs)
	}

	ev, err := m.EffectiveVersionAt(ctx, "demo", 2500)
	if err != nil {
		t.Fatalf("EffectiveVersionAt: %v", err)
	}
	if ev.EffectiveFromMs != 2000 {
		t.Errorf("EffectiveFromMs = %d, want 2000", ev.EffectiveFromMs)
	}
}

func TestEffectiveVersionMonotonicLookup(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i, ts := range []int64{100, 200, 300} {
		v := ScheduleVersion{VersionID: string(rune('a' + i)), AgencyID: "demo", FetchedAtMs: ts, StorageKey: "k"}
		if err := m.InsertVersion(ctx, v, ts); err != nil {
			t.Fatalf("InsertVersion: %v", err)
		}
	}

	cases := []struct {
		ts   int64
		want string
	}{
		{100, "a"},
		{150, "a"},
		{200, "b"},
		{299, "b"},
		{300, "c"},
		{10000, "c"},
	}
	for _, tc := range cases {
		ev, err := m.EffectiveVersionAt(ctx, "demo", tc.ts)
		if err != nil {
			t.Fatalf("EffectiveVersionAt(%d): %v", tc.ts, err)
		}
		if ev.VersionID != tc.want {
			t.Errorf("EffectiveVersionAt(%d) = %s, want %s", tc.ts, ev.VersionID, tc.want)
		}
	}

	if _, err := m.EffectiveVersionAt(ctx, "demo", 99); err != ErrNotFound {
		t.Errorf("EffectiveVersionAt before first mapping = %v, want ErrNotFound", err)
	}
}

func TestInsertSnapshotIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	snap := Snapshot{AgencyID: "demo", FeedType: FeedVehiclePositions, TsMs: 5000, StorageKey: "k", ByteSize: 10}
	id1, err := m.InsertSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}
	id2, err := m.InsertSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("InsertSnapshot again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("duplicate insert produced new id: %s vs %s", id1, id2)
	}

	snaps, err := m.ListSnapshots(ctx, "demo", SnapshotFilter{})
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Errorf("got %d snapshots, want 1", len(snaps))
	}
}

func TestListSnapshotsFilterAndLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for ts := int64(1); ts <= 5; ts++ {
		if _, err := m.InsertSnapshot(ctx, Snapshot{AgencyID: "demo", FeedType: FeedTripUpdates, TsMs: ts * 1000, StorageKey: "k"}); err != nil {
			t.Fatalf("InsertSnapshot: %v", err)
		}
	}
	if _, err := m.InsertSnapshot(ctx, Snapshot{AgencyID: "demo", FeedType: FeedAlerts, TsMs: 2500, StorageKey: "k"}); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}

	start, end := int64(2000), int64(4000)
	snaps, err := m.ListSnapshots(ctx, "demo", SnapshotFilter{FeedType: FeedTripUpdates, StartMs: &start, EndMs: &end, Limit: 2})
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	// Newest first
	if snaps[0].TsMs != 4000 || snaps[1].TsMs != 3000 {
		t.Errorf("got timestamps %d, %d; want 4000, 3000", snaps[0].TsMs, snaps[1].TsMs)
	}
}

func TestListManifestOrderAndWindow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, ts := range []int64{3000, 1000, 2000, 9000} {
		if _, err := m.InsertSnapshot(ctx, Snapshot{AgencyID: "demo", FeedType: FeedVehiclePositions, TsMs: ts, StorageKey: "k"}); err != nil {
			t.Fatalf("InsertSnapshot: %v", err)
		}
	}

	objects, err := m.ListManifest(ctx, "demo", 1000, 9000, []string{FeedVehiclePositions})
	if err != nil {
		t.Fatalf("ListManifest: %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("got %d objects, want 3 (end exclusive)", len(objects))
	}
	for i := 1; i < len(objects); i++ {
		if objects[i].TsMs < objects[i-1].TsMs {
			t.Errorf("manifest not ascending: %d before %d", objects[i-1].TsMs, objects[i].TsMs)
		}
	}
}

func TestValidFeedType(t *testing.T) {
	for _, ft := range FeedTypes {
		if !ValidFeedType(ft) {
			t.Errorf("ValidFeedType(%q) = false", ft)
		}
	}
	if ValidFeedType("all") {
		t.Error(`ValidFeedType("all") = true; "all" is a query expansion, not a feed type`)
	}
	if ValidFeedType("") {
		t.Error("ValidFeedType(empty) = true")
	}
}
